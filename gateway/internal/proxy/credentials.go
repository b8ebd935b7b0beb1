package proxy

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Credentials are attached to every outbound call. They are loaded once and
// never modified.
type Credentials struct {
	BearerToken string
	TLS         *tls.Config
}

type CredentialOptions struct {
	BearerToken        string
	ClientCertFile     string
	ClientKeyFile      string
	CAFile             string
	InsecureSkipVerify bool
}

// LoadCredentials reads the client certificate and CA bundle from disk.
// Server certificates are verified against the system pool, or against
// CAFile when set, unless InsecureSkipVerify is explicitly requested.
func LoadCredentials(opts CredentialOptions) (*Credentials, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // explicit opt-in
	}

	if (opts.ClientCertFile == "") != (opts.ClientKeyFile == "") {
		return nil, errors.New("client certificate and key must be configured together")
	}
	if opts.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.ClientCertFile, opts.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("CA bundle contains no certificates")
		}
		cfg.RootCAs = pool
	}

	return &Credentials{BearerToken: opts.BearerToken, TLS: cfg}, nil
}

// MutualTLS reports whether a client certificate is presented.
func (c *Credentials) MutualTLS() bool {
	return c != nil && c.TLS != nil && len(c.TLS.Certificates) > 0
}

// Package proxy relays single HTTP calls to allow-listed upstreams on behalf
// of authenticated callers.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http/httpguts"

	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

const (
	DefaultTimeout          = 30 * time.Second
	DefaultMaxResponseBytes = 10 << 20
)

type Options struct {
	Allowlist   Allowlist
	Credentials *Credentials
	Timeout     time.Duration

	// Transport overrides the TLS-configured transport built from
	// Credentials. Tests use it to observe outbound calls.
	Transport http.RoundTripper

	MaxResponseBytes int64
}

type Forwarder struct {
	allow    Allowlist
	creds    *Credentials
	client   *http.Client
	maxBytes int64
}

func NewForwarder(opts Options) *Forwarder {
	if opts.Credentials == nil {
		opts.Credentials = &Credentials{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}

	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Credentials.TLS != nil {
			t.TLSClientConfig = opts.Credentials.TLS.Clone()
		}
		base = t
	}

	return &Forwarder{
		allow: opts.Allowlist,
		creds: opts.Credentials,
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(base),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBytes: opts.MaxResponseBytes,
	}
}

// Allowlist returns the configured allowlist.
func (f *Forwarder) Allowlist() Allowlist { return f.allow }

// Forward performs exactly one upstream call. Validation and allowlist
// failures are returned before any network I/O. Any upstream status,
// including 4xx and 5xx, is a completed call and yields a response.
func (f *Forwarder) Forward(ctx context.Context, pr models.ProxyRequest) (*models.ProxyResponse, error) {
	req, host, err := f.build(ctx, pr)
	if err != nil {
		var forbidden *ForbiddenHostError
		if errors.As(err, &forbidden) {
			metrics.ProxyRequests.WithLabelValues(metrics.OutcomeForbidden).Inc()
		} else {
			metrics.ProxyRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		}
		return nil, err
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.ProxyUpstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, &TransportError{Host: host, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, &TransportError{Host: host, Err: err}
	}
	if int64(len(raw)) > f.maxBytes {
		metrics.ProxyRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, &TransportError{Host: host, Err: fmt.Errorf("response exceeds %d bytes", f.maxBytes)}
	}

	body, err := relayBody(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		metrics.ProxyRequests.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, &TransportError{Host: host, Err: err}
	}

	metrics.ProxyRequests.WithLabelValues(metrics.OutcomeForwarded).Inc()
	return &models.ProxyResponse{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Body:   body,
	}, nil
}

func (f *Forwarder) build(ctx context.Context, pr models.ProxyRequest) (*http.Request, string, error) {
	target := strings.TrimSpace(pr.URL)
	if target == "" {
		return nil, "", &ValidationError{Reason: "url is required"}
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, "", &ValidationError{Reason: "url must be an absolute http or https URL"}
	}
	host := strings.ToLower(u.Hostname())

	method := strings.ToUpper(strings.TrimSpace(pr.Method))
	if method == "" {
		method = http.MethodGet
	}

	for name, value := range pr.Headers {
		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return nil, "", &ValidationError{Reason: fmt.Sprintf("invalid header %q", name)}
		}
	}

	if !f.allow.Allows(host) {
		return nil, host, &ForbiddenHostError{Host: host}
	}

	var body io.Reader
	hasBody := len(pr.Body) > 0 && !bytes.Equal(bytes.TrimSpace(pr.Body), []byte("null"))
	if hasBody {
		if !json.Valid(pr.Body) {
			return nil, host, &ValidationError{Reason: "body must be valid JSON"}
		}
		body = bytes.NewReader(pr.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, host, &ValidationError{Reason: "invalid method"}
	}
	for name, value := range pr.Headers {
		req.Header.Set(name, value)
	}
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if f.creds.BearerToken != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+f.creds.BearerToken)
	}
	return req, host, nil
}

// relayBody re-emits JSON responses as JSON and everything else, including
// JSON-typed bodies that fail to parse, as a JSON string.
func relayBody(contentType string, raw []byte) (json.RawMessage, error) {
	if isJSON(contentType) && json.Valid(raw) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	text, err := json.Marshal(string(raw))
	if err != nil {
		return nil, err
	}
	return text, nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

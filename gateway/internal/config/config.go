// Package config loads gateway configuration from defaults, an optional YAML
// file and GATEWAY_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/numo-systems/numo-admin/common/httputil"
)

type Config struct {
	Server         ServerConfig    `mapstructure:"server" yaml:"server"`
	Auth           AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Session        SessionConfig   `mapstructure:"session" yaml:"session"`
	Database       DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Redis          RedisConfig     `mapstructure:"redis" yaml:"redis"`
	NATS           NATSConfig      `mapstructure:"nats" yaml:"nats"`
	Upstream       UpstreamConfig  `mapstructure:"upstream" yaml:"upstream"`
	Audit          AuditConfig     `mapstructure:"audit" yaml:"audit"`
	LoginRateLimit RateLimitConfig `mapstructure:"login_rate_limit" yaml:"login_rate_limit"`
	Telemetry      TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Logging        LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Bootstrap      BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	TLSCert      string        `mapstructure:"tls_cert" yaml:"tls_cert"`
	TLSKey       string        `mapstructure:"tls_key" yaml:"tls_key"`
	StaticDir    string        `mapstructure:"static_dir" yaml:"static_dir"`
	// CookieSecure defaults to whether the server terminates TLS itself.
	CookieSecure bool     `mapstructure:"cookie_secure" yaml:"cookie_secure"`
	CORSOrigins  []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Other peers are keyed by RemoteAddr.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
}

// AuthConfig selects which AuthGate strategies are active. A non-empty
// JWTSecret enables token mode and disables session and basic auth.
type AuthConfig struct {
	AdminUser     string        `mapstructure:"admin_user" yaml:"admin_user"`
	AdminPassword string        `mapstructure:"admin_password" yaml:"admin_password"`
	JWTSecret     string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	SessionSecret string        `mapstructure:"session_secret" yaml:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

type SessionConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type DatabaseConfig struct {
	// Type is "postgres" or "memory".
	Type     string `mapstructure:"type" yaml:"type"`
	URL      string `mapstructure:"url" yaml:"url"`
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns"`
	Migrate  bool   `mapstructure:"migrate" yaml:"migrate"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type NATSConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type UpstreamConfig struct {
	ConfigFile string `mapstructure:"config_file" yaml:"config_file"`
	// AllowHosts is a comma-separated hostname list; empty disables the allowlist.
	AllowHosts  string        `mapstructure:"allow_hosts" yaml:"allow_hosts"`
	BearerToken string        `mapstructure:"bearer_token" yaml:"bearer_token"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// DirectoryURL and DirectoryToken, when set, override whatever the
	// persisted upstream configuration file says.
	DirectoryURL   string `mapstructure:"directory_url" yaml:"directory_url"`
	DirectoryToken string `mapstructure:"directory_token" yaml:"directory_token"`

	Defaults UpstreamDefaults `mapstructure:"defaults" yaml:"defaults"`
	TLS      UpstreamTLS      `mapstructure:"tls" yaml:"tls"`
}

type UpstreamDefaults struct {
	CoreURL        string `mapstructure:"core_url" yaml:"core_url"`
	DirectoryURL   string `mapstructure:"directory_url" yaml:"directory_url"`
	DirectoryToken string `mapstructure:"directory_token" yaml:"directory_token"`
	KeysURL        string `mapstructure:"keys_url" yaml:"keys_url"`
	LedgerURL      string `mapstructure:"ledger_url" yaml:"ledger_url"`
	TrustURL       string `mapstructure:"trust_url" yaml:"trust_url"`
}

type UpstreamTLS struct {
	ClientCert string `mapstructure:"client_cert" yaml:"client_cert"`
	ClientKey  string `mapstructure:"client_key" yaml:"client_key"`
	CAFile     string `mapstructure:"ca_file" yaml:"ca_file"`
	// InsecureSkipVerify must be opted into explicitly.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type AuditConfig struct {
	File           string `mapstructure:"file" yaml:"file"`
	Capacity       int    `mapstructure:"capacity" yaml:"capacity"`
	ForwardSubject string `mapstructure:"forward_subject" yaml:"forward_subject"`
	// SigningKey, when set, adds an HMAC signature to forwarded events.
	SigningKey string `mapstructure:"signing_key" yaml:"signing_key"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// BootstrapConfig seeds one user at startup when it does not exist yet.
type BootstrapConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Role     string `mapstructure:"role" yaml:"role"`
}

// EnvPrefix is prepended to every environment variable, e.g.
// GATEWAY_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "GATEWAY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4173)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.tls_cert", "")
	v.SetDefault("server.tls_key", "")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("auth.admin_user", "")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.session_secret", "change-this-in-production")
	v.SetDefault("auth.session_ttl", "12h")

	v.SetDefault("session.backend", "memory")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("nats.url", "")

	v.SetDefault("upstream.config_file", "config.json")
	v.SetDefault("upstream.allow_hosts", "")
	v.SetDefault("upstream.bearer_token", "")
	v.SetDefault("upstream.timeout", "30s")
	v.SetDefault("upstream.directory_url", "")
	v.SetDefault("upstream.directory_token", "")
	v.SetDefault("upstream.defaults.core_url", "http://localhost:8082")
	v.SetDefault("upstream.defaults.directory_url", "http://localhost:8080")
	v.SetDefault("upstream.defaults.directory_token", "changeme")
	v.SetDefault("upstream.defaults.keys_url", "http://localhost:8085")
	v.SetDefault("upstream.defaults.ledger_url", "http://localhost:8086")
	v.SetDefault("upstream.defaults.trust_url", "http://localhost:8089")
	v.SetDefault("upstream.tls.client_cert", "")
	v.SetDefault("upstream.tls.client_key", "")
	v.SetDefault("upstream.tls.ca_file", "")
	v.SetDefault("upstream.tls.insecure_skip_verify", false)

	v.SetDefault("audit.file", "audit-log.json")
	v.SetDefault("audit.capacity", 500)
	v.SetDefault("audit.forward_subject", "numo.audit.events")
	v.SetDefault("audit.signing_key", "")

	v.SetDefault("login_rate_limit.enabled", true)
	v.SetDefault("login_rate_limit.requests", 10)
	v.SetDefault("login_rate_limit.window", "1m")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("bootstrap.username", "")
	v.SetDefault("bootstrap.password", "")
	v.SetDefault("bootstrap.role", "admin")
}

// Load reads configuration. configPath may be empty, in which case
// ./gateway.yaml and /etc/numo/gateway.yaml are tried and a missing file is
// not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/numo")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if v.IsSet("server.cookie_secure") {
		cfg.Server.CookieSecure = v.GetBool("server.cookie_secure")
	} else {
		cfg.Server.CookieSecure = cfg.Server.TLSCert != ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations the gateway cannot start with.
func (c *Config) Validate() error {
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return errors.New("server.tls_cert and server.tls_key must be set together")
	}
	if (c.Upstream.TLS.ClientCert == "") != (c.Upstream.TLS.ClientKey == "") {
		return errors.New("upstream.tls.client_cert and upstream.tls.client_key must be set together")
	}
	for _, p := range c.Server.TrustedProxies {
		if _, err := httputil.ParseIPOrPrefix(p); err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}
	}
	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required when database.type is postgres")
		}
	default:
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("unsupported session.backend %q", c.Session.Backend)
	}
	if c.Audit.Capacity <= 0 {
		return errors.New("audit.capacity must be positive")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Auth.AdminPassword = mask(c.Auth.AdminPassword)
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	c.Auth.SessionSecret = mask(c.Auth.SessionSecret)
	c.Upstream.BearerToken = mask(c.Upstream.BearerToken)
	c.Upstream.DirectoryToken = mask(c.Upstream.DirectoryToken)
	c.Upstream.Defaults.DirectoryToken = mask(c.Upstream.Defaults.DirectoryToken)
	c.Bootstrap.Password = mask(c.Bootstrap.Password)
	c.Audit.SigningKey = mask(c.Audit.SigningKey)
	c.Database.URL = mask(c.Database.URL)
	c.Redis.URL = mask(c.Redis.URL)
	return c
}

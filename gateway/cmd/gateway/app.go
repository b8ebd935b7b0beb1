package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	auditsig "github.com/numo-systems/numo-admin/common/audit"
	"github.com/numo-systems/numo-admin/common/database"
	"github.com/numo-systems/numo-admin/common/httputil"
	"github.com/numo-systems/numo-admin/common/logging"
	natsclient "github.com/numo-systems/numo-admin/common/messaging/nats"
	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/config"
	"github.com/numo-systems/numo-admin/gateway/internal/handlers"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/proxy"
	"github.com/numo-systems/numo-admin/gateway/internal/ratelimit"
	"github.com/numo-systems/numo-admin/gateway/internal/repository"
	"github.com/numo-systems/numo-admin/gateway/internal/server"
	"github.com/numo-systems/numo-admin/gateway/internal/service"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
	"github.com/numo-systems/numo-admin/gateway/internal/upstream"
	"github.com/numo-systems/numo-admin/gateway/migrations"
)

// app is the wired gateway. Close releases its connections in reverse
// order of creation.
type app struct {
	handler http.Handler
	gate    *auth.Gate
	trail   *audit.Trail
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// openRepository connects the durable store named by cfg.Database.
func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	if cfg.Database.Type != "postgres" {
		slog.Warn("Using in-memory repository (development only)")
		return repository.NewInMemoryRepository(), nil
	}

	if cfg.Database.Migrate {
		slog.Info("Running database migrations")
		if err := migrations.Up(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	repo, err := repository.NewPostgresRepository(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to PostgreSQL")
	return repo, nil
}

func upstreamDefaults(d config.UpstreamDefaults) models.UpstreamSettings {
	return models.UpstreamSettings{
		CoreURL:   d.CoreURL,
		DirURL:    d.DirectoryURL,
		DirToken:  d.DirectoryToken,
		KeysURL:   d.KeysURL,
		LedgerURL: d.LedgerURL,
		TrustURL:  d.TrustURL,
	}
}

// buildApp wires every component from cfg.
func buildApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repo.Close)

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = database.OpenRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		sessions = session.NewRedisStore(rdb, cfg.Auth.SessionTTL)
	default:
		sessions = session.NewMemoryStore(cfg.Auth.SessionTTL)
	}
	cookies, err := session.NewCookieCodec(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL, cfg.Server.CookieSecure)
	if err != nil {
		return nil, err
	}

	buffer := audit.NewBuffer(cfg.Audit.File, cfg.Audit.Capacity)
	if err := buffer.Load(); err != nil {
		slog.Warn("Starting with an empty audit buffer", logging.Error(err))
	}

	var forwarder *audit.Forwarder
	if cfg.NATS.URL != "" {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			slog.Warn("Audit forwarding disabled", logging.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = client.Close() })
			forwarder = audit.NewForwarder(client, cfg.Audit.ForwardSubject)
			if cfg.Audit.SigningKey != "" {
				forwarder.WithSigner(auditsig.NewSigner(cfg.Audit.SigningKey))
			}
			slog.Info("Forwarding audit events", slog.String("subject", cfg.Audit.ForwardSubject))
		}
	}
	a.trail = audit.NewTrail(repo, buffer, forwarder)

	svc := service.NewAuthService(repo, sessions, a.trail)
	if cfg.Bootstrap.Username != "" {
		created, err := svc.EnsureUser(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password, cfg.Bootstrap.Role)
		if err != nil {
			return nil, fmt.Errorf("failed to seed bootstrap user: %w", err)
		}
		if created {
			slog.Info("Seeded bootstrap user", logging.Subject(cfg.Bootstrap.Username))
		}
	}

	store := upstream.NewStore(upstream.Options{
		Path:     cfg.Upstream.ConfigFile,
		Defaults: upstreamDefaults(cfg.Upstream.Defaults),
		Override: upstream.Override{
			DirURL:   cfg.Upstream.DirectoryURL,
			DirToken: cfg.Upstream.DirectoryToken,
		},
	})
	if err := store.Load(); err != nil {
		slog.Warn("Using default upstream configuration", logging.Error(err))
	}

	creds, err := proxy.LoadCredentials(proxy.CredentialOptions{
		BearerToken:        cfg.Upstream.BearerToken,
		ClientCertFile:     cfg.Upstream.TLS.ClientCert,
		ClientKeyFile:      cfg.Upstream.TLS.ClientKey,
		CAFile:             cfg.Upstream.TLS.CAFile,
		InsecureSkipVerify: cfg.Upstream.TLS.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Upstream.TLS.InsecureSkipVerify {
		slog.Warn("Upstream TLS verification is disabled")
	}
	allow := proxy.ParseAllowlist(cfg.Upstream.AllowHosts)
	if !allow.Enabled() {
		slog.Warn("Upstream allowlist is empty; every host may be proxied")
	}
	fwd := proxy.NewForwarder(proxy.Options{
		Allowlist:   allow,
		Credentials: creds,
		Timeout:     cfg.Upstream.Timeout,
	})

	a.gate = auth.NewGate(auth.Options{
		JWTSecret:     cfg.Auth.JWTSecret,
		Sessions:      sessions,
		Cookies:       cookies,
		AdminUser:     cfg.Auth.AdminUser,
		AdminPassword: cfg.Auth.AdminPassword,
	})
	slog.Info("Auth strategies configured", slog.Any("strategies", a.gate.Strategies()))

	var limiter ratelimit.Limiter = ratelimit.NoOpLimiter{}
	switch {
	case !cfg.LoginRateLimit.Enabled:
	case rdb == nil:
		slog.Info("Login rate limiting needs redis.url; disabled")
	default:
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.LoginRateLimit.Requests, cfg.LoginRateLimit.Window)
	}

	clientIP, err := httputil.NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	a.handler = server.NewRouter(server.RouterConfig{
		AuthHandler:   handlers.NewAuthHandler(svc, cookies, limiter).WithClientIPResolver(clientIP),
		ProxyHandler:  handlers.NewProxyHandler(fwd, a.trail),
		ConfigHandler: handlers.NewConfigHandler(store, a.trail),
		AuditHandler:  handlers.NewAuditHandler(a.trail),
		Gate:          a.gate,
		Logger:        logging.Default(),
		StaticDir:     cfg.Server.StaticDir,
		CORSOrigins:   cfg.Server.CORSOrigins,
		HSTS:          cfg.Server.TLSCert != "",
	})
	return a, nil
}

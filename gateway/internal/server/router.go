package server

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/common/middleware"
	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/handlers"
	"github.com/numo-systems/numo-admin/gateway/internal/telemetry"
)

// HomePath is where "/" lands.
const HomePath = "/config.html"

// RouterConfig holds dependencies needed to configure routes
type RouterConfig struct {
	AuthHandler   *handlers.AuthHandler
	ProxyHandler  *handlers.ProxyHandler
	ConfigHandler *handlers.ConfigHandler
	AuditHandler  *handlers.AuditHandler
	Gate          *auth.Gate
	Logger        *logging.Logger

	// StaticDir holds the console pages. Empty serves no pages.
	StaticDir string
	// CORSOrigins enables credentialed CORS for these origins. Empty means
	// same-origin only.
	CORSOrigins []string
	HSTS        bool
}

// NewRouter constructs a ServeMux with the gateway routes registered and
// wraps it in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	api := func(h http.HandlerFunc) http.Handler { return cfg.Gate.Protect(h) }

	// Open endpoints
	mux.HandleFunc("POST /api/auth/login", cfg.AuthHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", cfg.AuthHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", cfg.AuthHandler.Me)
	mux.HandleFunc("GET /health", handlers.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Protected API
	mux.Handle("POST /api/proxy", api(cfg.ProxyHandler.Forward))
	mux.Handle("GET /api/config", api(cfg.ConfigHandler.Get))
	mux.Handle("POST /api/config", api(cfg.ConfigHandler.Update))
	mux.Handle("GET /api/audit", api(cfg.AuditHandler.List))
	mux.Handle("POST /api/audit", api(cfg.AuditHandler.Create))
	mux.Handle("DELETE /api/audit", api(cfg.AuditHandler.Clear))

	// Console pages
	mux.Handle("GET /{$}", cfg.Gate.ProtectPage(http.RedirectHandler(HomePath, http.StatusFound)))
	if cfg.StaticDir != "" {
		mux.Handle("GET /", newStaticHandler(cfg.StaticDir, cfg.Gate))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	var h http.Handler = telemetry.NameFromPattern(mux)
	if len(cfg.CORSOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader, handlers.AuditSourceHeader},
			AllowCredentials: true,
		}).Handler(h)
	}
	h = middleware.SecurityHeaders(middleware.SecurityConfig{HSTS: cfg.HSTS})(h)
	h = telemetry.Middleware()(h)
	h = logging.AccessLog(logger)(h)
	h = middleware.RequestID(h)
	return middleware.Recover(h)
}

// staticHandler serves console files. HTML documents go through the page
// guard unless they are open; other assets are served as is.
type staticHandler struct {
	files http.Handler
	pages http.Handler
}

func newStaticHandler(dir string, gate *auth.Gate) *staticHandler {
	files := http.FileServer(http.Dir(dir))
	return &staticHandler{files: files, pages: gate.ProtectPage(files)}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/"):
		http.NotFound(w, r)
	case auth.IsOpen(path):
		h.files.ServeHTTP(w, r)
	case strings.HasSuffix(path, ".html"):
		h.pages.ServeHTTP(w, r)
	default:
		h.files.ServeHTTP(w, r)
	}
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/numo-systems/numo-admin/common/httputil"
	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/metrics"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
)

// SignInPath is where unauthenticated page requests are sent.
const SignInPath = "/signin.html"

// Options configure which strategies the gate runs.
type Options struct {
	// JWTSecret enables token mode. Session and Basic are not evaluated
	// when it is set.
	JWTSecret string

	Sessions session.Store
	Cookies  *session.CookieCodec

	AdminUser     string
	AdminPassword string
}

// Gate runs the strategy chain. The chain is fixed at construction.
type Gate struct {
	strategies []Strategy
	tokenMode  bool
}

// NewGate builds the chain token, session, basic from opts, leaving out
// strategies that are not configured.
func NewGate(opts Options) *Gate {
	var chain []Strategy
	if opts.JWTSecret != "" {
		chain = append(chain, NewTokenStrategy(opts.JWTSecret))
	}
	if opts.Sessions != nil && opts.Cookies != nil {
		chain = append(chain, NewSessionStrategy(opts.Sessions, opts.Cookies))
	}
	if opts.AdminUser != "" && opts.AdminPassword != "" {
		chain = append(chain, NewBasicStrategy(opts.AdminUser, opts.AdminPassword))
	}
	return NewGateWithStrategies(opts.JWTSecret != "", chain...)
}

// NewGateWithStrategies uses the given chain as is.
func NewGateWithStrategies(tokenMode bool, strategies ...Strategy) *Gate {
	return &Gate{strategies: strategies, tokenMode: tokenMode}
}

// TokenMode reports whether bearer tokens are the only accepted credential.
func (g *Gate) TokenMode() bool { return g.tokenMode }

// Strategies returns the names of the configured strategies in order.
func (g *Gate) Strategies() []string {
	names := make([]string, len(g.strategies))
	for i, s := range g.strategies {
		names[i] = s.Name()
	}
	return names
}

// Authenticate evaluates the chain. The returned verdict is never a skip.
func (g *Gate) Authenticate(r *http.Request) Verdict {
	for _, s := range g.strategies {
		v := s.Evaluate(r)
		metrics.AuthDecisions.WithLabelValues(s.Name(), v.Kind.String()).Inc()
		if v.Kind == KindAccept {
			slog.DebugContext(r.Context(), "Request authenticated",
				logging.Strategy(s.Name()),
				logging.Subject(v.Identity.Subject),
				logging.Role(v.Identity.Role),
			)
		}
		if v.Kind != KindSkip {
			return v
		}
	}
	metrics.AuthDecisions.WithLabelValues("none", metrics.ResultReject).Inc()
	return Reject(ErrAuthenticationRequired, "")
}

// Protect guards API routes: rejection is a 401 JSON error.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := g.Authenticate(r)
		if v.Kind != KindAccept {
			slog.DebugContext(r.Context(), "Request rejected",
				logging.Path(r.URL.Path),
				logging.Error(v.Err),
			)
			if v.Challenge != "" {
				w.Header().Set("WWW-Authenticate", v.Challenge)
			}
			httputil.WriteError(w, http.StatusUnauthorized, v.Err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), v.Identity)))
	})
}

// ProtectPage guards browsable documents: rejection redirects to sign-in.
// In token mode pages are served unchecked because a browser navigation
// cannot carry a bearer header; their data comes from protected API routes.
func (g *Gate) ProtectPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.tokenMode {
			next.ServeHTTP(w, r)
			return
		}
		v := g.Authenticate(r)
		if v.Kind != KindAccept {
			http.Redirect(w, r, SignInPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), v.Identity)))
	})
}

// Actor returns the subject attached to the request, or "" when none.
func Actor(r *http.Request) string {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		return ""
	}
	return id.Subject
}

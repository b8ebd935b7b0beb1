package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/numo-systems/numo-admin/common/httputil"
	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/ratelimit"
	"github.com/numo-systems/numo-admin/gateway/internal/service"
	"github.com/numo-systems/numo-admin/gateway/internal/session"
)

type AuthHandler struct {
	service  *service.AuthService
	cookies  *session.CookieCodec
	limiter  ratelimit.Limiter
	clientIP *httputil.ClientIPResolver
}

func NewAuthHandler(svc *service.AuthService, cookies *session.CookieCodec, limiter ratelimit.Limiter) *AuthHandler {
	if limiter == nil {
		limiter = ratelimit.NoOpLimiter{}
	}
	return &AuthHandler{service: svc, cookies: cookies, limiter: limiter}
}

// WithClientIPResolver sets how login attempts are keyed. Without one the
// limiter keys on the connection's remote address.
func (h *AuthHandler) WithClientIPResolver(resolver *httputil.ClientIPResolver) *AuthHandler {
	h.clientIP = resolver
	return h
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP.ClientIP(r)

	allowed, err := h.limiter.Allow(r.Context(), ip)
	if err != nil {
		slog.WarnContext(r.Context(), "Login rate limiter unavailable", logging.IP(ip), logging.Error(err))
	} else if !allowed {
		httputil.WriteError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req models.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.service.Login(r.Context(), req.Username, req.Password, ip)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrMissingCredentials):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	default:
		slog.ErrorContext(r.Context(), "Login failed", logging.Error(err))
		httputil.WriteError(w, http.StatusServiceUnavailable, "authentication temporarily unavailable")
		return
	}

	if err := h.cookies.Write(w, sess.ID); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write session cookie", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	slog.InfoContext(r.Context(), "User logged in", logging.Subject(sess.Identity.Subject), logging.IP(ip))
	httputil.WriteJSON(w, http.StatusOK, models.LoginResponse{OK: true, User: sess.Identity})
}

// Logout handles POST /api/auth/logout. It succeeds with or without a
// session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, err := h.cookies.Read(r); err == nil {
		if err := h.service.Logout(r.Context(), id); err != nil {
			slog.WarnContext(r.Context(), "Failed to destroy session", logging.Error(err))
		}
	}
	h.cookies.Clear(w)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /api/auth/me from the session cookie alone.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := h.cookies.Read(r)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	sess, err := h.service.Session(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.WarnContext(r.Context(), "Session lookup failed", logging.Error(err))
		}
		httputil.WriteError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.Identity)
}

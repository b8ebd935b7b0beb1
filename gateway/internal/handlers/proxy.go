package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/numo-systems/numo-admin/common/httputil"
	"github.com/numo-systems/numo-admin/common/logging"
	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/proxy"
)

const (
	ActionProxyForward = "proxy.forward"
	ActionProxyDenied  = "proxy.denied"
)

type ProxyHandler struct {
	forwarder *proxy.Forwarder
	trail     *audit.Trail
}

func NewProxyHandler(forwarder *proxy.Forwarder, trail *audit.Trail) *ProxyHandler {
	return &ProxyHandler{forwarder: forwarder, trail: trail}
}

// Forward handles POST /api/proxy.
func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	var req models.ProxyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.forwarder.Forward(r.Context(), req)
	if err != nil {
		var (
			verr      *proxy.ValidationError
			forbidden *proxy.ForbiddenHostError
			terr      *proxy.TransportError
		)
		switch {
		case errors.As(err, &verr):
			httputil.WriteError(w, http.StatusBadRequest, verr.Error())
		case errors.As(err, &forbidden):
			h.record(r, ActionProxyDenied, req.Method, forbidden.Host, 0)
			httputil.WriteError(w, http.StatusForbidden, forbidden.Error())
		case errors.As(err, &terr):
			slog.WarnContext(r.Context(), "Upstream call failed",
				logging.UpstreamHost(terr.Host),
				logging.Error(terr.Err),
			)
			h.record(r, ActionProxyForward, req.Method, terr.Host, 0)
			httputil.WriteError(w, http.StatusInternalServerError, terr.Error())
		default:
			slog.ErrorContext(r.Context(), "Proxy failed", logging.Error(err))
			httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.record(r, ActionProxyForward, req.Method, hostOf(req.URL), resp.Status)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *ProxyHandler) record(r *http.Request, action, method, host string, status int) {
	if method == "" {
		method = http.MethodGet
	}
	detail := map[string]any{"method": method, "host": host}
	if status != 0 {
		detail["status"] = status
	}
	data, _ := json.Marshal(detail)
	h.trail.Record(r.Context(), models.AuditEvent{Action: action, Actor: auth.Actor(r), Detail: data})
}

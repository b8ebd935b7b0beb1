package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/numo-systems/numo-admin/common/httputil"
	"github.com/numo-systems/numo-admin/common/messaging"
	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/repository"
)

// AuditSourceHeader tells clients whether a listing came from the durable
// store or the fallback buffer.
const AuditSourceHeader = "X-Audit-Source"

type AuditHandler struct {
	trail *audit.Trail
}

func NewAuditHandler(trail *audit.Trail) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// Create handles POST /api/audit. Sink failures never fail the request.
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.AuditRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	action := strings.TrimSpace(req.Action)
	if action == "" {
		httputil.WriteError(w, http.StatusBadRequest, "action is required")
		return
	}
	if !messaging.ValidAction(action) {
		httputil.WriteError(w, http.StatusBadRequest, "action must be dot-separated letters, digits, '_' or '-'")
		return
	}
	// jsonb cannot store NUL, so such a detail would only reach the fallback.
	if containsNUL(req.Detail) {
		httputil.WriteError(w, http.StatusBadRequest, "detail must not contain NUL characters")
		return
	}

	event := models.AuditEvent{Action: action, Detail: req.Detail, Actor: auth.Actor(r)}
	if id, ok := auth.IdentityFromContext(r.Context()); ok && id.UserID != 0 {
		userID := id.UserID
		event.ActorID = &userID
	}
	h.trail.Record(r.Context(), event)

	httputil.WriteJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// List handles GET /api/audit?limit=N.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := httputil.ParseIntParam(r.URL.Query().Get("limit"), audit.DefaultListLimit)
	limit = min(limit, repository.MaxAuditList)

	events, source := h.trail.List(r.Context(), limit)
	w.Header().Set(AuditSourceHeader, string(source))
	httputil.WriteJSON(w, http.StatusOK, events)
}

// Clear handles DELETE /api/audit.
func (h *AuditHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.trail.Clear(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

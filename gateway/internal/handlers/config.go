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
	"github.com/numo-systems/numo-admin/gateway/internal/upstream"
)

const ActionConfigUpdate = "config.update"

type ConfigHandler struct {
	store *upstream.Store
	trail *audit.Trail
}

func NewConfigHandler(store *upstream.Store, trail *audit.Trail) *ConfigHandler {
	return &ConfigHandler{store: store, trail: trail}
}

// Get handles GET /api/config.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Get())
}

// Update handles POST /api/config. Fields absent from the body are kept.
func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.UpstreamPatch
	if err := httputil.DecodeJSON(w, r, &patch); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings, err := h.store.Update(patch)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to update upstream config", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save configuration")
		return
	}

	detail, _ := json.Marshal(map[string][]string{"fields": patchedFields(patch)})
	h.trail.Record(r.Context(), models.AuditEvent{Action: ActionConfigUpdate, Actor: auth.Actor(r), Detail: detail})

	httputil.WriteJSON(w, http.StatusOK, settings)
}

// patchedFields names the fields a patch touches. Values are left out so
// tokens never reach the audit trail.
func patchedFields(p models.UpstreamPatch) []string {
	fields := []string{}
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.CoreURL != nil, "coreUrl")
	add(p.DirURL != nil, "dirUrl")
	add(p.DirToken != nil, "dirToken")
	add(p.KeysURL != nil, "keysUrl")
	add(p.LedgerURL != nil, "ledgerUrl")
	add(p.TrustURL != nil, "trustUrl")
	add(p.UseProxy != nil, "useProxy")
	return fields
}

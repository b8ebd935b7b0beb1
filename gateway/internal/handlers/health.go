package handlers

import (
	"net/http"

	"github.com/numo-systems/numo-admin/common/httputil"
)

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp"`
	Missing   []string `json:"missing_required,omitempty"`
}

// health answers GET /health: 503 if any required config key is unset or
// the database is unreachable, 200 otherwise (spec §6, scenario 1).
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)

	missing, err := h.cfg.ConfigStore.ValidateRequired(r.Context())
	if err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy", Message: "database unreachable", Timestamp: now,
		})
		return
	}
	if len(missing) > 0 {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy", Message: "missing required configuration", Timestamp: now, Missing: missing,
		})
		return
	}

	if _, err := h.cfg.DB.ListConfigSettings(r.Context()); err != nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy", Message: "database unreachable", Timestamp: now,
		})
		return
	}

	writeJSON(w, healthResponse{Status: "healthy", Message: "ok", Timestamp: now})
}

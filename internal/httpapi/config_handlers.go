package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cmdarr/cmdarr/internal/apierr"
)

// configGetAll answers GET /api/config/ — every setting, sensitive values
// redacted (spec §6).
func (h *handlers) configGetAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.cfg.ConfigStore.GetAll(r.Context(), true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, settings)
}

// configGetOne answers GET /api/config/{key}.
func (h *handlers) configGetOne(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	v, err := h.cfg.ConfigStore.GetTyped(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"key": key, "value": v})
}

type configPutBody struct {
	Value    string   `json:"value"`
	DataType string   `json:"data_type,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// configPutOne answers PUT /api/config/{key} — 404 on an unknown key,
// 400 on a type-coercion failure (both surfaced by config.Store.Set via
// apierr, rendered by writeError per §7).
func (h *handlers) configPutOne(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var body configPutBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, apierr.Wrap(apierr.CodeValidation, "invalid request body", err))
		return
	}

	if err := h.cfg.ConfigStore.Set(r.Context(), key, body.Value); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"key": key, "status": "updated"})
}

// configValidate answers POST /api/config/validate/ — the missing
// required keys, if any.
func (h *handlers) configValidate(w http.ResponseWriter, r *http.Request) {
	missing, err := h.cfg.ConfigStore.ValidateRequired(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"valid": len(missing) == 0, "missing_required": missing})
}

// configRefresh answers POST /api/config/refresh/ — flush the memo.
func (h *handlers) configRefresh(w http.ResponseWriter, r *http.Request) {
	h.cfg.ConfigStore.Refresh()
	writeJSON(w, map[string]string{"status": "refreshed"})
}

type connectivityResult struct {
	Service string `json:"service"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// configTestConnectivity answers POST /api/config/test-connectivity: call
// TestConnection on every wired service and report per-service results
// (spec §6). A service with no wired checker (not configured) is
// reported, not omitted, so the caller can tell "not configured" apart
// from "configured but unreachable".
func (h *handlers) configTestConnectivity(w http.ResponseWriter, r *http.Request) {
	results := make([]connectivityResult, 0, len(h.cfg.Connectivity))
	for service, checker := range h.cfg.Connectivity {
		if checker == nil {
			results = append(results, connectivityResult{Service: service, Success: false, Message: "not configured"})
			continue
		}
		ok, err := checker.TestConnection(r.Context())
		res := connectivityResult{Service: service, Success: ok, Message: "ok"}
		if err != nil {
			res.Message = "failed"
			res.Error = err.Error()
		} else if !ok {
			res.Message = "unreachable"
		}
		results = append(results, res)
	}
	writeJSON(w, results)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cmdarr/cmdarr/internal/apierr"
)

// errorEnvelope mirrors the teacher's internal/api/errors.ErrorResponse
// shape ({error:{code,message,request_id}}) over apierr.Error, reused
// directly for spec §7's status-code mapping.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      apierr.Code `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
}

// writeError renders err as the §7 JSON error envelope, unwrapping an
// *apierr.Error for its code/status and otherwise reporting a generic
// 500 so a handler can always just `writeError(w, r, err)`.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.Wrap(apierr.CodeInternal, "internal error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode())
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: requestIDFrom(r.Context()),
	}})
}

// writeJSON renders v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

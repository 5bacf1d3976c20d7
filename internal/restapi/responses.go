package restapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kcole93/metroflow-api-sub000/internal/logging"
)

// sendJSON writes a 200 response with a JSON body. Encoding failures are
// logged but not surfaced; headers are already on the wire by then.
func (api *RestAPI) sendJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "encoding response failed", err,
			slog.String("path", r.URL.Path))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// validationErrorResponse reports a client input error as 400 {error}.
func (api *RestAPI) validationErrorResponse(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}

// serverErrorResponse reports an unexpected failure as 500 {error} without
// leaking internals.
func (api *RestAPI) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err,
		slog.String("path", r.URL.Path))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(errorBody{Error: "internal server error"})
}

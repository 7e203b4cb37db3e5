package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error kinds returned in the error envelope, machine-readable.
const (
	errValidation      = "validation"
	errUnauthenticated = "unauthenticated"
	errForbidden       = "forbidden"
	errNotFound        = "not_found"
	errInternal        = "internal"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes the error envelope: a machine-readable kind plus a
// human message. Internal details never reach the client.
func jsonError(w http.ResponseWriter, status int, kind, message string) {
	jsonResponse(w, status, map[string]string{"error": kind, "message": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// internal/app/features/errors/respond.go
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a JSON body of at most limits.MaxRequestBody bytes into
// dst. Every failure is a Validation error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Validation("Request body is too large.")
		case errors.Is(err, io.EOF):
			return apperr.Validation("Request body is required.")
		default:
			return apperr.Validation("Request body is not valid JSON.")
		}
	}
	if dec.More() {
		return apperr.Validation("Request body must contain a single JSON object.")
	}
	return nil
}

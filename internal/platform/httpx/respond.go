package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/adsuite/backoffice/internal/shared"
)

const maxBodyBytes = 1 << 20

// MessageBody is the envelope for every error and acknowledgement response.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Message: msg})
}

// DecodeJSON decodes a bounded JSON request body into target, rejecting unknown
// fields. Failures wrap shared.ErrValidation.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", shared.ErrValidation, err)
	}
	return nil
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// JSON encodes data before writing the status, so an encoding failure
// can still be reported as a 500.
func JSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if data != nil {
		if err := json.NewEncoder(&buf).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

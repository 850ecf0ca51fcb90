package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func Error(w http.ResponseWriter, status int, code string, message string) {
	JSON(w, status, map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// Coded is implemented by the domain error types so handlers can map them to
// an HTTP status and wire code without knowing which package they came from.
type Coded interface {
	error
	ErrorCode() string
	HTTPStatus() int
}

func FromError(w http.ResponseWriter, err error) {
	var coded Coded
	if errors.As(err, &coded) {
		Error(w, coded.HTTPStatus(), coded.ErrorCode(), coded.Error())
		return
	}
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
}

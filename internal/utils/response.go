package utils

import (
	"encoding/json"
	"net/http"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/civicmatch/civic-match/internal/logger"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewErrorBody describes err with the status text of its HTTP status. The
// message of errors that are not AppErrors is not exposed.
func NewErrorBody(err error) (int, ErrorBody) {
	status := apperr.HTTPStatus(err)
	code := apperr.Code(err)
	message := err.Error()
	if code == apperr.CodeInternal {
		message = "Internal server error"
	}
	return status, ErrorBody{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
	})
}

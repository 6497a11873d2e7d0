package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicmatch/civic-match/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestNewErrorBody(t *testing.T) {
	status, body := NewErrorBody(apperr.NewValidation("limit", "must be between 1 and 100"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, ErrorBody{
		Error:   "Bad Request",
		Message: "invalid parameter 'limit': must be between 1 and 100",
		Code:    "VALIDATION_ERROR",
	}, body)

	status, body = NewErrorBody(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Equal(t, "Internal server error", body.Message)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadGateway, "NETWORK_ERROR", "origin unreachable")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Bad Gateway","message":"origin unreachable","code":"NETWORK_ERROR"}`, rec.Body.String())
}

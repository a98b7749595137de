package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/pongarena/internal/model"
	"github.com/mcoot/pongarena/internal/services/auth"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"self invite", model.ErrSelfInvite, http.StatusBadRequest, CodeSelfInvite},
		{"invite not found", model.ErrInviteNotFound, http.StatusNotFound, CodeInviteNotFound},
		{"wrapped unavailable", fmt.Errorf("bob: %w", model.ErrIdentityUnavailable), http.StatusNotFound, CodeIdentityUnavailable},
		{"not connected", model.ErrNotConnected, http.StatusConflict, CodeNotConnected},
		{"invalid state", model.ErrInvalidState, http.StatusConflict, CodeInvalidState},
		{"bad session", auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{"invalid request", NewInvalidRequestError("nope"), http.StatusBadRequest, CodeInvalidRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := Describe(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, model.ErrAlreadyInMatch)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":{"code":"ALREADY_IN_MATCH","message":"Already in a match"}}`, rec.Body.String())
}

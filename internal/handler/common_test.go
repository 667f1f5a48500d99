package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/service"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", errors.Wrap(service.ErrNotFound, "session"), http.StatusNotFound, "session: not found"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, ""},
		{"invalid state", errors.Wrap(service.ErrInvalidState, "session is completed"), http.StatusUnprocessableEntity, ""},
		{"conflict", errors.Wrap(service.ErrConflict, "busy"), http.StatusConflict, ""},
		{"echo", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized"), http.StatusUnauthorized, "unauthorized"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := errorResponse(tt.err)
			assert.Equal(t, tt.code, code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body["error"])
			}
		})
	}
}

func TestErrorResponseInsufficientFunds(t *testing.T) {
	err := errors.Wrap(&service.InsufficientFundsError{Required: 60, Balance: 30, Shortfall: 30}, "join")
	code, body := errorResponse(err)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, 60, body["required"])
	assert.Equal(t, 30, body["balance"])
	assert.Equal(t, 30, body["shortfall"])
}

func TestValidatorUsesJSONNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&addMinutesRequest{Minutes: 0})

	var ve *service.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "student_id")
	assert.Contains(t, ve.Fields, "course_id")
	assert.Contains(t, ve.Fields, "minutes")
	assert.NotContains(t, ve.Fields, "note")

	assert.NoError(t, v.Validate(&addMinutesRequest{StudentID: "s", CourseID: "c", Minutes: 30}))
}

func TestErrorHandlerWritesJSON(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	ErrorHandler(zap.NewNop())(errors.Wrap(service.ErrConflict, "tutor already has a session in that window"), c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"tutor already has a session in that window: conflict"}`, rec.Body.String())
}

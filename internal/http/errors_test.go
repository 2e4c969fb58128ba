package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/events"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.E(domain.KindUnauthenticated, "", nil), http.StatusUnauthorized},
		{domain.E(domain.KindInvalidToken, "", nil), http.StatusUnauthorized},
		{domain.E(domain.KindExpiredToken, "", nil), http.StatusUnauthorized},
		{domain.E(domain.KindInvalidCode, "", nil), http.StatusUnauthorized},
		{domain.E(domain.KindForbidden, "", nil), http.StatusForbidden},
		{domain.E(domain.KindNotFound, "", nil), http.StatusNotFound},
		{domain.E(domain.KindInvalidInput, "", nil), http.StatusBadRequest},
		{domain.E(domain.KindAlreadyEnrolled, "", nil), http.StatusConflict},
		{domain.E(domain.KindConflict, "", nil), http.StatusConflict},
		{domain.E(domain.KindUnknownEnrollment, "", nil), http.StatusUnprocessableEntity},
		{domain.E(domain.KindProvider, "", errors.New("reset")), http.StatusBadGateway},
		{domain.E(domain.KindUpload, "", errors.New("denied")), http.StatusBadGateway},
		{fmt.Errorf("sign in: %w", domain.E(domain.KindInvalidCode, "", nil)), http.StatusUnauthorized},
		{domain.E(domain.KindDataAccess, "", errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestErrorBodyHidesInternalCauses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	h := NewHandler(Deps{Logger: logger})
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	status, body := h.errorBody(c, domain.E(domain.KindDataAccess, "", errors.New("secret dsn")))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "data access error", body["error"])

	status, body = h.errorBody(c, errors.New("secret dsn"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["error"])

	status, body = h.errorBody(c, events.ErrClosed)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "UNAVAILABLE", body["kind"])
}

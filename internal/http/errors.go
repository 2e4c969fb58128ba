package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/events"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken),
		errors.Is(err, domain.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyEnrolled), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownEnrollment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error", "kind"}. Causes of server-side failures
// are logged, never sent.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.JSON(status, body)
}

func (h *Handler) abort(c *gin.Context, err error) {
	status, body := h.errorBody(c, err)
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) errorBody(c *gin.Context, err error) (int, gin.H) {
	if errors.Is(err, events.ErrClosed) {
		return http.StatusServiceUnavailable, gin.H{"error": "shutting down", "kind": "UNAVAILABLE"}
	}

	kind := domain.KindOf(err)
	status := statusFor(err)

	message := "internal error"
	var de *domain.Error
	if errors.As(err, &de) && kind != domain.KindInternal {
		message = de.PublicMessage()
	}

	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{
			"kind":  kind,
			"route": c.FullPath(),
		}).Error("request error")
	}
	return status, gin.H{"error": message, "kind": kind}
}

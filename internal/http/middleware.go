package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/guard"
	"workorder-tracker/internal/token"
)

const viewerKey = "viewer"

// authenticate resolves the bearer token into the request's viewer. A request
// without an Authorization header proceeds anonymously; a bad token is rejected
// so clients can tell a tampered token from an expired one.
func (h *Handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.Next()
			return
		}

		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			h.abort(c, domain.E(domain.KindInvalidToken, "malformed authorization header", nil))
			return
		}

		claims, err := h.tokens.Validate(strings.TrimSpace(raw))
		if err != nil {
			h.abort(c, err)
			return
		}
		c.Set(viewerKey, claims)
		c.Next()
	}
}

// viewer returns the validated claims of the caller, or nil when anonymous.
func viewer(c *gin.Context) *token.Claims {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.Claims)
	return claims
}

// require runs g against the caller. param names the route parameter holding
// the target resource id; empty means the guard does not look at a resource.
func (h *Handler) require(g guard.Guard, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := guard.Request{Viewer: viewer(c)}
		if param != "" {
			id, err := parseID(c.Param(param))
			if err != nil {
				h.abort(c, err)
				return
			}
			req.ResourceID = id
		}
		if err := g(c.Request.Context(), req); err != nil {
			h.abort(c, err)
			return
		}
		c.Next()
	}
}

// observe logs and records every request once it has been served.
func (h *Handler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		if h.recorder != nil {
			h.recorder.RecordHTTPRequest(c.Request.Method, route, status, elapsed)
		}

		entry := h.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"route":   route,
			"status":  status,
			"elapsed": elapsed.String(),
			"ip":      c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request served")
		}
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.E(domain.KindInvalidInput, "invalid id", nil)
	}
	return id, nil
}

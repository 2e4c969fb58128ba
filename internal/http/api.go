package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"workorder-tracker/internal/events"
	"workorder-tracker/internal/guard"
	"workorder-tracker/internal/service"
	"workorder-tracker/internal/token"
)

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// Subscriber is the read side of the notification bus.
type Subscriber interface {
	Subscribe(ctx context.Context, kind events.Kind) (<-chan events.Event, error)
}

// RequestRecorder observes served requests.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Deps lists the collaborators of the HTTP layer. Limiter, Recorder and
// MetricsHandler are optional.
type Deps struct {
	Auth           service.AuthService
	Users          service.UserService
	Workorders     service.WorkorderService
	Comments       service.CommentService
	Tokens         TokenValidator
	Events         Subscriber
	Limiter        *RateLimiter
	Recorder       RequestRecorder
	MetricsHandler http.Handler
	Logger         logrus.FieldLogger
	// Heartbeat is the idle interval between keep-alive frames on event streams.
	Heartbeat time.Duration
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth       service.AuthService
	users      service.UserService
	workorders service.WorkorderService
	comments   service.CommentService
	tokens     TokenValidator
	events     Subscriber
	limiter    *RateLimiter
	recorder   RequestRecorder
	metrics    http.Handler
	log        logrus.FieldLogger
	heartbeat  time.Duration
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Heartbeat <= 0 {
		deps.Heartbeat = 15 * time.Second
	}
	return &Handler{
		auth:       deps.Auth,
		users:      deps.Users,
		workorders: deps.Workorders,
		comments:   deps.Comments,
		tokens:     deps.Tokens,
		events:     deps.Events,
		limiter:    deps.Limiter,
		recorder:   deps.Recorder,
		metrics:    deps.MetricsHandler,
		log:        deps.Logger,
		heartbeat:  deps.Heartbeat,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(h.observe(), corsMiddleware(), h.authenticate())

	authenticated := h.require(guard.IsAuthenticated, "")
	admin := h.require(guard.IsAdmin, "")
	ownsWorkorder := h.require(guard.Chain(guard.IsAuthenticated, guard.IsOwner(h.workorders.OwnerOf)), "id")
	ownsComment := h.require(guard.Chain(guard.IsAuthenticated, guard.IsOwner(h.comments.OwnerOf)), "id")

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		if h.limiter != nil {
			auth.Use(h.limiter.Middleware())
		}
		auth.POST("/register", h.register)
		auth.POST("/enroll", h.enroll)
		auth.POST("/signin", h.signIn)
		auth.POST("/verify", h.verifyCode)
		auth.POST("/code", h.requestCode)

		api.GET("/me", authenticated, h.currentUser)
		api.PATCH("/me", authenticated, h.updateUser)
		api.POST("/me/verify", authenticated, h.verifyViewerCode)
		api.POST("/me/enroll", authenticated, h.enrollViewer)

		api.GET("/users", authenticated, h.listUsers)
		api.GET("/users/:id", authenticated, h.getUser)
		api.GET("/users/:id/workorders", authenticated, h.listUserWorkorders)
		api.DELETE("/users/:id", admin, h.deleteUser)

		api.GET("/workorders", h.listWorkorders)
		api.GET("/workorders/qr/:qrcode", h.getWorkorderByQRCode)
		api.GET("/workorders/:id", h.getWorkorder)
		api.GET("/workorders/:id/comments", h.listComments)
		api.POST("/workorders", authenticated, h.createWorkorder)
		api.PATCH("/workorders/:id", ownsWorkorder, h.editWorkorder)
		api.DELETE("/workorders/:id", ownsWorkorder, h.deleteWorkorder)
		api.POST("/workorders/:id/comments", authenticated, h.addComment)

		api.DELETE("/comments/:id", ownsComment, h.deleteComment)

		api.GET("/subscriptions/workorders", h.streamWorkorders)

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

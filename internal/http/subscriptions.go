package http

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"workorder-tracker/internal/domain"
	"workorder-tracker/internal/events"
)

// streamWorkorders relays WORKORDER_CREATED events as Server-Sent Events.
// The subscription is bound to the request context, so a disconnecting
// client unregisters itself from the bus.
func (h *Handler) streamWorkorders(c *gin.Context) {
	ch, err := h.events.Subscribe(c.Request.Context(), events.WorkorderCreated)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	// an initial frame commits the headers so clients see the stream open
	c.SSEvent("ready", gin.H{"kind": events.WorkorderCreated})
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			wo, ok := ev.Payload.(domain.Workorder)
			if !ok {
				h.log.WithField("event_id", ev.ID).Warn("unexpected workorder event payload")
				return true
			}
			c.SSEvent("workorderCreated", gin.H{
				"id":           ev.ID,
				"published_at": ev.PublishedAt,
				"workorder":    workorderToResponse(wo),
			})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{})
			return true
		}
	})
}

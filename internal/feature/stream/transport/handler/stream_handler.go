// Package handler provides the SSE transport for the stream feature.
package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"updown_backend/internal/feature/stream/usecase"
	jwtmw "updown_backend/internal/platform/jwt"
)

// testEventDelay is how long after open the diagnostic test event is sent.
const testEventDelay = time.Second

// StreamHandler serves the live event stream.
type StreamHandler struct {
	hub *usecase.Hub
}

// NewStreamHandler creates a new StreamHandler instance.
func NewStreamHandler(hub *usecase.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Stream handles GET /stream. It registers the connection with the hub
// (evicting any previous connection for the same user), sends the
// connection hello and a delayed test event, then relays queued events as
// newline-delimited SSE frames until the client goes away or the hub evicts
// the connection. Heartbeats are written as comment lines so consumers need
// no handler for them.
func (h *StreamHandler) Stream(c *gin.Context) {
	userID := c.GetUint(jwtmw.ContextUserID)

	sub := h.hub.Register(userID)
	defer h.hub.Unregister(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent(usecase.EventConnection, gin.H{
		"user_id":      userID,
		"connected_at": time.Now().UTC(),
	})
	c.Writer.Flush()

	testTimer := time.NewTimer(testEventDelay)
	defer testTimer.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			slog.Debug("stream client disconnected", "user_id", userID, "conn", sub.ID())
			return

		case <-sub.Done():
			// Evicted: a newer connection for this user took over.
			slog.Debug("stream connection evicted", "user_id", userID, "conn", sub.ID())
			return

		case <-testTimer.C:
			c.SSEvent(usecase.EventTest, gin.H{"message": "stream ok"})
			c.Writer.Flush()

		case ev := <-sub.Events():
			if ev.Type == usecase.EventHeartbeat {
				if _, err := c.Writer.WriteString(": ping\n\n"); err != nil {
					return
				}
			} else {
				c.SSEvent(ev.Type, ev.Payload)
			}
			c.Writer.Flush()
		}
	}
}

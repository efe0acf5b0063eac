// Package sse streams per-account progression events to browsers.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/cache"
	"github.com/kasuganosora/dreamrealm/game/progression"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"go.uber.org/zap"
)

const announceChannel = "announce"

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub    cache.PubSub
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, logger: logger, keepalive: 30 * time.Second}
}

// ServeSSE handles GET /sse?token=<jwt>. It must run behind mw.Auth, which
// accepts the token from the query string.
// Each event is named after its progression event type; announcements use
// "announce".
func (h *Handler) ServeSSE(c *gin.Context) {
	accountID := mw.GetAccountID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	userChannel := progression.EventChannel(accountID)
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, userChannel, announceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Int64("account_id", accountID), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"account_id\":%d}\n\n", accountID)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", eventName(msg, userChannel), msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func eventName(msg *cache.Message, userChannel string) string {
	if msg.Channel != userChannel {
		return "announce"
	}
	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.Type == "" {
		return "message"
	}
	return ev.Type
}

// Announce publishes an announcement message to all SSE subscribers.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, announceChannel, message)
}

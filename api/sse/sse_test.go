package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/dreamrealm/cache"
	mw "github.com/kasuganosora/dreamrealm/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chanPubSub hands out a single stream and reports when it is subscribed.
type chanPubSub struct {
	subscribed chan []string
	ch         chan *cache.Message
}

func (p *chanPubSub) Publish(_ context.Context, channel, message string) error {
	p.ch <- &cache.Message{Channel: channel, Payload: message}
	return nil
}

func (p *chanPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *cache.Message, func(), error) {
	p.subscribed <- channels
	return p.ch, func() {}, nil
}

func TestServeSSE_StreamsUserEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ps := &chanPubSub{subscribed: make(chan []string, 1), ch: make(chan *cache.Message, 4)}
	h := NewHandler(ps, zap.NewNop())

	r := gin.New()
	r.GET("/sse", func(c *gin.Context) {
		c.Set(mw.AccountIDKey, int64(7))
		c.Next()
	}, h.ServeSSE)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/sse", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	select {
	case channels := <-ps.subscribed:
		assert.Equal(t, []string{"events:7", "announce"}, channels)
	case <-time.After(time.Second):
		t.Fatal("no subscription")
	}
	ps.ch <- &cache.Message{Channel: "events:7", Payload: `{"type":"gather_finished","data":{"amount":5}}`}
	require.NoError(t, h.Announce(context.Background(), `{"text":"maintenance"}`))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected\ndata: {\"account_id\":7}")
	assert.Contains(t, body, "event: gather_finished\ndata: {\"type\":\"gather_finished\"")
	assert.Contains(t, body, "event: announce\ndata: {\"text\":\"maintenance\"}")
}

func TestEventName(t *testing.T) {
	assert.Equal(t, "announce", eventName(&cache.Message{Channel: "announce", Payload: "{}"}, "events:1"))
	assert.Equal(t, "message", eventName(&cache.Message{Channel: "events:1", Payload: "oops"}, "events:1"))
	assert.Equal(t, "deposit", eventName(&cache.Message{Channel: "events:1", Payload: `{"type":"deposit"}`}, "events:1"))
}

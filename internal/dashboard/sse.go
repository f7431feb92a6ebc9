package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ChangeFeed fans reconciler change signals out to SSE subscribers.
// Each subscriber holds a buffered channel; a slow client coalesces to
// one pending signal instead of blocking the reconciler.
type ChangeFeed struct {
	mu   sync.Mutex
	subs map[chan struct{}]bool
}

func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{subs: map[chan struct{}]bool{}}
}

// Notify wakes every subscriber. Safe to call from any goroutine.
func (f *ChangeFeed) Notify() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *ChangeFeed) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs[ch] = true
	f.mu.Unlock()
	return ch
}

func (f *ChangeFeed) unsubscribe(ch chan struct{}) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// handleChanges streams a "change" SSE event whenever the shop state
// moves, with periodic heartbeats so proxies keep the stream open.
func handleChanges(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		c.Writer.Flush()

		if deps.Feed == nil {
			return
		}
		ch := deps.Feed.subscribe()
		defer deps.Feed.unsubscribe(ch)

		heartbeat := time.NewTicker(15 * time.Second)
		defer heartbeat.Stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case <-ch:
				writeSSE(c.Writer, "change", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE emits one named SSE event with a JSON payload.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}

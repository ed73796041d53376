package vision

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-hexapod/internal/log"
)

// Feed connects to the detector daemon's websocket stream and pumps raw
// frames into the adapter. The detector runs as a separate process on the
// NPU; this side only normalizes.
type Feed struct {
	url     string
	adapter *Adapter
}

// NewFeed creates a feed for the given detector websocket URL,
// e.g. ws://127.0.0.1:9040/ws/detections.
func NewFeed(url string, adapter *Adapter) *Feed {
	return &Feed{url: url, adapter: adapter}
}

// Run reads frames until the context is canceled, redialing on any
// connection error. While disconnected the adapter's staleness fail-safe
// covers for us.
func (f *Feed) Run(ctx context.Context) {
	for {
		if err := f.consume(ctx); err != nil {
			log.Warn("detector feed disconnected", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info("detector feed connected", "url", f.url)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame RawFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn("malformed detector frame", "error", err)
			continue
		}
		if frame.Timestamp.IsZero() {
			frame.Timestamp = time.Now()
		}
		f.adapter.Ingest(frame)
	}
}

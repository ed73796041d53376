package motion

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/brain"
)

// WSSink streams decisions to the gait daemon over a persistent websocket.
// Preferred when driving the daemon from another host: it avoids per-command
// connection setup at the 2 Hz tick rate.
type WSSink struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSink connects to the gait daemon websocket endpoint,
// e.g. ws://hexapod.local:9000/ws/gait.
func NewWSSink(url string) (*WSSink, error) {
	s := &WSSink{url: url}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *WSSink) connect() error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(s.url, nil)
	if err != nil {
		return fmt.Errorf("gait websocket dial failed: %w", err)
	}
	s.conn = conn
	return nil
}

// Execute writes one decision frame. On a write error the connection is
// redialed once and the command retried; the caller sees an error only if
// the retry also fails.
func (s *WSSink) Execute(d brain.Decision) error {
	payload := struct {
		Action    string  `json:"action"`
		Magnitude float64 `json:"magnitude"`
	}{string(d.Action), d.Magnitude}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gait command: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err == nil {
		return nil
	}

	log.Warn("gait websocket write failed, reconnecting")
	s.conn.Close()
	if err := s.connect(); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// DaemonStatus reports connection state; the websocket transport has no
// status query.
func (s *WSSink) DaemonStatus() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return "disconnected", nil
	}
	return "connected", nil
}

// Close shuts the websocket down.
func (s *WSSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

var _ Sink = (*WSSink)(nil)

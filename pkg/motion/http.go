package motion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teslashibe/go-hexapod/internal/httpc"
	"github.com/teslashibe/go-hexapod/pkg/brain"
)

// HTTPSink implements Sink against the gait daemon's HTTP API. This is the
// primary backend on the robot itself, where the daemon runs on localhost.
type HTTPSink struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPSink creates an HTTP-based motion sink. A movement command that
// takes longer than two seconds to acknowledge is worse than a dropped one,
// so the client timeout is short.
func NewHTTPSink(baseURL string) *HTTPSink {
	return &HTTPSink{
		BaseURL: baseURL,
		client:  httpc.NewClient(2 * time.Second),
	}
}

// Execute posts one decision to the gait daemon.
func (s *HTTPSink) Execute(d brain.Decision) error {
	payload := map[string]interface{}{
		"action":    string(d.Action),
		"magnitude": d.Magnitude,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gait command: %w", err)
	}

	resp, err := s.client.Post(s.BaseURL+"/api/gait/execute", "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("gait command failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gait daemon rejected command: status %d", resp.StatusCode)
	}
	return nil
}

// DaemonStatus returns the gait daemon state string.
func (s *HTTPSink) DaemonStatus() (string, error) {
	resp, err := s.client.Get(s.BaseURL + "/api/daemon/status")
	if err != nil {
		return "", fmt.Errorf("daemon status request failed: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return status.State, nil
}

// Close is a no-op for the HTTP backend.
func (s *HTTPSink) Close() error { return nil }

var _ Sink = (*HTTPSink)(nil)

package vision

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teslashibe/go-hexapod/internal/httpc"
)

// Camera captures JPEG stills from the detector daemon's camera endpoint.
// It satisfies the scene scheduler's frame source.
type Camera struct {
	BaseURL string
	client  *http.Client
}

// NewCamera creates a camera client for the detector daemon,
// e.g. http://127.0.0.1:9040.
func NewCamera(baseURL string) *Camera {
	return &Camera{
		BaseURL: baseURL,
		client:  httpc.NewClient(5 * time.Second),
	}
}

// CaptureJPEG fetches one frame.
func (c *Camera) CaptureJPEG() ([]byte, error) {
	resp, err := c.client.Get(c.BaseURL + "/api/camera/frame")
	if err != nil {
		return nil, fmt.Errorf("camera capture failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("camera read failed: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("camera returned empty frame")
	}
	return data, nil
}

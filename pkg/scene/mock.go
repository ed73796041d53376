package scene

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// AnalyzeFunc is called when Analyze is invoked.
	AnalyzeFunc func(ctx context.Context, jpeg []byte) (*Result, error)

	mu    sync.Mutex
	calls int
}

// NewMock creates a mock that returns a fixed living-room scene.
func NewMock() *Mock {
	return &Mock{
		AnalyzeFunc: func(ctx context.Context, jpeg []byte) (*Result, error) {
			return &Result{
				Objects: []Object{
					{Name: "couch", Position: PositionLeft, Distance: "far", Confidence: 0.9},
				},
				SceneType:      "living_room",
				SafeDirections: []string{"forward", "right"},
				Description:    "A mock living room",
				Confidence:     0.9,
			}, nil
		},
	}
}

// Analyze calls AnalyzeFunc and counts the call.
func (m *Mock) Analyze(ctx context.Context, jpeg []byte) (*Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.AnalyzeFunc(ctx, jpeg)
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Calls returns how many times Analyze was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// StaticFrames is a FrameSource returning a fixed JPEG payload.
type StaticFrames []byte

// CaptureJPEG returns the fixed payload.
func (f StaticFrames) CaptureJPEG() ([]byte, error) {
	return f, nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)

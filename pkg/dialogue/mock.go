package dialogue

import (
	"context"
	"sync"

	"github.com/teslashibe/go-hexapod/pkg/scene"
)

// Mock implements Provider for testing.
type Mock struct {
	// RespondFunc is called when Respond is invoked.
	RespondFunc func(ctx context.Context, userText string, sc *scene.Result) (*Response, error)

	mu    sync.Mutex
	calls []string
}

// NewMock creates a mock with a fixed cheerful reply.
func NewMock() *Mock {
	return &Mock{
		RespondFunc: func(ctx context.Context, userText string, sc *scene.Result) (*Response, error) {
			return &Response{Text: "How interesting!", Emotion: "happy"}, nil
		},
	}
}

// Respond calls RespondFunc and records the user text.
func (m *Mock) Respond(ctx context.Context, userText string, sc *scene.Result) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, userText)
	m.mu.Unlock()
	return m.RespondFunc(ctx, userText, sc)
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Calls returns the recorded user texts.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)

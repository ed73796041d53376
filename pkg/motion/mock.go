package motion

import (
	"sync"

	"github.com/teslashibe/go-hexapod/pkg/brain"
)

// Mock records executed decisions for tests.
type Mock struct {
	mu       sync.Mutex
	executed []brain.Decision

	// Err, when set, is returned by every Execute call.
	Err error
}

// NewMock creates a recording mock sink.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Execute(d brain.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.executed = append(m.executed, d)
	return nil
}

func (m *Mock) DaemonStatus() (string, error) { return "mock", nil }

func (m *Mock) Close() error { return nil }

// Executed returns a copy of all recorded decisions.
func (m *Mock) Executed() []brain.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]brain.Decision, len(m.executed))
	copy(out, m.executed)
	return out
}

// Last returns the most recent decision, or false if none were executed.
func (m *Mock) Last() (brain.Decision, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.executed) == 0 {
		return brain.Decision{}, false
	}
	return m.executed[len(m.executed)-1], true
}

var _ Sink = (*Mock)(nil)

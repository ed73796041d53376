// Package motion delivers fused movement decisions to the hexapod's gait
// daemon. It defines small, focused interfaces so consumers depend only on
// what they use: the fusion loop needs Execute, the dashboard also wants
// daemon status.
package motion

import "github.com/teslashibe/go-hexapod/pkg/brain"

// Executor sends a single movement command. This is the minimal interface
// the fusion loop depends on.
type Executor interface {
	Execute(d brain.Decision) error
}

// StatusReporter queries the gait daemon's health.
type StatusReporter interface {
	DaemonStatus() (string, error)
}

// Sink is the composite interface for a full motion backend.
type Sink interface {
	Executor
	StatusReporter
	Close() error
}

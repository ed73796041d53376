package brain

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

// Mode selects how much control the loop has over the robot.
type Mode string

const (
	// ModeManual emits nothing; the user drives.
	ModeManual Mode = "manual"
	// ModeAssisted emits only safety stops on top of user control.
	ModeAssisted Mode = "assisted"
	// ModeAutonomous emits every decision.
	ModeAutonomous Mode = "autonomous"
)

// SnapshotSource yields the newest navigation snapshot.
type SnapshotSource interface {
	Latest() *vision.Snapshot
}

// SceneSource yields the newest cached scene result, nil if none yet.
type SceneSource interface {
	Latest() *scene.Result
}

// GoalSource supplies the current goal each tick. The agent implements
// this; it may mutate its goal state based on what it sees.
type GoalSource interface {
	CurrentGoal(now time.Time, snap *vision.Snapshot, sc *scene.Result) *Goal
}

// Sink receives decisions. Execution is fire-and-forget from the loop's
// perspective.
type Sink interface {
	Execute(d Decision) error
}

// Observer is notified of every emitted decision.
type Observer interface {
	OnDecision(now time.Time, d Decision)
}

// Loop drives the fusion engine at a fixed tick rate. It only ever reads
// the snapshot and scene accessors; remote calls happen elsewhere.
type Loop struct {
	engine *Engine
	snaps  SnapshotSource
	scenes SceneSource
	goals  GoalSource
	sink   Sink

	mode atomic.Value // Mode

	mu       sync.RWMutex
	observer Observer
	last     Decision

	ticks atomic.Uint64
}

// NewLoop wires the fusion engine to its inputs and the command sink.
// goals may be nil (implicit explore forever).
func NewLoop(engine *Engine, snaps SnapshotSource, scenes SceneSource, goals GoalSource, sink Sink) *Loop {
	l := &Loop{
		engine: engine,
		snaps:  snaps,
		scenes: scenes,
		goals:  goals,
		sink:   sink,
	}
	l.mode.Store(ModeAutonomous)
	return l
}

// SetObserver registers the decision observer (typically the agent).
func (l *Loop) SetObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observer = o
}

// SetMode switches between manual, assisted and autonomous control.
func (l *Loop) SetMode(m Mode) {
	l.mode.Store(m)
	log.Info("control mode changed", "mode", string(m))
}

// Mode returns the active control mode.
func (l *Loop) Mode() Mode {
	return l.mode.Load().(Mode)
}

// LastDecision returns the most recently emitted decision.
func (l *Loop) LastDecision() Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

// Ticks returns how many ticks have run.
func (l *Loop) Ticks() uint64 {
	return l.ticks.Load()
}

// Tick runs one fusion cycle at the given time. Exposed for tests; Run
// calls it on the configured cadence.
func (l *Loop) Tick(now time.Time) {
	l.ticks.Add(1)

	mode := l.Mode()
	if mode == ModeManual {
		return
	}

	snap := l.snaps.Latest()
	var sc *scene.Result
	if l.scenes != nil {
		sc = l.scenes.Latest()
	}

	var goal *Goal
	if l.goals != nil {
		goal = l.goals.CurrentGoal(now, snap, sc)
	}

	d := l.engine.Decide(now, snap, sc, goal)

	// Assisted mode passes through only the safety override.
	if mode == ModeAssisted && d.Reason != ReasonSafetyStop {
		return
	}

	l.mu.Lock()
	l.last = d
	observer := l.observer
	l.mu.Unlock()

	if observer != nil {
		observer.OnDecision(now, d)
	}

	if err := l.sink.Execute(d); err != nil {
		log.Warn("command sink error", "action", string(d.Action), "error", err)
	}

	if d.Reason == ReasonSafetyStop {
		log.Warn("safety stop", "alerts", snap.CriticalAlerts)
	} else {
		log.Debug("decision", "action", string(d.Action), "reason", string(d.Reason), "magnitude", d.Magnitude)
	}
}

// Run ticks until the context is canceled.
func (l *Loop) Run(ctx context.Context) {
	rate := l.engine.Config().TickRate
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	log.Info("fusion loop started",
		"rate", rate,
		"personality", l.engine.Config().Personality,
	)

	for {
		select {
		case <-ctx.Done():
			// Leave the robot stationary on shutdown.
			l.sink.Execute(Decision{Action: ActionStop, Reason: ReasonNoSafePath})
			return
		case <-ticker.C:
			l.Tick(time.Now())
		}
	}
}

package brain

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

// fixedSnaps serves one snapshot forever.
type fixedSnaps struct{ snap *vision.Snapshot }

func (f fixedSnaps) Latest() *vision.Snapshot { return f.snap }

// recordingSink collects executed decisions.
type recordingSink struct {
	mu       sync.Mutex
	executed []Decision
}

func (r *recordingSink) Execute(d Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executed = append(r.executed, d)
	return nil
}

func (r *recordingSink) all() []Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Decision, len(r.executed))
	copy(out, r.executed)
	return out
}

// recordingObserver collects observed decisions.
type recordingObserver struct {
	mu   sync.Mutex
	seen []Decision
}

func (r *recordingObserver) OnDecision(now time.Time, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, d)
}

func newTestLoop(snap *vision.Snapshot, sink Sink) *Loop {
	engine := NewEngineWithRand(DefaultConfig(), rand.New(rand.NewSource(1)))
	return NewLoop(engine, fixedSnaps{snap}, nil, nil, sink)
}

func TestLoop_AutonomousExecutesDecisions(t *testing.T) {
	sink := &recordingSink{}
	l := newTestLoop(clearSnapshot(), sink)

	l.Tick(time.Now())

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("executed: got %d decisions, want 1", len(got))
	}
	if got[0].Action != ActionForward {
		t.Errorf("action: got %s, want FORWARD", got[0].Action)
	}
	if l.LastDecision() != got[0] {
		t.Error("LastDecision should match the executed decision")
	}
	if l.Ticks() != 1 {
		t.Errorf("ticks: got %d, want 1", l.Ticks())
	}
}

func TestLoop_ManualEmitsNothing(t *testing.T) {
	sink := &recordingSink{}
	l := newTestLoop(alertSnapshot(), sink)
	l.SetMode(ModeManual)

	for i := 0; i < 5; i++ {
		l.Tick(time.Now())
	}

	if n := len(sink.all()); n != 0 {
		t.Errorf("manual mode executed %d decisions, want 0", n)
	}
}

func TestLoop_AssistedPassesOnlySafetyStops(t *testing.T) {
	sink := &recordingSink{}
	l := newTestLoop(clearSnapshot(), sink)
	l.SetMode(ModeAssisted)

	l.Tick(time.Now())
	if n := len(sink.all()); n != 0 {
		t.Fatalf("assisted mode leaked a movement decision")
	}

	// Swap in an alert; now the stop must pass through.
	l.snaps = fixedSnaps{alertSnapshot()}
	l.Tick(time.Now())

	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("executed: got %d, want 1 safety stop", len(got))
	}
	if got[0].Reason != ReasonSafetyStop {
		t.Errorf("reason: got %s, want SAFETY_STOP", got[0].Reason)
	}
}

func TestLoop_ObserverSeesEveryEmittedDecision(t *testing.T) {
	sink := &recordingSink{}
	obs := &recordingObserver{}
	l := newTestLoop(clearSnapshot(), sink)
	l.SetObserver(obs)

	for i := 0; i < 3; i++ {
		l.Tick(time.Now())
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.seen) != 3 {
		t.Errorf("observer saw %d decisions, want 3", len(obs.seen))
	}
}

func TestLoop_SceneSourceOptional(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngineWithRand(DefaultConfig(), rand.New(rand.NewSource(1)))
	var scenes SceneSource // never wired
	l := NewLoop(engine, fixedSnaps{clearSnapshot()}, scenes, nil, sink)

	l.Tick(time.Now()) // must not panic

	if len(sink.all()) != 1 {
		t.Error("loop should run without a scene source")
	}
}

func TestLoop_GoalSourceDrivesDecision(t *testing.T) {
	sink := &recordingSink{}
	engine := NewEngineWithRand(DefaultConfig(), rand.New(rand.NewSource(1)))

	goals := goalFunc(func(now time.Time, snap *vision.Snapshot, sc *scene.Result) *Goal {
		return &Goal{Kind: GoalRest}
	})
	l := NewLoop(engine, fixedSnaps{clearSnapshot()}, nil, goals, sink)

	l.Tick(time.Now())

	got := sink.all()
	if len(got) != 1 || got[0].Reason != ReasonRest {
		t.Errorf("got %+v, want a GOAL_REST stop", got)
	}
}

// goalFunc adapts a function to GoalSource.
type goalFunc func(time.Time, *vision.Snapshot, *scene.Result) *Goal

func (f goalFunc) CurrentGoal(now time.Time, snap *vision.Snapshot, sc *scene.Result) *Goal {
	return f(now, snap, sc)
}

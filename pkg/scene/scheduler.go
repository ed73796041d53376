package scene

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
)

// FrameSource supplies the camera frame sent with a scene query.
type FrameSource interface {
	CaptureJPEG() ([]byte, error)
}

// SchedulerConfig holds tunable parameters for scene query scheduling.
type SchedulerConfig struct {
	// Interval is the base time between periodic queries.
	Interval time.Duration

	// Timeout bounds each remote call.
	Timeout time.Duration

	// BackoffAfter is how many consecutive failures trigger backoff.
	BackoffAfter int

	// BackoffCap limits the doubled interval.
	BackoffCap time.Duration

	// PollEvery is how often the run loop re-evaluates triggers.
	PollEvery time.Duration
}

// DefaultSchedulerConfig returns production defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     5 * time.Second,
		Timeout:      10 * time.Second,
		BackoffAfter: 3,
		BackoffCap:   60 * time.Second,
		PollEvery:    250 * time.Millisecond,
	}
}

// Scheduler decides when to dispatch a scene query and owns the
// at-most-one-in-flight invariant. Queries run in background goroutines;
// the decision loop never waits on them.
//
// Trigger policy, first match wins:
//  1. a pending manual request
//  2. the (possibly backed-off) interval has elapsed
//  3. the event trigger is armed (detector scene confidence low)
//
// A trigger firing while a query is in flight is dropped, not queued; a
// manual request in flight reuses the result of the outstanding call.
type Scheduler struct {
	cfg      SchedulerConfig
	provider Provider
	cache    *Cache
	frames   FrameSource

	// armed reports the event trigger, typically vision.Adapter.SceneQueryArmed.
	armed func() bool

	inFlight atomic.Bool
	manual   atomic.Bool

	mu        sync.Mutex
	lastDone  time.Time     // when the last attempt finished
	interval  time.Duration // current interval, doubled under backoff
	failures  int           // consecutive failures
	everDone  bool

	// Stats
	calls      atomic.Uint64
	callErrors atomic.Uint64
}

// NewScheduler creates a scene query scheduler.
// armed may be nil if no event trigger is wired.
func NewScheduler(cfg SchedulerConfig, provider Provider, cache *Cache, frames FrameSource, armed func() bool) *Scheduler {
	if armed == nil {
		armed = func() bool { return false }
	}
	return &Scheduler{
		cfg:      cfg,
		provider: provider,
		cache:    cache,
		frames:   frames,
		armed:    armed,
		interval: cfg.Interval,
	}
}

// RequestQuery registers a manual query. If a query is already in flight
// its result will serve this request too; no second call is made.
func (s *Scheduler) RequestQuery() {
	s.manual.Store(true)
}

// Querying reports whether a query is currently in flight.
func (s *Scheduler) Querying() bool {
	return s.inFlight.Load()
}

// Stats returns total and failed call counts.
func (s *Scheduler) Stats() (calls, failures uint64) {
	return s.calls.Load(), s.callErrors.Load()
}

// Interval returns the current (possibly backed-off) query interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ScheduleIfDue dispatches a query if a trigger fires and none is in
// flight. It returns true if a query was started. Safe to call from a
// single goroutine (the run loop).
func (s *Scheduler) ScheduleIfDue(now time.Time) bool {
	if s.inFlight.Load() {
		return false
	}

	if !s.due(now) {
		return false
	}

	frame, err := s.frames.CaptureJPEG()
	if err == nil && len(frame) == 0 {
		err = ErrNoFrame
	}
	if err != nil {
		log.Warn("scene query skipped, no frame", "error", err)
		return false
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return false
	}

	go s.query(frame)
	return true
}

// due evaluates the trigger policy in order.
func (s *Scheduler) due(now time.Time) bool {
	if s.manual.Load() {
		return true
	}

	s.mu.Lock()
	elapsed := now.Sub(s.lastDone)
	interval := s.interval
	everDone := s.everDone
	s.mu.Unlock()

	if !everDone || elapsed >= interval {
		return true
	}

	return s.armed()
}

// query performs one remote call. Runs in its own goroutine.
func (s *Scheduler) query(frame []byte) {
	defer s.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	s.calls.Add(1)
	result, err := s.provider.Analyze(ctx, frame)

	// The outstanding call satisfies any manual request made meanwhile.
	s.manual.Store(false)

	if err != nil {
		s.onFailure(err)
		return
	}
	s.OnResult(result)
}

// OnResult stores a completed result in the cache and resets backoff.
func (s *Scheduler) OnResult(r *Result) {
	if r == nil {
		return
	}
	if r.FetchedAt.IsZero() {
		r.FetchedAt = time.Now()
	}
	s.cache.Put(r)

	s.mu.Lock()
	s.lastDone = time.Now()
	s.everDone = true
	s.failures = 0
	s.interval = s.cfg.Interval
	s.mu.Unlock()

	log.Debug("scene cached",
		"scene_type", r.SceneType,
		"objects", len(r.Objects),
		"confidence", r.Confidence,
	)
}

// onFailure leaves the cache untouched and applies backoff after
// consecutive failures. A stale-but-valid previous result is better
// than no result.
func (s *Scheduler) onFailure(err error) {
	s.callErrors.Add(1)

	s.mu.Lock()
	s.lastDone = time.Now()
	s.everDone = true
	s.failures++
	if s.failures >= s.cfg.BackoffAfter {
		s.interval *= 2
		if s.interval > s.cfg.BackoffCap {
			s.interval = s.cfg.BackoffCap
		}
	}
	failures := s.failures
	interval := s.interval
	s.mu.Unlock()

	log.Warn("scene query failed",
		"error", err,
		"consecutive", failures,
		"interval", interval,
	)
}

// Run evaluates triggers until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollEvery)
	defer ticker.Stop()

	log.Info("scene scheduler started",
		"interval", s.cfg.Interval,
		"timeout", s.cfg.Timeout,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ScheduleIfDue(time.Now())
		}
	}
}

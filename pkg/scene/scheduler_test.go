package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:     5 * time.Second,
		Timeout:      time.Second,
		BackoffAfter: 3,
		BackoffCap:   60 * time.Second,
		PollEvery:    time.Millisecond,
	}
}

// waitIdle blocks until no query is in flight.
func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Querying() {
		if time.Now().After(deadline) {
			t.Fatal("query never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScheduler_FirstTickQueries(t *testing.T) {
	mock := NewMock()
	cache := NewCache()
	s := NewScheduler(testSchedulerConfig(), mock, cache, StaticFrames("jpeg"), nil)

	if !s.ScheduleIfDue(time.Now()) {
		t.Fatal("a scheduler that never queried should query immediately")
	}
	waitIdle(t, s)

	if mock.Calls() != 1 {
		t.Errorf("calls: got %d, want 1", mock.Calls())
	}
	if cache.Latest() == nil {
		t.Error("result should be cached")
	}
}

func TestScheduler_AtMostOneInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	mock := NewMock()
	mock.AnalyzeFunc = func(ctx context.Context, jpeg []byte) (*Result, error) {
		once.Do(func() { close(started) })
		<-release
		return &Result{SceneType: "kitchen"}, nil
	}

	cache := NewCache()
	s := NewScheduler(testSchedulerConfig(), mock, cache, StaticFrames("jpeg"), nil)

	now := time.Now()
	if !s.ScheduleIfDue(now) {
		t.Fatal("first trigger should dispatch")
	}
	<-started

	// Every trigger while the call is outstanding must be dropped.
	s.RequestQuery()
	for i := 0; i < 10; i++ {
		if s.ScheduleIfDue(now.Add(time.Duration(i) * 10 * time.Second)) {
			t.Fatal("second query dispatched while one was in flight")
		}
	}

	close(release)
	waitIdle(t, s)

	if mock.Calls() != 1 {
		t.Errorf("calls: got %d, want exactly 1", mock.Calls())
	}
	// The in-flight call satisfied the manual request.
	if s.manual.Load() {
		t.Error("manual request should be cleared by the completed call")
	}
	if cache.Latest() == nil || cache.Latest().SceneType != "kitchen" {
		t.Error("the single result should update the cache")
	}
}

func TestScheduler_IntervalGate(t *testing.T) {
	mock := NewMock()
	cache := NewCache()
	s := NewScheduler(testSchedulerConfig(), mock, cache, StaticFrames("jpeg"), nil)

	now := time.Now()
	s.ScheduleIfDue(now)
	waitIdle(t, s)

	// Inside the interval: no query.
	if s.ScheduleIfDue(time.Now().Add(2 * time.Second)) {
		t.Error("query dispatched inside the interval")
	}
	// Past the interval: query.
	if !s.ScheduleIfDue(time.Now().Add(6 * time.Second)) {
		t.Error("query not dispatched after the interval elapsed")
	}
	waitIdle(t, s)

	if mock.Calls() != 2 {
		t.Errorf("calls: got %d, want 2", mock.Calls())
	}
}

func TestScheduler_ManualOverridesInterval(t *testing.T) {
	mock := NewMock()
	s := NewScheduler(testSchedulerConfig(), mock, NewCache(), StaticFrames("jpeg"), nil)

	now := time.Now()
	s.ScheduleIfDue(now)
	waitIdle(t, s)

	s.RequestQuery()
	if !s.ScheduleIfDue(time.Now()) {
		t.Error("manual request should bypass the interval gate")
	}
	waitIdle(t, s)

	if mock.Calls() != 2 {
		t.Errorf("calls: got %d, want 2", mock.Calls())
	}
}

func TestScheduler_EventTrigger(t *testing.T) {
	armed := false
	mock := NewMock()
	s := NewScheduler(testSchedulerConfig(), mock, NewCache(), StaticFrames("jpeg"), func() bool { return armed })

	s.ScheduleIfDue(time.Now())
	waitIdle(t, s)

	if s.ScheduleIfDue(time.Now().Add(time.Second)) {
		t.Error("disarmed trigger inside the interval should not query")
	}

	armed = true
	if !s.ScheduleIfDue(time.Now().Add(time.Second)) {
		t.Error("armed trigger should query even inside the interval")
	}
}

func TestScheduler_BackoffDoublesAndCacheSurvives(t *testing.T) {
	mock := NewMock()
	mock.AnalyzeFunc = func(ctx context.Context, jpeg []byte) (*Result, error) {
		return nil, errors.New("api down")
	}
	cache := NewCache()
	good := &Result{SceneType: "kitchen", FetchedAt: time.Now()}
	cache.Put(good)

	s := NewScheduler(testSchedulerConfig(), mock, cache, StaticFrames("jpeg"), nil)

	// Three consecutive failures double the interval.
	for i := 0; i < 3; i++ {
		if !s.ScheduleIfDue(time.Now().Add(time.Duration(i) * 10 * time.Second)) {
			t.Fatalf("failure %d not dispatched", i+1)
		}
		waitIdle(t, s)
	}

	if got := s.Interval(); got != 10*time.Second {
		t.Errorf("interval after 3 failures: got %v, want 10s", got)
	}

	// The stale result stays served throughout.
	if cache.Latest() != good {
		t.Error("failures must not evict the last good result")
	}

	calls, failures := s.Stats()
	if calls != 3 || failures != 3 {
		t.Errorf("stats: got calls=%d failures=%d, want 3/3", calls, failures)
	}
}

func TestScheduler_SuccessResetsBackoff(t *testing.T) {
	fail := true
	mock := NewMock()
	mock.AnalyzeFunc = func(ctx context.Context, jpeg []byte) (*Result, error) {
		if fail {
			return nil, errors.New("api down")
		}
		return &Result{SceneType: "kitchen"}, nil
	}

	s := NewScheduler(testSchedulerConfig(), mock, NewCache(), StaticFrames("jpeg"), nil)

	for i := 0; i < 3; i++ {
		s.ScheduleIfDue(time.Now().Add(time.Duration(i) * 20 * time.Second))
		waitIdle(t, s)
	}
	if s.Interval() == 5*time.Second {
		t.Fatal("interval should be backed off before the recovery")
	}

	fail = false
	s.RequestQuery()
	s.ScheduleIfDue(time.Now())
	waitIdle(t, s)

	if got := s.Interval(); got != 5*time.Second {
		t.Errorf("interval after success: got %v, want 5s", got)
	}
}

func TestScheduler_BackoffCapped(t *testing.T) {
	mock := NewMock()
	mock.AnalyzeFunc = func(ctx context.Context, jpeg []byte) (*Result, error) {
		return nil, errors.New("api down")
	}
	cfg := testSchedulerConfig()
	cfg.BackoffCap = 20 * time.Second
	s := NewScheduler(cfg, mock, NewCache(), StaticFrames("jpeg"), nil)

	for i := 0; i < 8; i++ {
		s.RequestQuery()
		s.ScheduleIfDue(time.Now())
		waitIdle(t, s)
	}

	if got := s.Interval(); got != 20*time.Second {
		t.Errorf("interval should cap at 20s, got %v", got)
	}
}

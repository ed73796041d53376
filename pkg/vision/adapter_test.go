package vision

import (
	"strings"
	"testing"
	"time"
)

func frameAt(ts time.Time, dets ...RawDetection) RawFrame {
	return RawFrame{
		Detections: dets,
		ZoneDepthCm: map[Zone]float64{
			ZoneLeft:   200,
			ZoneCenter: 200,
			ZoneRight:  200,
		},
		SceneConfidence: 0.9,
		Timestamp:       ts,
	}
}

func TestIngest_CriticalInsideStopDistance(t *testing.T) {
	a := NewAdapter(DefaultConfig())

	snap := a.Ingest(frameAt(time.Now(),
		RawDetection{Label: "person", Confidence: 0.95, Zone: ZoneCenter, DistanceCm: 40},
	))

	if !snap.HasAlerts() {
		t.Fatal("expected a critical alert for a person at 40cm")
	}
	if !strings.Contains(snap.CriticalAlerts[0], "person") {
		t.Errorf("alert should name the object: %q", snap.CriticalAlerts[0])
	}
	if !strings.Contains(snap.CriticalAlerts[0], "40cm") {
		t.Errorf("alert should carry the distance: %q", snap.CriticalAlerts[0])
	}
}

func TestIngest_CriticalBeyondStopDistance(t *testing.T) {
	a := NewAdapter(DefaultConfig())

	snap := a.Ingest(frameAt(time.Now(),
		RawDetection{Label: "chair", Confidence: 0.9, Zone: ZoneCenter, DistanceCm: 120},
	))

	if snap.HasAlerts() {
		t.Errorf("chair at 120cm should not alert, got %v", snap.CriticalAlerts)
	}
	if len(snap.Obstacles) != 1 || snap.Obstacles[0].Tier != TierCritical {
		t.Errorf("chair should still be listed as a critical-tier obstacle")
	}
}

func TestIngest_TierAssignment(t *testing.T) {
	a := NewAdapter(DefaultConfig())

	snap := a.Ingest(frameAt(time.Now(),
		RawDetection{Label: "dog", Zone: ZoneLeft, DistanceCm: 100},
		RawDetection{Label: "sports ball", Zone: ZoneRight, DistanceCm: 150, TrackID: 7},
		RawDetection{Label: "potted plant", Zone: ZoneCenter, DistanceCm: 90},
	))

	want := map[string]Tier{
		"dog":          TierWarning,
		"sports ball":  TierTrackable,
		"potted plant": TierNeutral,
	}
	for _, obs := range snap.Obstacles {
		if obs.Tier != want[obs.Label] {
			t.Errorf("%s: got tier %v, want %v", obs.Label, obs.Tier, want[obs.Label])
		}
	}
	if obs := snap.FindTrack(7); obs == nil || obs.Label != "sports ball" {
		t.Error("track 7 should resolve to the sports ball")
	}
}

func TestIngest_CliffDetection(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	now := time.Now()

	a.Ingest(frameAt(now))

	second := frameAt(now.Add(100 * time.Millisecond))
	second.ZoneDepthCm = map[Zone]float64{
		ZoneLeft:   200,
		ZoneCenter: 260, // floor fell away
		ZoneRight:  200,
	}
	snap := a.Ingest(second)

	if !snap.HasAlerts() {
		t.Fatal("expected an edge alert for a 60cm depth jump")
	}
	if !strings.Contains(snap.CriticalAlerts[0], "CENTER") {
		t.Errorf("alert should name the zone: %q", snap.CriticalAlerts[0])
	}
}

func TestIngest_SmallDepthChangeNoCliff(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	now := time.Now()

	a.Ingest(frameAt(now))

	second := frameAt(now.Add(100 * time.Millisecond))
	second.ZoneDepthCm = map[Zone]float64{
		ZoneLeft:   200,
		ZoneCenter: 220, // within the cliff delta
		ZoneRight:  200,
	}
	if snap := a.Ingest(second); snap.HasAlerts() {
		t.Errorf("20cm depth change should not alert, got %v", snap.CriticalAlerts)
	}
}

func TestLatest_StalenessFailSafe(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	now := time.Now()

	a.Ingest(frameAt(now))

	// Fresh: real snapshot, no alerts.
	if snap := a.LatestAt(now.Add(500 * time.Millisecond)); snap.HasAlerts() {
		t.Errorf("fresh snapshot should have no alerts, got %v", snap.CriticalAlerts)
	}

	// Stale: synthetic fail-safe.
	snap := a.LatestAt(now.Add(2 * time.Second))
	if !snap.HasAlerts() {
		t.Fatal("stale feed must fail safe with an alert")
	}
	if snap.CriticalAlerts[0] != AlertVisionLost {
		t.Errorf("got %q, want %q", snap.CriticalAlerts[0], AlertVisionLost)
	}
}

func TestLatest_NothingIngestedFailsSafe(t *testing.T) {
	a := NewAdapter(DefaultConfig())

	snap := a.Latest()
	if len(snap.CriticalAlerts) != 1 || snap.CriticalAlerts[0] != AlertVisionLost {
		t.Errorf("empty adapter should fail safe, got %v", snap.CriticalAlerts)
	}
}

func TestSceneQueryArmed_LowConfidenceStreak(t *testing.T) {
	a := NewAdapter(DefaultConfig())
	now := time.Now()

	low := func(i int) RawFrame {
		f := frameAt(now.Add(time.Duration(i) * 100 * time.Millisecond))
		f.SceneConfidence = 0.3
		return f
	}

	a.Ingest(low(0))
	a.Ingest(low(1))
	if a.SceneQueryArmed() {
		t.Error("two low frames should not arm the trigger yet")
	}
	a.Ingest(low(2))
	if !a.SceneQueryArmed() {
		t.Error("three consecutive low frames should arm the trigger")
	}

	// A confident frame resets the streak.
	a.Ingest(frameAt(now.Add(time.Second)))
	if a.SceneQueryArmed() {
		t.Error("a confident frame should disarm the trigger")
	}
}

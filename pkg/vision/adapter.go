package vision

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-hexapod/internal/log"
)

// Config holds tunable parameters for the detection feed adapter.
type Config struct {
	// StopDistanceCm is the distance under which a critical-tier
	// obstacle forces an immediate stop.
	StopDistanceCm float64

	// CliffDeltaCm is the per-zone depth jump between consecutive frames
	// that is treated as an edge or drop-off.
	CliffDeltaCm float64

	// StalenessWindow is how long the feed may be silent before the
	// adapter fails safe with a VISION_LOST snapshot.
	StalenessWindow time.Duration

	// Tiers maps detector class labels to navigation priority.
	// Labels not present default to TierNeutral.
	Tiers map[string]Tier

	// LowConfidenceFrames is how many consecutive low-scene-confidence
	// frames arm the scene-query event trigger.
	LowConfidenceFrames int

	// LowConfidenceThreshold is the scene-classification confidence
	// below which a frame counts as low.
	LowConfidenceThreshold float64
}

// DefaultConfig returns production defaults for the COCO-class detector.
func DefaultConfig() Config {
	return Config{
		StopDistanceCm:         50,
		CliffDeltaCm:           30,
		StalenessWindow:        time.Second,
		Tiers:                  DefaultTiers(),
		LowConfidenceFrames:    3,
		LowConfidenceThreshold: 0.5,
	}
}

// DefaultTiers returns the default label -> tier table.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		"person":      TierCritical,
		"chair":       TierCritical,
		"couch":       TierCritical,
		"bed":         TierCritical,
		"stairs":      TierCritical,
		"car":         TierWarning,
		"bicycle":     TierWarning,
		"motorcycle":  TierWarning,
		"dog":         TierWarning,
		"cat":         TierWarning,
		"bird":        TierWarning,
		"sports ball": TierTrackable,
		"frisbee":     TierTrackable,
	}
}

// Adapter converts raw detector frames into navigation snapshots.
// It is the single writer of the latest snapshot; any number of readers
// may call Latest concurrently without blocking.
type Adapter struct {
	cfg Config

	latest atomic.Pointer[Snapshot]

	// Previous frame's zone depths for cliff detection. Only the ingest
	// caller touches these.
	prevDepth map[Zone]float64

	lowConfStreak atomic.Int64
	frames        atomic.Uint64
}

// NewAdapter creates a detection feed adapter.
func NewAdapter(cfg Config) *Adapter {
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultTiers()
	}
	return &Adapter{cfg: cfg}
}

// Ingest normalizes one detector frame and publishes it as the latest
// snapshot. It runs in time proportional to the frame size and never
// performs I/O. Ingest must be called from a single goroutine.
func (a *Adapter) Ingest(frame RawFrame) *Snapshot {
	snap := &Snapshot{
		SafeZones: frame.ZoneDepthCm,
		Timestamp: frame.Timestamp,
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	for _, det := range frame.Detections {
		tier := a.cfg.Tiers[det.Label]
		obs := Obstacle{
			Label:      det.Label,
			Confidence: det.Confidence,
			Zone:       det.Zone,
			DistanceCm: det.DistanceCm,
			TrackID:    det.TrackID,
			Tier:       tier,
		}
		snap.Obstacles = append(snap.Obstacles, obs)

		if tier == TierCritical && det.DistanceCm > 0 && det.DistanceCm < a.cfg.StopDistanceCm {
			snap.CriticalAlerts = append(snap.CriticalAlerts,
				fmt.Sprintf("CRITICAL: %s at %.0fcm", det.Label, det.DistanceCm))
		}
	}

	// Cliff detection: a sudden depth jump in any zone means the floor
	// fell away in front of that zone.
	if a.prevDepth != nil {
		for zone, depth := range frame.ZoneDepthCm {
			prev, ok := a.prevDepth[zone]
			if ok && depth-prev > a.cfg.CliffDeltaCm {
				snap.CriticalAlerts = append(snap.CriticalAlerts,
					fmt.Sprintf("CRITICAL: possible edge in %s zone", zone))
			}
		}
	}
	a.prevDepth = frame.ZoneDepthCm

	// Track consecutive low scene-classification confidence for the
	// scene-query event trigger.
	if frame.SceneConfidence > 0 && frame.SceneConfidence < a.cfg.LowConfidenceThreshold {
		a.lowConfStreak.Add(1)
	} else {
		a.lowConfStreak.Store(0)
	}

	a.latest.Store(snap)
	a.frames.Add(1)

	if snap.HasAlerts() {
		log.Warn("critical alerts", "alerts", snap.CriticalAlerts)
	}

	return snap
}

// Latest returns the newest completed snapshot. If the feed has been
// silent past the staleness window (or nothing was ever ingested), it
// returns a synthetic fail-safe snapshot carrying VISION_LOST so that
// downstream logic stops instead of assuming a clear path.
func (a *Adapter) Latest() *Snapshot {
	return a.LatestAt(time.Now())
}

// LatestAt is Latest evaluated against an explicit clock.
func (a *Adapter) LatestAt(now time.Time) *Snapshot {
	snap := a.latest.Load()
	if snap == nil || now.Sub(snap.Timestamp) > a.cfg.StalenessWindow {
		return &Snapshot{
			CriticalAlerts: []string{AlertVisionLost},
			Timestamp:      now,
		}
	}
	return snap
}

// SceneQueryArmed reports whether the detector's scene confidence has
// been low for enough consecutive frames to warrant a remote scene query.
func (a *Adapter) SceneQueryArmed() bool {
	return int(a.lowConfStreak.Load()) >= a.cfg.LowConfidenceFrames
}

// Frames returns the number of frames ingested so far.
func (a *Adapter) Frames() uint64 {
	return a.frames.Load()
}

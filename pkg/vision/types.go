// Package vision normalizes the real-time detector feed into navigation
// snapshots for the decision loop.
//
// The detector itself (Hailo, gocv, anything that emits per-frame detections
// with depth) lives outside this process. This package owns the mapping from
// detector-native classes to navigation priority tiers and the fail-safe
// behavior when the feed goes silent.
package vision

import "time"

// Zone is a coarse horizontal bucket of the camera frame.
type Zone string

const (
	ZoneLeft   Zone = "LEFT"
	ZoneCenter Zone = "CENTER"
	ZoneRight  Zone = "RIGHT"
)

// Tier is the navigation priority of a detected class.
type Tier int

const (
	// TierNeutral detections are informational only.
	TierNeutral Tier = iota
	// TierTrackable detections can be follow targets.
	TierTrackable
	// TierWarning detections should slow the robot down.
	TierWarning
	// TierCritical detections force an immediate stop when close.
	TierCritical
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierWarning:
		return "warning"
	case TierTrackable:
		return "trackable"
	default:
		return "neutral"
	}
}

// RawDetection is a single detection as the external detector reports it.
type RawDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Zone       Zone    `json:"zone"`
	DistanceCm float64 `json:"distance_cm"`
	TrackID    int     `json:"track_id,omitempty"` // 0 = untracked
}

// RawFrame is the per-frame record supplied by the detector collaborator.
type RawFrame struct {
	Detections []RawDetection `json:"detections"`

	// ZoneDepthCm maps each zone to its mean free depth in centimeters.
	// Larger values mean more clearance.
	ZoneDepthCm map[Zone]float64 `json:"zone_depth_cm"`

	// SceneConfidence is the detector's confidence in its own scene
	// classification. Low values over consecutive frames trigger a
	// scene-understanding query.
	SceneConfidence float64 `json:"scene_confidence"`

	Timestamp time.Time `json:"timestamp"`
}

// Obstacle is a normalized detection in a navigation snapshot.
type Obstacle struct {
	Label      string
	Confidence float64
	Zone       Zone
	DistanceCm float64
	TrackID    int
	Tier       Tier
}

// Snapshot is the canonical navigation view of one processed frame.
// Snapshots are immutable once published; consumers always read the newest
// completed one.
type Snapshot struct {
	Obstacles      []Obstacle
	SafeZones      map[Zone]float64 // zone -> clearance in cm
	CriticalAlerts []string
	Timestamp      time.Time
}

// AlertVisionLost is the synthetic alert emitted when the detector feed
// has been silent past the staleness window.
const AlertVisionLost = "VISION_LOST"

// HasAlerts reports whether any critical alert is active.
func (s *Snapshot) HasAlerts() bool {
	return len(s.CriticalAlerts) > 0
}

// Clearance returns the safe distance for a zone, 0 if unknown.
func (s *Snapshot) Clearance(z Zone) float64 {
	if s.SafeZones == nil {
		return 0
	}
	return s.SafeZones[z]
}

// FindTrack returns the obstacle with the given track ID, or nil.
func (s *Snapshot) FindTrack(trackID int) *Obstacle {
	if trackID == 0 {
		return nil
	}
	for i := range s.Obstacles {
		if s.Obstacles[i].TrackID == trackID {
			return &s.Obstacles[i]
		}
	}
	return nil
}

// Nearest returns the closest obstacle with the given label, or nil.
func (s *Snapshot) Nearest(label string) *Obstacle {
	var best *Obstacle
	for i := range s.Obstacles {
		if s.Obstacles[i].Label != label {
			continue
		}
		if best == nil || s.Obstacles[i].DistanceCm < best.DistanceCm {
			best = &s.Obstacles[i]
		}
	}
	return best
}

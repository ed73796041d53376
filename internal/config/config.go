// Package config provides configuration helpers for go-hexapod commands.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default gait daemon configuration.
const (
	DefaultGaitPort = "9030"
	DefaultWebPort  = "8080"
)

// GaitURL returns the gait daemon URL from GAIT_URL env var.
// Falls back to the provided default if not set.
func GaitURL(defaultURL string) string {
	if url := os.Getenv("GAIT_URL"); url != "" {
		return url
	}
	return defaultURL
}

// APIKeyRequired returns the inference API key from the given env var.
// Exits with a usage hint if not set.
func APIKeyRequired(envVar string) string {
	key := os.Getenv(envVar)
	if key == "" {
		fmt.Fprintf(os.Stderr, "Error: %s environment variable is required\n", envVar)
		fmt.Fprintf(os.Stderr, "Usage: %s=sk-... go run ./cmd/hexapod\n", envVar)
		os.Exit(1)
	}
	return key
}

// Env returns the value of an env var or a default.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Brain is the on-disk configuration for the decision loop.
// Zero values mean "use the built-in default".
type Brain struct {
	Personality string `yaml:"personality"` // curious, cautious, chaotic

	// Detection feed
	StopDistanceCm  float64       `yaml:"stop_distance_cm"`
	CliffDeltaCm    float64       `yaml:"cliff_delta_cm"`
	StalenessWindow time.Duration `yaml:"staleness_window"`

	// Scene scheduler
	SceneInterval time.Duration `yaml:"scene_interval"`
	SceneTimeout  time.Duration `yaml:"scene_timeout"`
	BackoffAfter  int           `yaml:"backoff_after"`
	BackoffCap    time.Duration `yaml:"backoff_cap"`

	// Fusion engine
	TickRate        time.Duration `yaml:"tick_rate"`
	MinClearanceCm  float64       `yaml:"min_clearance_cm"`
	ArrivedCm       float64       `yaml:"arrived_cm"`
	FollowMinCm     float64       `yaml:"follow_min_cm"`
	BlockedAfter    int           `yaml:"blocked_after"`
	BlockedCooldown time.Duration `yaml:"blocked_cooldown"`

	// Agent
	InvestigateTimeout time.Duration `yaml:"investigate_timeout"`
	FollowLostTimeout  time.Duration `yaml:"follow_lost_timeout"`
}

// LoadBrain reads a Brain config from a YAML file.
// A missing file is not an error: defaults apply.
func LoadBrain(path string) (*Brain, error) {
	var b Brain
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &b, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &b, nil
}

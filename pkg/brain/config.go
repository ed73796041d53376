package brain

import "time"

// Config holds all tunable parameters for decision fusion.
// Personality presets are parameter bundles over this one struct, not
// different algorithms.
type Config struct {
	// Timing
	TickRate time.Duration // How often a decision is made

	// Clearance thresholds (centimeters)
	MinClearanceCm float64 // Forward requires at least this much in CENTER
	ArrivedCm      float64 // Investigate target counts as reached inside this
	FollowMinCm    float64 // Follow keeps at least this distance

	// Blocked recovery
	BlockedAfter    int           // Consecutive blocked stops before resting
	BlockedCooldown time.Duration // How long a blocked-recovery rest lasts

	// Movement magnitudes
	ForwardSeconds     float64 // FORWARD duration
	BackwardSeconds    float64 // BACKWARD duration
	ExploreTurnDeg     float64 // Explore turn angle
	InvestigateTurnDeg float64 // Turn-toward-target angle while investigating
	FollowTurnDeg      float64 // Turn-toward-target angle while following
	SpinSeconds        float64 // Chaotic spin duration

	// Personality knobs
	Personality     string  // Preset name, for logging and dialogue
	CuriosityChance float64 // Per-tick chance to investigate a new object
	SpinChance      float64 // Per-explore-tick chance of a spontaneous spin
	MinObjectConf   float64 // Scene objects below this never trigger curiosity
}

// DefaultConfig returns the recommended configuration: the curious
// personality the robot ships with.
func DefaultConfig() Config {
	return Config{
		TickRate: 500 * time.Millisecond, // 2 Hz decisions

		MinClearanceCm: 60,
		ArrivedCm:      40,
		FollowMinCm:    80,

		BlockedAfter:    5,
		BlockedCooldown: 5 * time.Second,

		ForwardSeconds:     1.5,
		BackwardSeconds:    1.0,
		ExploreTurnDeg:     45,
		InvestigateTurnDeg: 20,
		FollowTurnDeg:      15,
		SpinSeconds:        1.0,

		Personality:     "curious",
		CuriosityChance: 0.30,
		SpinChance:      0,
		MinObjectConf:   0.6,
	}
}

// CautiousConfig requires more clearance and rests longer when blocked.
func CautiousConfig() Config {
	cfg := DefaultConfig()
	cfg.Personality = "cautious"
	cfg.MinClearanceCm = 90
	cfg.BlockedCooldown = 10 * time.Second
	cfg.CuriosityChance = 0.10
	cfg.ForwardSeconds = 1.0
	return cfg
}

// ChaoticConfig adds spontaneous spins while exploring.
func ChaoticConfig() Config {
	cfg := DefaultConfig()
	cfg.Personality = "chaotic"
	cfg.SpinChance = 0.10
	cfg.ExploreTurnDeg = 60
	return cfg
}

// ConfigFor returns the preset for a personality name. Unknown names get
// the default.
func ConfigFor(name string) Config {
	switch name {
	case "cautious":
		return CautiousConfig()
	case "chaotic":
		return ChaoticConfig()
	default:
		return DefaultConfig()
	}
}

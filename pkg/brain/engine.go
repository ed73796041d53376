package brain

import (
	"math/rand"
	"sync"
	"time"

	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

// tickContext carries one tick's inputs through the rule chain.
type tickContext struct {
	now  time.Time
	snap *vision.Snapshot
	sc   *scene.Result // nil until the first scene query completes
	goal *Goal         // nil means implicit explore
}

// rule is one guard/action pair. Rules are evaluated top to bottom; the
// first one that fires wins.
type rule struct {
	name string
	eval func(*tickContext) (Decision, bool)
}

// Engine fuses navigation, scene and goal state into one decision per
// tick. Decide must be called from a single goroutine; accessors are safe
// from any.
type Engine struct {
	cfg   Config
	rng   *rand.Rand
	rules []rule

	mu         sync.RWMutex
	blocked    int       // consecutive no-safe-direction stops
	restUntil  time.Time // blocked-recovery cooldown end
	lastAction Action
}

// NewEngine creates a fusion engine with the given personality bundle.
func NewEngine(cfg Config) *Engine {
	return NewEngineWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand creates an engine with an explicit random source,
// for deterministic tests.
func NewEngineWithRand(cfg Config, rng *rand.Rand) *Engine {
	e := &Engine{cfg: cfg, rng: rng}
	// The ordering here is the safety invariant. Do not reorder.
	e.rules = []rule{
		{"safety", e.safetyRule},
		{"blocked-recovery", e.blockedRule},
		{"goal", e.goalRule},
	}
	return e
}

// Config returns the active parameter bundle.
func (e *Engine) Config() Config {
	return e.cfg
}

// Decide evaluates the rule chain and returns exactly one decision.
func (e *Engine) Decide(now time.Time, snap *vision.Snapshot, sc *scene.Result, goal *Goal) Decision {
	ctx := &tickContext{now: now, snap: snap, sc: sc, goal: goal}

	var d Decision
	for _, r := range e.rules {
		if dec, ok := r.eval(ctx); ok {
			d = dec
			break
		}
	}

	e.mu.Lock()
	// A stop for lack of a safe direction counts toward blocked
	// recovery; everything else resets the counter.
	switch d.Reason {
	case ReasonSafetyStop, ReasonNoSafePath:
		e.blocked++
	case ReasonBlockedRest:
		// Counter was reset when the rest began.
	default:
		e.blocked = 0
	}
	e.lastAction = d.Action
	e.mu.Unlock()

	return d
}

// BlockedTicks returns the current consecutive blocked-stop count.
func (e *Engine) BlockedTicks() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.blocked
}

// Resting reports whether blocked recovery is cooling down at the given time.
func (e *Engine) Resting(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return now.Before(e.restUntil)
}

// safetyRule stops on any critical alert. No goal can suppress it.
func (e *Engine) safetyRule(ctx *tickContext) (Decision, bool) {
	if ctx.snap != nil && ctx.snap.HasAlerts() {
		return Decision{Action: ActionStop, Reason: ReasonSafetyStop}, true
	}
	return Decision{}, false
}

// blockedRule rests for a fixed cooldown after too many consecutive
// blocked stops, then resumes normal evaluation with the counter reset.
func (e *Engine) blockedRule(ctx *tickContext) (Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.now.Before(e.restUntil) {
		return Decision{Action: ActionStop, Reason: ReasonBlockedRest}, true
	}
	if e.blocked >= e.cfg.BlockedAfter {
		e.restUntil = ctx.now.Add(e.cfg.BlockedCooldown)
		e.blocked = 0
		return Decision{Action: ActionStop, Reason: ReasonBlockedRest}, true
	}
	return Decision{}, false
}

// goalRule dispatches on the goal kind. A nil goal explores.
func (e *Engine) goalRule(ctx *tickContext) (Decision, bool) {
	kind := GoalExplore
	if ctx.goal != nil {
		kind = ctx.goal.Kind
	}

	switch kind {
	case GoalInvestigate:
		return e.investigate(ctx), true
	case GoalFollow:
		return e.follow(ctx), true
	case GoalRest:
		return Decision{Action: ActionStop, Reason: ReasonRest}, true
	default:
		return e.explore(ctx), true
	}
}

// investigate approaches the goal target until it is centered and inside
// the arrived threshold. The agent clears the goal when it observes
// ReasonArrived.
func (e *Engine) investigate(ctx *tickContext) Decision {
	zone, distCm, found := e.locateTarget(ctx, ctx.goal.Target, 0)
	if !found {
		// Target gone from both feeds. Explore; the agent's goal
		// timeout handles a target that never comes back.
		return e.explore(ctx)
	}

	switch zone {
	case vision.ZoneLeft:
		return Decision{Action: ActionTurnLeft, Magnitude: e.cfg.InvestigateTurnDeg, Reason: ReasonInvestigate}
	case vision.ZoneRight:
		return Decision{Action: ActionTurnRight, Magnitude: e.cfg.InvestigateTurnDeg, Reason: ReasonInvestigate}
	}

	// Centered.
	if distCm > 0 && distCm <= e.cfg.ArrivedCm {
		return Decision{Action: ActionStop, Reason: ReasonArrived}
	}
	return Decision{Action: ActionForward, Magnitude: e.cfg.ForwardSeconds, Reason: ReasonInvestigate}
}

// follow keeps the tracked person centered and at a respectful distance.
func (e *Engine) follow(ctx *tickContext) Decision {
	label := ctx.goal.Target
	if label == "" {
		label = "person"
	}
	zone, distCm, found := e.locateTarget(ctx, label, ctx.goal.TrackID)
	if !found {
		// Stand still and wait; the agent drops the goal after the
		// follow-lost timeout.
		return Decision{Action: ActionStop, Reason: ReasonFollowLost}
	}

	switch zone {
	case vision.ZoneLeft:
		return Decision{Action: ActionTurnLeft, Magnitude: e.cfg.FollowTurnDeg, Reason: ReasonFollow}
	case vision.ZoneRight:
		return Decision{Action: ActionTurnRight, Magnitude: e.cfg.FollowTurnDeg, Reason: ReasonFollow}
	}

	if distCm > 0 && distCm > e.cfg.FollowMinCm {
		return Decision{Action: ActionForward, Magnitude: e.cfg.ForwardSeconds, Reason: ReasonFollow}
	}
	return Decision{Action: ActionStop, Reason: ReasonFollow}
}

// explore picks the clearest direction. Scene safe_directions, when
// available, break ties between sides; with no scene result ever fetched
// the choice degrades to navigation zones alone.
func (e *Engine) explore(ctx *tickContext) Decision {
	snap := ctx.snap
	if snap == nil {
		return Decision{Action: ActionStop, Reason: ReasonNoSafePath}
	}

	center := snap.Clearance(vision.ZoneCenter)
	left := snap.Clearance(vision.ZoneLeft)
	right := snap.Clearance(vision.ZoneRight)

	if center >= e.cfg.MinClearanceCm {
		// The one spot personality randomness is allowed: it may
		// replace a safe forward step, never a safety decision.
		if e.cfg.SpinChance > 0 && e.rng.Float64() < e.cfg.SpinChance {
			return Decision{Action: ActionSpin, Magnitude: e.cfg.SpinSeconds, Reason: ReasonChaosSpin}
		}
		return Decision{Action: ActionForward, Magnitude: e.cfg.ForwardSeconds, Reason: ReasonExploreForward}
	}

	if left >= e.cfg.MinClearanceCm || right >= e.cfg.MinClearanceCm {
		turn := ActionTurnLeft
		if right > left {
			turn = ActionTurnRight
		} else if right == left && ctx.sc != nil && !ctx.sc.SafeDirection("left") && ctx.sc.SafeDirection("right") {
			turn = ActionTurnRight
		}
		return Decision{Action: turn, Magnitude: e.cfg.ExploreTurnDeg, Reason: ReasonExploreTurn}
	}

	// Every forward direction is blocked. Back out once; repeated
	// reversing without progress is treated as unsafe and becomes a
	// blocked stop.
	e.mu.RLock()
	last := e.lastAction
	e.mu.RUnlock()
	if last != ActionBackward && last != ActionStop {
		return Decision{Action: ActionBackward, Magnitude: e.cfg.BackwardSeconds, Reason: ReasonExploreBackward}
	}
	return Decision{Action: ActionStop, Reason: ReasonNoSafePath}
}

// locateTarget finds a target in the navigation snapshot first (by track
// ID, then by label), then falls back to the scene result's coarser
// position. Returns zone, distance in cm (0 = unknown) and whether the
// target was seen at all.
func (e *Engine) locateTarget(ctx *tickContext, label string, trackID int) (vision.Zone, float64, bool) {
	if ctx.snap != nil {
		if obs := ctx.snap.FindTrack(trackID); obs != nil {
			return obs.Zone, obs.DistanceCm, true
		}
		if obs := ctx.snap.Nearest(label); obs != nil {
			return obs.Zone, obs.DistanceCm, true
		}
	}

	if ctx.sc != nil {
		if obj := ctx.sc.Find(label); obj != nil {
			dist := 0.0
			if obj.Distance == "near" {
				// The scene model only gives a qualifier; near
				// counts as inside the arrived threshold.
				dist = e.cfg.ArrivedCm
			}
			return positionZone(obj.Position), dist, true
		}
	}

	return vision.ZoneCenter, 0, false
}

// positionZone maps a scene position to a navigation zone.
func positionZone(p scene.Position) vision.Zone {
	switch p {
	case scene.PositionLeft:
		return vision.ZoneLeft
	case scene.PositionRight:
		return vision.ZoneRight
	default:
		return vision.ZoneCenter
	}
}

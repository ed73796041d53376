// Package agent implements the autonomous behavior state machine layered on
// top of decision fusion. The agent selects goals (what the robot wants);
// the fusion engine decides movement (what the robot does this tick). A
// transient safety stop never changes agent state.
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/brain"
	"github.com/teslashibe/go-hexapod/pkg/dialogue"
	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

// State is the agent's operational mode, mirroring the goal kind.
type State string

const (
	StateExploring     State = "exploring"
	StateInvestigating State = "investigating"
	StateFollowing     State = "following"
	StateResting       State = "resting"
)

// Config holds agent timing parameters.
type Config struct {
	// InvestigateTimeout abandons an investigate goal that never
	// reaches its target.
	InvestigateTimeout time.Duration

	// FollowLostTimeout drops a follow goal when the target has been
	// out of sight this long.
	FollowLostTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		InvestigateTimeout: 30 * time.Second,
		FollowLostTimeout:  10 * time.Second,
	}
}

// Agent owns the current goal and session bookkeeping. It implements
// brain.GoalSource and brain.Observer.
type Agent struct {
	cfg      Config
	brainCfg brain.Config
	rng      *rand.Rand

	mu             sync.Mutex
	state          State
	goal           *brain.Goal
	goalID         uuid.UUID
	goalCreated    time.Time
	lastTargetSeen time.Time

	investigated map[string]bool // object names already visited this session

	decisions    uint64
	closeCalls   uint64
	visited      uint64
	start        time.Time
	lastScene    *scene.Result

	// Optional dialogue hookup: the agent comments when it reaches an
	// investigate target.
	talker    dialogue.Provider
	onComment func(text, emotion string)
}

// New creates an agent in the exploring state with no goal.
func New(cfg Config, brainCfg brain.Config) *Agent {
	return NewWithRand(cfg, brainCfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates an agent with an explicit random source, for
// deterministic tests.
func NewWithRand(cfg Config, brainCfg brain.Config, rng *rand.Rand) *Agent {
	return &Agent{
		cfg:          cfg,
		brainCfg:     brainCfg,
		rng:          rng,
		state:        StateExploring,
		investigated: make(map[string]bool),
		start:        time.Now(),
	}
}

// SetDialogue wires an optional dialogue provider and comment callback.
func (a *Agent) SetDialogue(p dialogue.Provider, onComment func(text, emotion string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.talker = p
	a.onComment = onComment
}

// State returns the current agent state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// CurrentGoal implements brain.GoalSource. Called once per fusion tick,
// before the decision; it is where goal timeouts and curiosity fire.
func (a *Agent) CurrentGoal(now time.Time, snap *vision.Snapshot, sc *scene.Result) *brain.Goal {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastScene = sc

	switch a.state {
	case StateInvestigating:
		if now.Sub(a.goalCreated) > a.cfg.InvestigateTimeout {
			log.Info("investigate timed out", "target", a.goal.Target)
			a.clearGoalLocked()
		}

	case StateFollowing:
		if a.followTargetVisible(snap) {
			a.lastTargetSeen = now
		} else if now.Sub(a.lastTargetSeen) > a.cfg.FollowLostTimeout {
			log.Info("follow target lost", "target", a.goal.Target)
			a.clearGoalLocked()
		}

	case StateExploring:
		a.maybeInvestigateLocked(now, sc)
	}

	return a.goal
}

// followTargetVisible checks the navigation snapshot for the follow target.
func (a *Agent) followTargetVisible(snap *vision.Snapshot) bool {
	if snap == nil || a.goal == nil {
		return false
	}
	if snap.FindTrack(a.goal.TrackID) != nil {
		return true
	}
	label := a.goal.Target
	if label == "" {
		label = "person"
	}
	return snap.Nearest(label) != nil
}

// maybeInvestigateLocked rolls the curiosity dice against a new
// qualifying object in the latest scene result.
func (a *Agent) maybeInvestigateLocked(now time.Time, sc *scene.Result) {
	if sc == nil || a.brainCfg.CuriosityChance <= 0 {
		return
	}

	for _, obj := range sc.Objects {
		if obj.Confidence < a.brainCfg.MinObjectConf || a.investigated[obj.Name] {
			continue
		}
		if a.rng.Float64() >= a.brainCfg.CuriosityChance {
			return // one roll per tick
		}
		log.Info("curious about object", "name", obj.Name)
		a.setGoalLocked(now, &brain.Goal{
			Kind:     brain.GoalInvestigate,
			Target:   obj.Name,
			Priority: 6,
		}, StateInvestigating)
		return
	}
}

// OnDecision implements brain.Observer.
func (a *Agent) OnDecision(now time.Time, d brain.Decision) {
	a.mu.Lock()

	a.decisions++

	switch d.Reason {
	case brain.ReasonSafetyStop:
		// Transient override: count it, keep state and goal.
		a.closeCalls++
		a.mu.Unlock()
		return

	case brain.ReasonBlockedRest:
		if a.state != StateResting {
			log.Info("blocked, resting", "prior_state", string(a.state))
			a.state = StateResting
		}
		a.mu.Unlock()
		return

	case brain.ReasonArrived:
		target := ""
		if a.goal != nil {
			target = a.goal.Target
		}
		a.investigated[target] = true
		a.visited++
		a.clearGoalLocked()
		talker := a.talker
		onComment := a.onComment
		sc := a.lastScene
		a.mu.Unlock()

		log.Info("investigate target reached", "target", target)
		if talker != nil {
			go a.comment(talker, onComment, target, sc)
		}
		return
	}

	// A normal movement decision after a rest means the cooldown is
	// over. The world may have changed while parked, so the stale goal
	// is dropped rather than re-attempted.
	if a.state == StateResting {
		a.clearGoalLocked()
	}
	a.mu.Unlock()
}

// comment asks the dialogue model about a reached target. Runs off the
// tick path.
func (a *Agent) comment(talker dialogue.Provider, onComment func(string, string), target string, sc *scene.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := talker.Respond(ctx, fmt.Sprintf("I found a %s. What should I do with it?", target), sc)
	if err != nil {
		log.Warn("dialogue failed", "error", err)
		return
	}
	log.Info("agent comment", "text", resp.Text, "emotion", resp.Emotion)
	if onComment != nil {
		onComment(resp.Text, resp.Emotion)
	}
}

// Follow sets a follow goal from an external command. trackID may be 0
// when only the label is known.
func (a *Agent) Follow(trackID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setGoalLocked(time.Now(), &brain.Goal{
		Kind:     brain.GoalFollow,
		Target:   "person",
		TrackID:  trackID,
		Priority: 8,
	}, StateFollowing)
	a.lastTargetSeen = time.Now()
}

// Investigate sets an investigate goal from an external command.
func (a *Agent) Investigate(target string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setGoalLocked(time.Now(), &brain.Goal{
		Kind:     brain.GoalInvestigate,
		Target:   target,
		Priority: 6,
	}, StateInvestigating)
}

// ClearGoal drops the current goal and resumes exploring. This is the
// explicit "stop following" command.
func (a *Agent) ClearGoal() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearGoalLocked()
}

func (a *Agent) setGoalLocked(now time.Time, g *brain.Goal, s State) {
	// Lower-priority goals never preempt higher ones.
	if a.goal != nil && g.Priority < a.goal.Priority {
		return
	}
	a.goal = g
	a.goalID = uuid.New()
	a.goalCreated = now
	a.state = s
	log.Info("new goal", "kind", string(g.Kind), "target", g.Target, "id", a.goalID.String())
}

func (a *Agent) clearGoalLocked() {
	a.goal = nil
	a.goalID = uuid.Nil
	a.state = StateExploring
}

// Status is a point-in-time view of the agent for the dashboard.
type Status struct {
	State               string  `json:"state"`
	Personality         string  `json:"personality"`
	GoalKind            string  `json:"goal_kind,omitempty"`
	GoalTarget          string  `json:"goal_target,omitempty"`
	GoalID              string  `json:"goal_id,omitempty"`
	Decisions           uint64  `json:"decisions_made"`
	CloseCalls          uint64  `json:"close_calls"`
	ObjectsInvestigated uint64  `json:"objects_investigated"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// Status returns the current agent status.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Status{
		State:               string(a.state),
		Personality:         a.brainCfg.Personality,
		Decisions:           a.decisions,
		CloseCalls:          a.closeCalls,
		ObjectsInvestigated: a.visited,
		UptimeSeconds:       time.Since(a.start).Seconds(),
	}
	if a.goal != nil {
		s.GoalKind = string(a.goal.Kind)
		s.GoalTarget = a.goal.Target
		s.GoalID = a.goalID.String()
	}
	return s
}

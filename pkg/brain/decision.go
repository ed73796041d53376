// Package brain implements the hybrid decision-fusion loop: every tick it
// combines the latest navigation snapshot (fast, local), the cached scene
// result (slow, remote) and the agent's current goal into exactly one
// movement decision.
//
// Rules are evaluated in strict precedence order. Safety overrides cannot be
// suppressed by any goal, and the tick path never performs I/O or touches
// the network.
package brain

// Action is a movement command for the gait layer.
type Action string

const (
	ActionForward   Action = "FORWARD"
	ActionBackward  Action = "BACKWARD"
	ActionTurnLeft  Action = "TURN_LEFT"
	ActionTurnRight Action = "TURN_RIGHT"
	ActionSpin      Action = "SPIN"
	ActionStop      Action = "STOP"
)

// Reason tags a decision for observability.
type Reason string

const (
	// ReasonSafetyStop fires on any critical alert, including VISION_LOST.
	ReasonSafetyStop Reason = "SAFETY_STOP"
	// ReasonBlockedRest is the blocked-recovery cooldown stop.
	ReasonBlockedRest Reason = "BLOCKED_REST"
	// ReasonNoSafePath is a normal stop when no direction clears.
	ReasonNoSafePath Reason = "NO_SAFE_PATH"

	ReasonInvestigate Reason = "GOAL_INVESTIGATE"
	ReasonArrived     Reason = "GOAL_ARRIVED"
	ReasonFollow      Reason = "GOAL_FOLLOW"
	ReasonFollowLost  Reason = "GOAL_FOLLOW_LOST"
	ReasonRest        Reason = "GOAL_REST"

	ReasonExploreForward  Reason = "EXPLORE_FORWARD"
	ReasonExploreTurn     Reason = "EXPLORE_TURN"
	ReasonExploreBackward Reason = "EXPLORE_BACKWARD"
	ReasonChaosSpin       Reason = "CHAOS_SPIN"
)

// Decision is the fusion engine's output for one tick. It is ephemeral:
// the command sink consumes it immediately.
type Decision struct {
	Action Action `json:"action"`

	// Magnitude is seconds for FORWARD/BACKWARD/SPIN/STOP and degrees
	// for TURN_LEFT/TURN_RIGHT.
	Magnitude float64 `json:"magnitude"`

	Reason Reason `json:"reason"`
}

// IsStop reports whether the decision halts the robot.
func (d Decision) IsStop() bool {
	return d.Action == ActionStop
}

// GoalKind is the agent's behavioral objective.
type GoalKind string

const (
	GoalExplore     GoalKind = "explore"
	GoalInvestigate GoalKind = "investigate"
	GoalFollow      GoalKind = "follow"
	GoalRest        GoalKind = "rest"
)

// Goal is the agent's current objective as the fusion engine sees it.
// The agent owns goal lifecycle; the engine only reads it. A nil goal
// means implicit explore.
type Goal struct {
	Kind GoalKind

	// Target references an object name from the latest scene result or
	// navigation snapshot. Empty for explore/rest.
	Target string

	// TrackID is the detector track for follow goals, 0 if unknown.
	TrackID int

	// Priority 0-10, higher preempts lower.
	Priority int
}

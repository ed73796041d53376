package web

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hexapod/pkg/brain"
	"github.com/teslashibe/go-hexapod/pkg/hub"
	"github.com/teslashibe/go-hexapod/pkg/scene"
)

// handleStatus returns the combined robot status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	out := fiber.Map{}

	if s.deps.Agent != nil {
		out["agent"] = s.deps.Agent.Status()
	}
	if s.deps.Loop != nil {
		out["mode"] = string(s.deps.Loop.Mode())
		out["ticks"] = s.deps.Loop.Ticks()
		out["last_decision"] = s.deps.Loop.LastDecision()
	}
	if s.deps.Scheduler != nil {
		calls, failures := s.deps.Scheduler.Stats()
		out["scene_queries"] = calls
		out["scene_failures"] = failures
		out["scene_querying"] = s.deps.Scheduler.Querying()
		out["scene_interval_seconds"] = s.deps.Scheduler.Interval().Seconds()
	}
	if s.deps.Sink != nil {
		state, err := s.deps.Sink.DaemonStatus()
		if err != nil {
			state = "unreachable"
		}
		out["gait_daemon"] = state
	}

	return c.JSON(out)
}

// handleSnapshot returns the latest navigation snapshot.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	if s.deps.Adapter == nil {
		return c.Status(503).JSON(fiber.Map{"error": "vision not configured"})
	}
	return c.JSON(s.deps.Adapter.Latest())
}

// handleScene returns the cached scene result, with its age.
func (s *Server) handleScene(c *fiber.Ctx) error {
	if s.deps.Cache == nil {
		return c.Status(503).JSON(fiber.Map{"error": "scene cache not configured"})
	}
	r := s.deps.Cache.Latest()
	if r == nil {
		return c.Status(404).JSON(fiber.Map{"error": "no scene result yet"})
	}
	return c.JSON(fiber.Map{
		"result":      r,
		"age_seconds": r.Age().Seconds(),
	})
}

// handleSceneQuery requests a fresh VLM query. The call returns
// immediately; the result arrives via the cache and telemetry stream.
func (s *Server) handleSceneQuery(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return c.Status(503).JSON(fiber.Map{"error": "scene scheduler not configured"})
	}
	s.deps.Scheduler.RequestQuery()
	s.AddLog("info", "Manual scene query requested")
	return c.JSON(fiber.Map{"queued": true})
}

// handleStats returns session counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	out := fiber.Map{}
	if s.deps.Agent != nil {
		st := s.deps.Agent.Status()
		out["decisions_made"] = st.Decisions
		out["close_calls"] = st.CloseCalls
		out["objects_investigated"] = st.ObjectsInvestigated
		out["uptime_seconds"] = st.UptimeSeconds
	}
	if s.deps.Scheduler != nil {
		calls, failures := s.deps.Scheduler.Stats()
		out["scene_queries"] = calls
		out["scene_failures"] = failures
	}
	return c.JSON(out)
}

// SetModeRequest is the request body for switching control mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// handleSetMode switches between manual, assisted, and autonomous control.
func (s *Server) handleSetMode(c *fiber.Ctx) error {
	if s.deps.Loop == nil {
		return c.Status(503).JSON(fiber.Map{"error": "fusion loop not configured"})
	}

	var req SetModeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	switch brain.Mode(req.Mode) {
	case brain.ModeManual, brain.ModeAssisted, brain.ModeAutonomous:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "unknown mode: " + req.Mode})
	}

	s.deps.Loop.SetMode(brain.Mode(req.Mode))
	s.AddLog("info", "Control mode set to "+req.Mode)
	return c.JSON(fiber.Map{"mode": req.Mode})
}

// FollowRequest is the request body for a follow command.
type FollowRequest struct {
	TrackID int `json:"track_id"`
}

// handleFollow commands the agent to follow a person.
func (s *Server) handleFollow(c *fiber.Ctx) error {
	if s.deps.Agent == nil {
		return c.Status(503).JSON(fiber.Map{"error": "agent not configured"})
	}

	var req FollowRequest
	if err := c.BodyParser(&req); err != nil {
		req.TrackID = 0
	}

	s.deps.Agent.Follow(req.TrackID)
	s.AddLog("info", "Follow goal set")
	return c.JSON(fiber.Map{"goal": "follow"})
}

// InvestigateRequest is the request body for an investigate command.
type InvestigateRequest struct {
	Target string `json:"target"`
}

// handleInvestigate commands the agent to investigate a named object.
func (s *Server) handleInvestigate(c *fiber.Ctx) error {
	if s.deps.Agent == nil {
		return c.Status(503).JSON(fiber.Map{"error": "agent not configured"})
	}

	var req InvestigateRequest
	if err := c.BodyParser(&req); err != nil || req.Target == "" {
		return c.Status(400).JSON(fiber.Map{"error": "target required"})
	}

	s.deps.Agent.Investigate(req.Target)
	s.AddLog("info", "Investigate goal set: "+req.Target)
	return c.JSON(fiber.Map{"goal": "investigate", "target": req.Target})
}

// handleClearGoal drops the current goal.
func (s *Server) handleClearGoal(c *fiber.Ctx) error {
	if s.deps.Agent == nil {
		return c.Status(503).JSON(fiber.Map{"error": "agent not configured"})
	}
	s.deps.Agent.ClearGoal()
	s.AddLog("info", "Goal cleared")
	return c.JSON(fiber.Map{"goal": nil})
}

// SayRequest is the request body for talking to the robot.
type SayRequest struct {
	Text string `json:"text"`
}

// handleSay forwards user text to the dialogue model with scene context.
func (s *Server) handleSay(c *fiber.Ctx) error {
	if s.deps.Talker == nil {
		return c.Status(503).JSON(fiber.Map{"error": "dialogue not configured"})
	}

	var req SayRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(400).JSON(fiber.Map{"error": "text required"})
	}

	sc := s.latestScene()
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	resp, err := s.deps.Talker.Respond(ctx, req.Text, sc)
	if err != nil {
		return c.Status(502).JSON(fiber.Map{"error": err.Error()})
	}

	s.AddLog("comment", resp.Text)
	s.PublishComment(resp.Text, resp.Emotion)
	return c.JSON(resp)
}

func (s *Server) latestScene() *scene.Result {
	if s.deps.Cache != nil {
		return s.deps.Cache.Latest()
	}
	return nil
}

// handleGetLogs returns recent dashboard log entries.
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return c.JSON(s.logs)
}

// handleTelemetryWS streams telemetry events to a dashboard client.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	client := hub.NewClient(s.telemetryHub, c)
	client.Run() // blocks until the connection closes
}

// handleCameraWS streams JPEG camera frames to a dashboard client.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	client.Run()
}

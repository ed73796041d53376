// Package web provides the real-time dashboard and control API for the
// hexapod. It exposes robot status, the latest scene understanding, manual
// VLM query triggering, goal commands, and live telemetry over websockets.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/agent"
	"github.com/teslashibe/go-hexapod/pkg/brain"
	"github.com/teslashibe/go-hexapod/pkg/dialogue"
	"github.com/teslashibe/go-hexapod/pkg/hub"
	"github.com/teslashibe/go-hexapod/pkg/motion"
	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

// LogEntry represents a dashboard event log line.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, decision, alert, comment, error
	Message string `json:"message"`
}

// Deps are the robot subsystems the dashboard reads from and commands.
// Any field may be nil; the corresponding endpoints degrade gracefully.
type Deps struct {
	Adapter   *vision.Adapter
	Cache     *scene.Cache
	Scheduler *scene.Scheduler
	Agent     *agent.Agent
	Loop      *brain.Loop
	Sink      motion.StatusReporter
	Talker    dialogue.Provider
}

// Server is the web dashboard server.
type Server struct {
	app  *fiber.App
	port string
	deps Deps

	// Event log buffer (last 500 entries)
	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast
	telemetryHub *hub.Hub
	cameraHub    *hub.Hub
}

// NewServer creates the dashboard server and registers all routes.
func NewServer(port string, deps Deps) *Server {
	s := &Server{
		port:         port,
		deps:         deps,
		logs:         make([]LogEntry, 0, 500),
		telemetryHub: hub.New("telemetry"),
		cameraHub:    hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Hexapod Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", "./web")

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/snapshot", s.handleSnapshot)
	api.Get("/scene", s.handleScene)
	api.Post("/scene/query", s.handleSceneQuery)
	api.Get("/stats", s.handleStats)
	api.Post("/mode", s.handleSetMode)
	api.Post("/goal/follow", s.handleFollow)
	api.Post("/goal/investigate", s.handleInvestigate)
	api.Delete("/goal", s.handleClearGoal)
	api.Post("/say", s.handleSay)
	api.Get("/logs", s.handleGetLogs)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// Start starts the web server.
func (s *Server) Start() error {
	log.Info("web dashboard listening", "port", s.port)

	go s.telemetryHub.Run()
	go s.cameraHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
}

// AddLog appends a dashboard log entry and broadcasts it.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > 500 {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.telemetryHub.BroadcastEvent("log", entry)
}

// PublishDecision broadcasts a fused decision to telemetry clients.
func (s *Server) PublishDecision(d brain.Decision) {
	s.telemetryHub.BroadcastEvent(hub.EventDecision, d)
}

// PublishStatus broadcasts the agent status snapshot.
func (s *Server) PublishStatus(st agent.Status) {
	s.telemetryHub.BroadcastEvent(hub.EventStatus, st)
}

// PublishScene broadcasts a fresh scene result.
func (s *Server) PublishScene(r *scene.Result) {
	s.telemetryHub.BroadcastEvent(hub.EventScene, r)
}

// PublishComment broadcasts dialogue output.
func (s *Server) PublishComment(text, emotion string) {
	s.telemetryHub.BroadcastEvent(hub.EventComment, fiber.Map{
		"text":    text,
		"emotion": emotion,
	})
}

// SendCameraFrame pushes a JPEG frame to camera clients.
func (s *Server) SendCameraFrame(jpegData []byte) {
	s.cameraHub.BroadcastBinary(jpegData)
}

// TelemetryHub returns the telemetry hub for external use.
func (s *Server) TelemetryHub() *hub.Hub {
	return s.telemetryHub
}

// Shutdown gracefully stops the web server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Hexapod brain daemon: fuses local real-time obstacle detection with
// remote VLM scene understanding and drives the gait daemon, with a web
// dashboard for monitoring and control.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-hexapod/internal/config"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/agent"
	"github.com/teslashibe/go-hexapod/pkg/brain"
	"github.com/teslashibe/go-hexapod/pkg/dialogue"
	"github.com/teslashibe/go-hexapod/pkg/motion"
	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
	"github.com/teslashibe/go-hexapod/pkg/web"
)

func main() {
	var (
		configPath  = flag.String("config", "hexapod.yaml", "Path to brain config file")
		personality = flag.String("personality", "", "Personality preset: curious, cautious, chaotic (overrides config)")
		webPort     = flag.String("port", config.Env("WEB_PORT", config.DefaultWebPort), "Web dashboard port")
		gaitURL     = flag.String("gait-url", config.GaitURL("http://127.0.0.1:"+config.DefaultGaitPort), "Gait daemon base URL")
		gaitWS      = flag.String("gait-ws", "", "Gait daemon websocket URL (overrides -gait-url)")
		detectorURL = flag.String("detector-url", config.Env("DETECTOR_URL", "http://127.0.0.1:9040"), "Detector daemon base URL")
		mode        = flag.String("mode", "autonomous", "Initial control mode: manual, assisted, autonomous")
		debug       = flag.Bool("debug", false, "Enable verbose debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	fileCfg, err := config.LoadBrain(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *personality != "" {
		fileCfg.Personality = *personality
	}

	sceneProvider := config.Env("SCENE_PROVIDER", "openai")
	var apiKey string
	if sceneProvider == "gemini" {
		apiKey = config.APIKeyRequired("GOOGLE_API_KEY")
	} else {
		apiKey = config.APIKeyRequired("OPENAI_API_KEY")
	}

	// Detection feed adapter
	visCfg := vision.DefaultConfig()
	if fileCfg.StopDistanceCm > 0 {
		visCfg.StopDistanceCm = fileCfg.StopDistanceCm
	}
	if fileCfg.CliffDeltaCm > 0 {
		visCfg.CliffDeltaCm = fileCfg.CliffDeltaCm
	}
	if fileCfg.StalenessWindow > 0 {
		visCfg.StalenessWindow = fileCfg.StalenessWindow
	}
	adapter := vision.NewAdapter(visCfg)
	feed := vision.NewFeed(wsURL(*detectorURL)+"/ws/detections", adapter)
	camera := vision.NewCamera(*detectorURL)

	// Remote scene understanding
	var sceneOpts []scene.Option
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		sceneOpts = append(sceneOpts, scene.WithBaseURL(base))
	}
	if model := os.Getenv("SCENE_MODEL"); model != "" {
		sceneOpts = append(sceneOpts, scene.WithModel(model))
	}
	if fileCfg.SceneTimeout > 0 {
		sceneOpts = append(sceneOpts, scene.WithTimeout(fileCfg.SceneTimeout))
	}
	var vlm scene.Provider
	if sceneProvider == "gemini" {
		vlm = scene.NewGeminiClient(apiKey, sceneOpts...)
	} else {
		vlm = scene.NewClient(append(sceneOpts, scene.WithAPIKey(apiKey))...)
	}
	defer vlm.Close()

	cache := scene.NewCache()
	schedCfg := scene.DefaultSchedulerConfig()
	if fileCfg.SceneInterval > 0 {
		schedCfg.Interval = fileCfg.SceneInterval
	}
	if fileCfg.SceneTimeout > 0 {
		schedCfg.Timeout = fileCfg.SceneTimeout
	}
	if fileCfg.BackoffAfter > 0 {
		schedCfg.BackoffAfter = fileCfg.BackoffAfter
	}
	if fileCfg.BackoffCap > 0 {
		schedCfg.BackoffCap = fileCfg.BackoffCap
	}
	sched := scene.NewScheduler(schedCfg, vlm, cache, camera, adapter.SceneQueryArmed)

	// Decision fusion
	brainCfg := brain.ConfigFor(fileCfg.Personality)
	if fileCfg.TickRate > 0 {
		brainCfg.TickRate = fileCfg.TickRate
	}
	if fileCfg.MinClearanceCm > 0 {
		brainCfg.MinClearanceCm = fileCfg.MinClearanceCm
	}
	if fileCfg.ArrivedCm > 0 {
		brainCfg.ArrivedCm = fileCfg.ArrivedCm
	}
	if fileCfg.FollowMinCm > 0 {
		brainCfg.FollowMinCm = fileCfg.FollowMinCm
	}
	if fileCfg.BlockedAfter > 0 {
		brainCfg.BlockedAfter = fileCfg.BlockedAfter
	}
	if fileCfg.BlockedCooldown > 0 {
		brainCfg.BlockedCooldown = fileCfg.BlockedCooldown
	}
	engine := brain.NewEngine(brainCfg)

	// Autonomous agent
	agentCfg := agent.DefaultConfig()
	if fileCfg.InvestigateTimeout > 0 {
		agentCfg.InvestigateTimeout = fileCfg.InvestigateTimeout
	}
	if fileCfg.FollowLostTimeout > 0 {
		agentCfg.FollowLostTimeout = fileCfg.FollowLostTimeout
	}
	auto := agent.New(agentCfg, brainCfg)

	// Dialogue rides the OpenAI-compatible endpoint; without a key the
	// robot just doesn't talk.
	var talker dialogue.Provider
	if oaKey := os.Getenv("OPENAI_API_KEY"); oaKey != "" {
		t := dialogue.NewClient(
			dialogue.WithAPIKey(oaKey),
			dialogue.WithPersonality(brainCfg.Personality),
		)
		defer t.Close()
		talker = t
	}

	// Motion sink
	var sink motion.Sink
	if *gaitWS != "" {
		sink, err = motion.NewWSSink(*gaitWS)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		sink = motion.NewHTTPSink(*gaitURL)
	}
	defer sink.Close()

	loop := brain.NewLoop(engine, adapter, cache, auto, sink)
	loop.SetMode(brain.Mode(*mode))

	// Dashboard
	server := web.NewServer(*webPort, web.Deps{
		Adapter:   adapter,
		Cache:     cache,
		Scheduler: sched,
		Agent:     auto,
		Loop:      loop,
		Sink:      sink,
		Talker:    talker,
	})

	if talker != nil {
		auto.SetDialogue(talker, server.PublishComment)
	}
	loop.SetObserver(observers{auto, server})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go feed.Run(ctx)
	go sched.Run(ctx)
	server.StartAsync()

	log.Info("hexapod brain up",
		"personality", brainCfg.Personality,
		"mode", *mode,
		"gait", *gaitURL,
		"detector", *detectorURL,
	)

	loop.Run(ctx)

	if err := server.Shutdown(); err != nil {
		log.Warn("web shutdown error", "error", err)
	}
}

// observers fans a decision out to the agent and the dashboard.
type observers struct {
	agent  *agent.Agent
	server *web.Server
}

func (o observers) OnDecision(now time.Time, d brain.Decision) {
	o.agent.OnDecision(now, d)
	o.server.PublishDecision(d)
	o.server.PublishStatus(o.agent.Status())
}

// wsURL converts an http(s) base URL to its ws(s) form.
func wsURL(httpURL string) string {
	switch {
	case len(httpURL) > 8 && httpURL[:8] == "https://":
		return "wss://" + httpURL[8:]
	case len(httpURL) > 7 && httpURL[:7] == "http://":
		return "ws://" + httpURL[7:]
	}
	return httpURL
}

// Wander - minimal autonomous roaming without the dashboard.
//
// Connects the detector feed straight to the fusion loop and lets the
// hexapod explore. Scene understanding is optional: without an API key the
// robot wanders on local obstacle avoidance alone.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-hexapod/internal/config"
	"github.com/teslashibe/go-hexapod/internal/log"
	"github.com/teslashibe/go-hexapod/pkg/agent"
	"github.com/teslashibe/go-hexapod/pkg/brain"
	"github.com/teslashibe/go-hexapod/pkg/motion"
	"github.com/teslashibe/go-hexapod/pkg/scene"
	"github.com/teslashibe/go-hexapod/pkg/vision"
)

func main() {
	var (
		personality = flag.String("personality", "curious", "Personality preset: curious, cautious, chaotic")
		gaitURL     = flag.String("gait-url", config.GaitURL("http://127.0.0.1:"+config.DefaultGaitPort), "Gait daemon base URL")
		detectorURL = flag.String("detector-url", config.Env("DETECTOR_URL", "http://127.0.0.1:9040"), "Detector daemon base URL")
		debug       = flag.Bool("debug", false, "Enable verbose debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log.Init(level)

	adapter := vision.NewAdapter(vision.DefaultConfig())
	feed := vision.NewFeed("ws://"+trimScheme(*detectorURL)+"/ws/detections", adapter)

	brainCfg := brain.ConfigFor(*personality)
	engine := brain.NewEngine(brainCfg)
	auto := agent.New(agent.DefaultConfig(), brainCfg)
	sink := motion.NewHTTPSink(*gaitURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A typed nil cache would defeat the loop's interface nil check, so
	// only assign when scene understanding is actually on.
	var scenes brain.SceneSource
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		vlm := scene.NewClient(scene.WithAPIKey(apiKey))
		defer vlm.Close()

		cache := scene.NewCache()
		camera := vision.NewCamera(*detectorURL)
		sched := scene.NewScheduler(scene.DefaultSchedulerConfig(), vlm, cache, camera, adapter.SceneQueryArmed)
		go sched.Run(ctx)
		scenes = cache
	} else {
		log.Info("no OPENAI_API_KEY, wandering without scene understanding")
	}

	loop := brain.NewLoop(engine, adapter, scenes, auto, sink)
	loop.SetObserver(auto)

	go feed.Run(ctx)

	log.Info("wandering", "personality", *personality)
	loop.Run(ctx)
}

// trimScheme strips an http:// or https:// prefix.
func trimScheme(url string) string {
	if len(url) > 8 && url[:8] == "https://" {
		return url[8:]
	}
	if len(url) > 7 && url[:7] == "http://" {
		return url[7:]
	}
	return url
}

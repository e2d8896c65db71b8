// jarvis: real-time voice assistant server.
// Accepts websocket sessions from the browser client and answers spoken
// questions with synthesized speech.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/teslashibe/go-jarvis/internal/config"
	"github.com/teslashibe/go-jarvis/internal/log"
	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/artifact"
	"github.com/teslashibe/go-jarvis/pkg/pipeline"
	"github.com/teslashibe/go-jarvis/pkg/server"
)

var (
	version    = "1.0.0"
	port       = flag.Int("port", 0, "HTTP server port (overrides config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	configFile = flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jarvis: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
	}

	log.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger := log.Component("main")
	logger.Info("starting jarvis",
		"version", version,
		"port", cfg.Server.Port,
		"policy", cfg.Pipeline.Policy,
		"llm", cfg.LLM.Provider,
		"tts", cfg.TTS.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	p, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	go artifact.Janitor(ctx, p.artifacts, time.Minute, func(removed int, err error) {
		if err != nil {
			logger.Warn("artifact sweep failed", "error", err)
			return
		}
		if removed > 0 {
			logger.Debug("artifact sweep", "removed", removed)
		}
	})

	orch, err := pipeline.New(p.deps(),
		pipeline.WithPolicy(pipeline.Policy(cfg.Pipeline.Policy)),
		pipeline.WithMaxInFlight(cfg.Pipeline.MaxInFlight),
		pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout),
		pipeline.WithTimeoutFor(pipeline.StageGenerating, cfg.LLM.Timeout),
		pipeline.WithPCM(p.pcm),
		pipeline.WithLanguage(cfg.Google.LanguageCode),
		pipeline.WithLogger(log.Component("pipeline")),
		pipeline.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	srv := server.New(orch,
		server.WithVersion(version),
		server.WithAllowedOrigins(cfg.Server.Origins()...),
		server.WithDebug(cfg.Server.Debug),
		server.WithLogger(log.Component("server")),
		server.WithMetrics(m, prometheus.DefaultGatherer),
		server.WithHealthCheck("llm", p.llm.Health),
		server.WithHealthCheck("tts", p.tts.Health),
	)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("listening",
			"websocket", fmt.Sprintf("ws://localhost:%d/ws", cfg.Server.Port),
			"health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
		)
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
	logger.Info("goodbye")
	return nil
}

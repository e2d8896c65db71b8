// Package server exposes the voice pipeline over a websocket and HTTP.
package server

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/pipeline"
)

// healthTimeout bounds a deep health probe.
const healthTimeout = 5 * time.Second

// Server is the Fiber application serving /ws, /api, /health and /metrics.
type Server struct {
	app  *fiber.App
	hub  *Hub
	orch *pipeline.Orchestrator
	cfg  *Config
}

// New builds the application around orch.
func New(orch *pipeline.Orchestrator, opts ...Option) *Server {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.Metrics == nil {
		reg := prometheus.NewRegistry()
		cfg.Metrics = metrics.New(reg)
		cfg.Gatherer = reg
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	app := fiber.New(fiber.Config{
		AppName:               "jarvis",
		DisableStartupMessage: true,
		BodyLimit:             int(cfg.MaxMessageSize),
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	s := &Server{
		app:  app,
		hub:  NewHub(orch, cfg),
		orch: orch,
		cfg:  cfg,
	}

	s.hub.RegisterRoutes(app)
	s.hub.RegisterAPIRoutes(app.Group("/api"))
	app.Get("/health", s.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))

	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown disconnects every client and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.orch.Shutdown()
	return s.app.ShutdownWithContext(ctx)
}

// health reports liveness; ?deep=1 also probes collaborators.
func (s *Server) health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":   "ok",
		"version":  s.cfg.Version,
		"sessions": s.hub.ConnCount(),
	}
	if c.Query("deep") == "" || len(s.cfg.Checks) == 0 {
		return c.JSON(body)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	var (
		g      errgroup.Group
		mu     sync.Mutex
		checks = make(map[string]string, len(s.cfg.Checks))
		failed bool
	)
	for name, check := range s.cfg.Checks {
		g.Go(func() error {
			result := "ok"
			if err := check(ctx); err != nil {
				result = "unavailable"
				s.cfg.Logger.Warn("health check failed", "check", name, "error", err)
			}
			mu.Lock()
			defer mu.Unlock()
			checks[name] = result
			if result != "ok" {
				failed = true
			}
			return nil
		})
	}
	_ = g.Wait()

	body["checks"] = checks
	if failed {
		body["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}

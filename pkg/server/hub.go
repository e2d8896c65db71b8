package server

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/pipeline"
	"github.com/teslashibe/go-jarvis/pkg/protocol"
	"github.com/teslashibe/go-jarvis/pkg/transcode"
)

// Hub accepts client websockets and binds each one to a pipeline session.
type Hub struct {
	orch    *pipeline.Orchestrator
	cfg     *Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	// ctx parents every session; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	conns map[string]*conn

	// Stats
	messagesReceived atomic.Uint64
	utterances       atomic.Uint64
	greetings        atomic.Uint64
}

// NewHub creates a hub over orch.
func NewHub(orch *pipeline.Orchestrator, cfg *Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		orch:    orch,
		cfg:     cfg,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "server.hub"),
		ctx:     ctx,
		cancel:  cancel,
		conns:   make(map[string]*conn),
	}
}

// RegisterRoutes registers the websocket route on a Fiber app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(h.handleConn))
}

// handleConn runs one client connection until it disconnects.
func (h *Hub) handleConn(ws *websocket.Conn) {
	c := newConn("", ws, h.cfg.SendBuffer, h.metrics, h.logger)
	session := h.orch.Open(h.ctx, c)
	c.id = session.ID()
	c.logger = h.logger.With("session_id", c.id)

	h.mu.Lock()
	h.conns[c.id] = c
	count := len(h.conns)
	h.mu.Unlock()

	c.logger.Info("client connected", "total", count)

	defer func() {
		session.Close()
		c.close()
		c.wait()

		h.mu.Lock()
		delete(h.conns, c.id)
		count := len(h.conns)
		h.mu.Unlock()

		c.logger.Info("client disconnected", "total", count)
	}()

	go c.writePump()

	ws.SetReadLimit(h.cfg.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Read loop
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		h.messagesReceived.Add(1)
		h.metrics.RecordMessageReceived()

		if mt == websocket.BinaryMessage {
			h.submit(c, session, data, transcode.FormatAuto)
			continue
		}
		h.handleMessage(c, session, data)
	}
}

// handleMessage processes one JSON message from a client.
func (h *Hub) handleMessage(c *conn, session *pipeline.Session, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		c.logger.Debug("parse error", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeRequestGreeting:
		req, err := msg.GetRequestGreetingData()
		if err != nil {
			c.logger.Debug("bad greeting request", "error", err)
			c.sendError(pipeline.MsgGreetingFailed)
			return
		}
		h.greetings.Add(1)
		// Greeting runs beside the read loop so audio keeps flowing.
		go func() {
			if err := session.Greet(h.ctx, req.UserName); err != nil && !errors.Is(err, pipeline.ErrSessionClosed) {
				c.logger.Debug("greeting failed", "error", err)
			}
		}()

	case protocol.TypeAudioStream:
		req, err := msg.GetAudioStreamData()
		if err != nil {
			c.sendError(pipeline.MsgTranscodeFailed)
			return
		}
		audio, err := req.DecodeAudio()
		if err != nil {
			c.logger.Debug("bad audio payload", "error", err)
			c.sendError(pipeline.MsgTranscodeFailed)
			return
		}
		h.submit(c, session, audio, transcode.ParseFormat(req.Format))

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		id := ""
		if ping != nil {
			id = ping.ID
		}
		pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli())
		if err == nil {
			c.enqueue(pong)
		}

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

func (h *Hub) submit(c *conn, session *pipeline.Session, audio []byte, format transcode.Format) {
	seq, err := session.SubmitFormat(audio, format)
	if err != nil {
		if !errors.Is(err, pipeline.ErrSessionClosed) {
			c.sendError(pipeline.MsgTranscodeFailed)
		}
		c.logger.Debug("submit rejected", "error", err)
		return
	}
	h.utterances.Add(1)
	c.logger.Debug("audio submitted", "seq", seq, "bytes", len(audio))
}

// Close disconnects every client session.
func (h *Hub) Close() {
	h.cancel()

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
}

// ConnCount returns the number of connected clients.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stats contains hub statistics
type Stats struct {
	Connections      int    `json:"connections"`
	MessagesReceived uint64 `json:"messages_received"`
	Utterances       uint64 `json:"utterances"`
	Greetings        uint64 `json:"greetings"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		Connections:      h.ConnCount(),
		MessagesReceived: h.messagesReceived.Load(),
		Utterances:       h.utterances.Load(),
		Greetings:        h.greetings.Load(),
	}
}

// ConnInfo joins a connection with its session state.
type ConnInfo struct {
	pipeline.SessionInfo
	Connected time.Time `json:"connected"`
}

// GetConnInfos returns info about all connected clients, oldest first.
func (h *Hub) GetConnInfos() []ConnInfo {
	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	infos := make([]ConnInfo, 0, len(conns))
	for _, c := range conns {
		s, ok := h.orch.Session(c.id)
		if !ok {
			continue
		}
		infos = append(infos, ConnInfo{SessionInfo: s.Info(), Connected: c.connected})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Connected.Before(infos[j].Connected)
	})
	return infos
}

// RegisterAPIRoutes registers session inspection routes.
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	// List connected sessions
	sessions.Get("/", func(c *fiber.Ctx) error {
		infos := h.GetConnInfos()
		return c.JSON(fiber.Map{
			"sessions": infos,
			"count":    len(infos),
		})
	})

	// Get hub and pipeline stats
	sessions.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"hub":      h.GetStats(),
			"pipeline": h.orch.Stats(),
		})
	})

	// Inspect one session
	sessions.Get("/:id", func(c *fiber.Ctx) error {
		s, ok := h.orch.Session(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(s.Info())
	})
}

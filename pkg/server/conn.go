package server

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/teslashibe/go-jarvis/internal/metrics"
	"github.com/teslashibe/go-jarvis/pkg/pipeline"
	"github.com/teslashibe/go-jarvis/pkg/protocol"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// Connection errors.
var (
	ErrSendBufferFull = errors.New("server: send buffer full")
	ErrConnClosed     = errors.New("server: connection closed")
)

// conn is one client websocket. Only writePump writes to the socket, and
// the handler must wait on pumpDone before returning because the
// underlying connection is pooled and reset once the handler exits.
type conn struct {
	id        string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
	connected time.Time

	// overflowed is set when the client fell behind and was disconnected.
	overflowed atomic.Bool

	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newConn(id string, ws *websocket.Conn, buffer int, m *metrics.Metrics, logger *slog.Logger) *conn {
	return &conn{
		id:        id,
		ws:        ws,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		pumpDone:  make(chan struct{}),
		connected: time.Now(),
		metrics:   m,
		logger:    logger,
	}
}

// Emit implements pipeline.Emitter. It never blocks.
func (c *conn) Emit(ev pipeline.Event) error {
	msg, err := eventMessage(ev)
	if err != nil {
		return err
	}
	return c.enqueue(msg)
}

func (c *conn) enqueue(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		// A client that cannot keep up loses the connection rather than
		// silently missing part of an utterance.
		c.overflowed.Store(true)
		c.logger.Warn("send buffer full, closing connection", "buffer", cap(c.send))
		c.close()
		return ErrSendBufferFull
	}
}

// sendError queues a client-safe error outside any utterance.
func (c *conn) sendError(text string) {
	msg, err := protocol.NewErrorMessage(text)
	if err != nil {
		return
	}
	if err := c.enqueue(msg); err != nil {
		c.metrics.RecordMessageDropped()
	}
}

// close stops the write pump. Safe to call more than once.
func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// wait blocks until writePump has returned.
func (c *conn) wait() {
	<-c.pumpDone
}

// writePump writes queued messages and keepalive pings until close.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(c.pumpDone)
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", "error", err)
				c.close()
				return
			}
			c.metrics.RecordMessageSent()

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, c.closeFrame())
			return
		}
	}
}

func (c *conn) closeFrame() []byte {
	if c.overflowed.Load() {
		return websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "send buffer full")
	}
	return websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
}

// eventMessage maps a pipeline event to its wire message.
func eventMessage(ev pipeline.Event) (*protocol.Message, error) {
	var (
		msg *protocol.Message
		err error
	)
	switch ev.Type {
	case pipeline.EventGreeting:
		msg, err = protocol.NewAudioMessage(protocol.TypeGreeting, ev.MIMEType, ev.Audio)
	case pipeline.EventAudio:
		msg, err = protocol.NewAudioMessage(protocol.TypeGPT, ev.MIMEType, ev.Audio)
	case pipeline.EventTranscription:
		msg, err = protocol.NewTextMessage(protocol.TypeTranscription, ev.Text)
	case pipeline.EventResponse:
		msg, err = protocol.NewTextMessage(protocol.TypeGPTResponse, ev.Text)
	case pipeline.EventError:
		msg, err = protocol.NewErrorMessage(ev.Text)
	default:
		return nil, errors.New("server: unknown event type " + string(ev.Type))
	}
	if err != nil {
		return nil, err
	}
	return msg.WithSeq(ev.Seq), nil
}

var _ pipeline.Emitter = (*conn)(nil)

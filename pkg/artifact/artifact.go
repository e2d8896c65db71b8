// Package artifact stores the transient per-utterance byte blobs the
// pipeline produces: decoded PCM, synthesized replies and greetings.
//
// Every artifact is addressed by its session, its utterance sequence number
// and its kind, so concurrent utterances and sessions never share a name.
// Callers delete artifacts once they are emitted or abandoned; a TTL catches
// anything orphaned by a crash.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind distinguishes the artifacts of a single utterance.
type Kind string

const (
	KindPCM      Kind = "pcm"
	KindSpeech   Kind = "speech"
	KindGreeting Kind = "greeting"
)

// Key addresses one artifact.
type Key struct {
	SessionID string
	Seq       uint64
	Kind      Kind
}

// String renders the key as "session:seq:kind".
func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%s", k.SessionID, k.Seq, k.Kind)
}

// Validate rejects keys that cannot be scoped to a session.
func (k Key) Validate() error {
	if k.SessionID == "" {
		return ErrInvalidKey
	}
	if k.Kind == "" {
		return ErrInvalidKey
	}
	return nil
}

// Sentinel errors.
var (
	ErrNotFound   = errors.New("artifact: not found")
	ErrInvalidKey = errors.New("artifact: key requires session and kind")
)

// DefaultTTL bounds how long an unreleased artifact survives.
const DefaultTTL = 5 * time.Minute

// Store persists artifacts. Implementations are safe for concurrent use and
// never alias caller buffers.
type Store interface {
	Put(ctx context.Context, key Key, data []byte) error
	Get(ctx context.Context, key Key) ([]byte, error)
	Delete(ctx context.Context, key Key) error

	// DeleteSession removes every artifact of a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// Sweep collects artifacts that expired before now and reports how many
	// entries it removed.
	Sweep(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// New builds a store by backend name. "redis" requires a client option.
func New(backend string, opts ...Option) (Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	switch backend {
	case "", "memory":
		return NewMemory(cfg.ttl), nil
	case "redis":
		if cfg.redisURL == "" {
			return nil, errors.New("artifact: redis backend requires a URL")
		}
		return DialRedis(cfg.redisURL, cfg.prefix, cfg.ttl)
	default:
		return nil, fmt.Errorf("artifact: unknown backend %q", backend)
	}
}

type config struct {
	ttl      time.Duration
	prefix   string
	redisURL string
}

func defaultConfig() config {
	return config{ttl: DefaultTTL, prefix: "jarvis"}
}

// Option configures New.
type Option func(*config)

// WithTTL sets the artifact lifetime. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithPrefix sets the Redis key prefix.
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithRedisURL sets the Redis connection URL (redis://host:port/db).
func WithRedisURL(url string) Option {
	return func(c *config) { c.redisURL = url }
}

// Janitor calls Sweep every interval until ctx is cancelled.
func Janitor(ctx context.Context, s Store, interval time.Duration, onSweep func(removed int, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Sweep(ctx, now)
			if onSweep != nil {
				onSweep(n, err)
			}
		}
	}
}

// Package feed keeps the set of open real-time connections and pushes
// notification strings to all of them.
//
// Each registered connection gets a Subscriber with its own buffered queue and
// write goroutine. Broadcast only enqueues, so one slow or dead peer never
// holds up the others; the write goroutine applies a per-send timeout and drops
// the subscriber on the first failed send.
//
// The registry is process-local and starts empty on every restart. There is no
// replay: a client that reconnects misses whatever was broadcast in between.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is the write side of a real-time connection.
type Conn interface {
	Write(ctx context.Context, msg string) error
	Close(reason string) error
}

// Config tunes per-subscriber behavior.
type Config struct {
	// SendTimeout bounds a single write to one connection.
	SendTimeout time.Duration
	// QueueSize is how many undelivered messages a subscriber may hold
	// before further broadcasts are dropped for it.
	QueueSize int
}

// DefaultConfig returns a 5 second send timeout and a 16 message queue.
func DefaultConfig() Config {
	return Config{SendTimeout: 5 * time.Second, QueueSize: 16}
}

// Broadcaster owns the connection registry.
type Broadcaster struct {
	config Config
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewBroadcaster creates an empty registry.
func NewBroadcaster(cfg Config, logger *slog.Logger) *Broadcaster {
	def := DefaultConfig()
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	return &Broadcaster{
		config: cfg,
		logger: logger,
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Subscriber is one registered connection.
type Subscriber struct {
	id   string
	conn Conn
	send chan string
	done chan struct{}
	once sync.Once
}

// ID is a random identifier used in logs.
func (s *Subscriber) ID() string { return s.id }

// Done is closed once the subscriber has been unregistered, whether by the
// caller or because a send failed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// Register adds conn to the registry and starts its write loop. Messages
// broadcast before Register returns are never delivered to it.
func (b *Broadcaster) Register(conn Conn) *Subscriber {
	s := &Subscriber{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan string, b.config.QueueSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()

	go b.writeLoop(s)

	b.logger.Info("feed subscriber connected",
		slog.String("subscriber", s.id),
		slog.Int("subscribers", n),
	)
	return s
}

// Unregister removes s and closes its connection. Safe to call more than once
// and from any goroutine.
func (b *Broadcaster) Unregister(s *Subscriber) {
	b.remove(s, "bye")
}

func (b *Broadcaster) remove(s *Subscriber, reason string) {
	s.once.Do(func() {
		b.mu.Lock()
		delete(b.subs, s)
		n := len(b.subs)
		b.mu.Unlock()

		close(s.done)
		if err := s.conn.Close(reason); err != nil {
			b.logger.Debug("closing feed connection",
				slog.String("subscriber", s.id),
				slog.String("error", err.Error()),
			)
		}

		b.logger.Info("feed subscriber disconnected",
			slog.String("subscriber", s.id),
			slog.String("reason", reason),
			slog.Int("subscribers", n),
		)
	})
}

// Broadcast queues msg for every subscriber registered at the time of the
// call and returns how many accepted it. A subscriber whose queue is full
// misses this message; nobody else is affected.
func (b *Broadcaster) Broadcast(msg string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	accepted := 0
	for s := range b.subs {
		select {
		case s.send <- msg:
			accepted++
		default:
			b.logger.Warn("feed subscriber queue full, dropping message",
				slog.String("subscriber", s.id),
			)
		}
	}
	return accepted
}

// Len returns the number of registered subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters every subscriber. Used on shutdown.
func (b *Broadcaster) Close() {
	b.mu.RLock()
	all := make([]*Subscriber, 0, len(b.subs))
	for s := range b.subs {
		all = append(all, s)
	}
	b.mu.RUnlock()

	for _, s := range all {
		b.remove(s, "server shutting down")
	}
}

// writeLoop delivers queued messages until the subscriber is removed.
func (b *Broadcaster) writeLoop(s *Subscriber) {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			ctx, cancel := context.WithTimeout(context.Background(), b.config.SendTimeout)
			err := s.conn.Write(ctx, msg)
			cancel()
			if err != nil {
				b.logger.Warn("feed send failed, dropping subscriber",
					slog.String("subscriber", s.id),
					slog.String("error", err.Error()),
				)
				b.remove(s, "send failed")
				return
			}
		}
	}
}

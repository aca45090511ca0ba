// Package session owns the transport of one instrument and keeps the request
// stream aligned with the byte stream.
//
// A session moves Closed → Opening → Synchronized → Closed. When resync is
// enabled, a receive timeout moves it to Resyncing while stale answers are
// discarded; if that fails the session closes itself.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-geocom/logger"
	"github.com/arloliu/go-geocom/transport"
)

var (
	// ErrConnection is returned when the handshake failed on every attempt.
	ErrConnection = errors.New("session: could not establish connection to instrument")
	// ErrResyncFailed is returned when the answer stream could not be realigned.
	ErrResyncFailed = errors.New("session: resync failed")
	// ErrInvalidState is returned when opening a session that is not closed.
	ErrInvalidState = errors.New("session: invalid state")
)

// Default lifecycle settings.
const (
	DefaultMaxAttempts  = 2
	DefaultBackoff      = 1 * time.Second
	DefaultResyncRounds = 8
)

// NoOp is a harmless command and the predicate recognizing its answer.
type NoOp struct {
	Cmd   string
	IsAck func(answer string) bool
}

// Prober is implemented by protocol engines to drive the lifecycle.
type Prober interface {
	// Handshake performs one connection probe through the session.
	Handshake(ctx context.Context) bool
	// NoOp returns the probe used to realign the answer stream.
	NoOp() NoOp
}

// Session serializes access to one transport.
type Session struct {
	t      transport.Transport
	prober Prober
	logger logger.Logger

	maxAttempts  int
	backoff      time.Duration
	resync       bool
	resyncRounds int

	mu    sync.Mutex
	state AtomicState
}

// New creates a closed session over t. The prober is usually the protocol
// engine that owns the session.
func New(t transport.Transport, prober Prober, opts ...Option) (*Session, error) {
	s := &Session{
		t:            t,
		prober:       prober,
		logger:       logger.GetLogger(),
		maxAttempts:  DefaultMaxAttempts,
		backoff:      DefaultBackoff,
		resyncRounds: DefaultResyncRounds,
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state.Get()
}

// Transport returns the owned transport.
func (s *Session) Transport() transport.Transport {
	return s.t
}

// Open opens the transport and runs the handshake with retries.
// Opening a synchronized session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	if !s.state.ToOpening() {
		if s.state.IsSynchronized() {
			return nil
		}

		return fmt.Errorf("%w: open in state %s", ErrInvalidState, s.state.Get())
	}

	if err := s.t.Open(); err != nil {
		s.state.ToClosed()
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	if err := OpenWithRetry(ctx, s.prober.Handshake, s.maxAttempts, s.backoff, s.logger); err != nil {
		s.state.ToClosed()
		_ = s.t.Close()
		s.logger.Error("session: open failed", "attempts", s.maxAttempts, "error", err)

		return err
	}

	s.state.ToSynchronized()
	s.logger.Info("session: synchronized")

	return nil
}

// Send writes a payload without waiting for an answer.
func (s *Session) Send(ctx context.Context, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.t.Send(ctx, payload)
}

// Exchange sends cmd and returns its answer.
//
// With resync enabled, a timeout triggers a resync before returning the
// timeout error. A failed resync closes the session.
func (s *Session) Exchange(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	answer, err := s.t.Exchange(ctx, cmd)
	if err != nil && s.resync && errors.Is(err, transport.ErrTimeout) && s.state.IsSynchronized() {
		s.logger.Warn("session: timeout, resynchronizing", "cmd", cmd)
		if rerr := s.resyncLocked(context.WithoutCancel(ctx)); rerr != nil {
			return "", errors.Join(err, rerr)
		}
	}

	return answer, err
}

// Resync realigns the answer stream. On failure the session is closed.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resyncLocked(ctx)
}

func (s *Session) resyncLocked(ctx context.Context) error {
	if !s.state.ToResyncing() {
		return fmt.Errorf("%w: resync in state %s", ErrInvalidState, s.state.Get())
	}

	discarded, err := Resync(ctx, s.t, s.prober.NoOp(), s.resyncRounds)
	if err != nil {
		s.logger.Error("session: resync failed, closing", "discarded", discarded, "error", err)
		s.state.ToClosed()
		_ = s.t.Close()

		return err
	}

	s.state.ToSynchronized()
	s.logger.Info("session: resynchronized", "discarded", discarded)

	return nil
}

// Close closes the transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.state.ToClosed()
	return s.t.Close()
}

// --- Option ---

// Option is a functional option for configuring a Session.
type Option interface {
	apply(*Session) error
}

type optFunc func(*Session) error

func (f optFunc) apply(s *Session) error { return f(s) }

// WithMaxAttempts sets the number of handshake attempts. Must be at least 1.
func WithMaxAttempts(n int) Option {
	return optFunc(func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("session: max attempts %d must be at least 1", n)
		}
		s.maxAttempts = n

		return nil
	})
}

// WithBackoff sets the wait between failed handshake attempts.
func WithBackoff(d time.Duration) Option {
	return optFunc(func(s *Session) error {
		if d < 0 {
			return errors.New("session: backoff must not be negative")
		}
		s.backoff = d

		return nil
	})
}

// WithResync enables resynchronization after receive timeouts.
func WithResync(enabled bool) Option {
	return optFunc(func(s *Session) error {
		s.resync = enabled
		return nil
	})
}

// WithResyncRounds sets the maximum number of answers discarded during a resync.
func WithResyncRounds(n int) Option {
	return optFunc(func(s *Session) error {
		if n < 1 {
			return fmt.Errorf("session: resync rounds %d must be at least 1", n)
		}
		s.resyncRounds = n

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Session) error {
		if l == nil {
			return errors.New("session: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

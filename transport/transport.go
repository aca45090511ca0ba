// Package transport implements the line oriented, half-duplex channel used to
// talk to surveying instruments.
//
// A request is written with the configured message terminator appended, and
// an answer is every byte up to the configured answer terminator. Answers are
// paired with requests purely by order, so a Transport must be owned by a
// single protocol engine.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-geocom/logger"
)

var (
	// ErrChannelClosed is returned when sending or receiving on a closed transport.
	ErrChannelClosed = errors.New("transport: channel closed")
	// ErrTimeout is returned when the answer terminator did not arrive in time.
	ErrTimeout = errors.New("transport: timeout")
	// ErrWrite wraps failures of the underlying endpoint while writing.
	ErrWrite = errors.New("transport: write failed")
	// ErrRead wraps failures of the underlying endpoint while reading.
	ErrRead = errors.New("transport: read failed")
	// ErrInvalidConfig is returned by configuration options on invalid values.
	ErrInvalidConfig = errors.New("transport: invalid config")
	// ErrInvalidPayload is returned when a payload carries the message
	// terminator before its end. Nothing is written.
	ErrInvalidPayload = errors.New("transport: terminator inside payload")
)

// errReadTimeout is returned by a port when a single read slice expired.
var errReadTimeout = errors.New("transport: read slice expired")

// pollInterval bounds a single blocking read so context cancellation is
// observed while waiting for an answer.
const pollInterval = 100 * time.Millisecond

// Transport is a duplex line channel to an instrument.
type Transport interface {
	// Open opens the channel. Opening an open channel is a no-op.
	Open() error
	// Close closes the channel. Closing a closed channel is a no-op.
	Close() error
	// IsOpen reports whether the channel is open.
	IsOpen() bool
	// Send writes payload, appending the message terminator if it is missing.
	Send(ctx context.Context, payload string) error
	// Receive reads one answer and strips the answer terminator.
	Receive(ctx context.Context) (string, error)
	// Exchange sends cmd and receives its answer as one unit.
	Exchange(ctx context.Context, cmd string) (string, error)
	// ExchangeMany exchanges each command in order and stops at the first failure,
	// returning the answers collected up to that point together with the error.
	ExchangeMany(ctx context.Context, cmds []string) ([]string, error)
	// Metrics returns the transport counters.
	Metrics() *Metrics
}

// port is the raw endpoint beneath a line transport.
type port interface {
	// write writes all of p.
	write(p []byte, timeout time.Duration) (int, error)
	// read reads at most len(p) bytes, waiting no longer than timeout.
	// It returns errReadTimeout when nothing arrived in time.
	read(p []byte, timeout time.Duration) (int, error)
	close() error
}

// lineTransport implements Transport over a port.
//
// ioMu serializes all I/O, so Exchange never interleaves with another
// Exchange, Send or Receive on the same channel.
type lineTransport struct {
	cfg    *Config
	logger logger.Logger
	name   string

	// opener returns a fresh port; nil when the endpoint cannot be re-opened.
	opener func() (port, error)

	ioMu    sync.Mutex
	stateMu sync.Mutex
	port    port
	isOpen  atomic.Bool

	// pending holds bytes read past the last answer terminator.
	pending []byte

	metrics Metrics
}

var _ Transport = (*lineTransport)(nil)

func newLineTransport(name string, cfg *Config, opener func() (port, error)) *lineTransport {
	return &lineTransport{
		cfg:    cfg,
		logger: cfg.GetLogger().With("transport", name),
		name:   name,
		opener: opener,
	}
}

func (t *lineTransport) Open() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	if t.isOpen.Load() {
		return nil
	}
	if t.opener == nil {
		return fmt.Errorf("%w: %s cannot be re-opened", ErrChannelClosed, t.name)
	}

	p, err := t.opener()
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", t.name, err)
	}

	t.port = p
	t.pending = nil
	t.isOpen.Store(true)
	t.logger.Debug("transport: opened")

	return nil
}

func (t *lineTransport) Close() error {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	if !t.isOpen.CompareAndSwap(true, false) {
		return nil
	}

	err := t.port.close()
	t.logger.Debug("transport: closed", "error", err)

	return err
}

func (t *lineTransport) IsOpen() bool {
	return t.isOpen.Load()
}

func (t *lineTransport) Metrics() *Metrics {
	return &t.metrics
}

func (t *lineTransport) Send(ctx context.Context, payload string) error {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()

	return t.send(ctx, payload)
}

func (t *lineTransport) Receive(ctx context.Context) (string, error) {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()

	return t.receive(ctx)
}

func (t *lineTransport) Exchange(ctx context.Context, cmd string) (string, error) {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()

	return t.exchange(ctx, cmd)
}

func (t *lineTransport) ExchangeMany(ctx context.Context, cmds []string) ([]string, error) {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()

	answers := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		answer, err := t.exchange(ctx, cmd)
		if err != nil {
			return answers, err
		}
		answers = append(answers, answer)
	}

	return answers, nil
}

func (t *lineTransport) exchange(ctx context.Context, cmd string) (string, error) {
	if err := t.send(ctx, cmd); err != nil {
		return "", err
	}

	return t.receive(ctx)
}

func (t *lineTransport) send(ctx context.Context, payload string) error {
	if !t.isOpen.Load() {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body := strings.TrimSuffix(payload, t.cfg.eom)
	if strings.Contains(body, t.cfg.eom) {
		return fmt.Errorf("%w: %q", ErrInvalidPayload, body)
	}
	payload = body + t.cfg.eom

	n, err := t.port.write([]byte(payload), t.cfg.writeTimeout)
	if err != nil {
		t.metrics.incErrorCount()
		if !t.isOpen.Load() {
			return ErrChannelClosed
		}

		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	t.metrics.incSendCount(n)
	t.logger.Debug("transport: sent", "payload", strings.TrimSuffix(payload, t.cfg.eom))

	return nil
}

func (t *lineTransport) receive(ctx context.Context) (string, error) {
	if !t.isOpen.Load() {
		return "", ErrChannelClosed
	}

	eoa := []byte(t.cfg.eoa)
	deadline := time.Now().Add(t.cfg.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	chunk := make([]byte, 256)
	for {
		if idx := bytes.Index(t.pending, eoa); idx >= 0 {
			answer := string(t.pending[:idx])
			t.pending = append([]byte(nil), t.pending[idx+len(eoa):]...)
			t.metrics.incReceiveCount()
			t.logger.Debug("transport: received", "answer", answer)

			return answer, nil
		}

		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				t.metrics.incTimeoutCount()
				return "", fmt.Errorf("%w: %w", ErrTimeout, err)
			}

			return "", err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.metrics.incTimeoutCount()
			t.logger.Debug("transport: receive timed out", "pending", len(t.pending))

			return "", fmt.Errorf("%w: no answer terminator within %v", ErrTimeout, t.cfg.timeout)
		}

		n, err := t.port.read(chunk, min(remaining, pollInterval))
		if n > 0 {
			t.pending = append(t.pending, chunk[:n]...)
			t.metrics.addBytesReceived(n)
		}
		if err != nil {
			if errors.Is(err, errReadTimeout) {
				continue
			}
			if !t.isOpen.Load() {
				return "", ErrChannelClosed
			}
			t.metrics.incErrorCount()

			return "", fmt.Errorf("%w: %w", ErrRead, err)
		}
	}
}

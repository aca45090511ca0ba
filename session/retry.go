package session

import (
	"context"
	"fmt"
	"time"

	"github.com/arloliu/go-geocom/internal/pool"
	"github.com/arloliu/go-geocom/logger"
	"github.com/arloliu/go-geocom/transport"
)

// ProbeFunc performs one handshake and reports whether the instrument acknowledged it.
type ProbeFunc func(ctx context.Context) bool

// OpenWithRetry runs probe up to maxAttempts times and waits backoff between
// failed attempts. It returns ErrConnection when no attempt succeeded.
// A cancelled context aborts the wait.
func OpenWithRetry(ctx context.Context, probe ProbeFunc, maxAttempts int, backoff time.Duration, l logger.Logger) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if l == nil {
		l = logger.GetLogger()
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if probe(ctx) {
			l.Debug("session: handshake acknowledged", "attempt", attempt)
			return nil
		}
		l.Warn("session: handshake failed", "attempt", attempt, "max_attempts", maxAttempts)

		if attempt == maxAttempts {
			break
		}
		if err := pool.Sleep(ctx, backoff); err != nil {
			return fmt.Errorf("%w: %w", ErrConnection, err)
		}
	}

	return ErrConnection
}

// Resync realigns the answer stream after a timeout.
//
// It sends the no-op probe and discards answers until one is recognized as its
// acknowledgement, reading at most maxRounds answers. It returns the number of
// discarded answers. Any transport failure or running out of rounds yields
// ErrResyncFailed, after which the channel must be treated as unusable.
func Resync(ctx context.Context, t transport.Transport, noop NoOp, maxRounds int) (int, error) {
	if err := t.Send(ctx, noop.Cmd); err != nil {
		return 0, fmt.Errorf("%w: send probe: %w", ErrResyncFailed, err)
	}

	discarded := 0
	for round := 0; round < maxRounds; round++ {
		answer, err := t.Receive(ctx)
		if err != nil {
			return discarded, fmt.Errorf("%w: after %d discarded answers: %w", ErrResyncFailed, discarded, err)
		}
		if noop.IsAck(answer) {
			return discarded, nil
		}
		discarded++
	}

	return discarded, fmt.Errorf("%w: no acknowledgement within %d answers", ErrResyncFailed, maxRounds)
}

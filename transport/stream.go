package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// streamPort adapts an io.ReadWriteCloser. Read slices are bounded only when
// the stream supports read deadlines.
type streamPort struct {
	rwc io.ReadWriteCloser
}

func (p *streamPort) write(b []byte, timeout time.Duration) (int, error) {
	if wd, ok := p.rwc.(writeDeadliner); ok && timeout > 0 {
		if err := wd.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
		defer func() { _ = wd.SetWriteDeadline(time.Time{}) }()
	}

	total := 0
	for total < len(b) {
		n, err := p.rwc.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (p *streamPort) read(b []byte, timeout time.Duration) (int, error) {
	if rd, ok := p.rwc.(readDeadliner); ok {
		if err := rd.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}

	n, err := p.rwc.Read(b)
	if err != nil && isTimeout(err) {
		return n, errReadTimeout
	}

	return n, err
}

func (p *streamPort) close() error {
	return p.rwc.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}

// NewStream wraps an already connected stream, such as a net.Conn to a
// serial-over-TCP bridge. The returned transport is open.
//
// Once closed, a stream transport cannot be re-opened.
func NewStream(rwc io.ReadWriteCloser, cfg *Config) Transport {
	t := newLineTransport("stream", cfg, nil)
	t.port = &streamPort{rwc: rwc}
	t.isOpen.Store(true)

	return t
}

// Dial connects to a serial-over-TCP bridge and returns an open transport.
func Dial(ctx context.Context, network, address string, cfg *Config) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}

	t := newLineTransport(address, cfg, nil)
	t.port = &streamPort{rwc: conn}
	t.isOpen.Store(true)

	return t, nil
}

// Package instrumenttest provides a scripted instrument for protocol tests.
//
// The fake reads CR/LF terminated commands from one end of a net.Pipe and
// answers them through a handler. Outgoing bytes are queued and written by a
// separate goroutine, so unsolicited or delayed answers never block the
// command reader.
package instrumenttest

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// Terminator is appended to every answer line.
const Terminator = "\r\n"

// Handler returns the answer lines for cmd. Returning no lines leaves the
// command unanswered.
type Handler func(cmd string) []string

// Fake is a scripted instrument.
type Fake struct {
	conn    net.Conn
	handler Handler
	out     chan string

	mu   sync.Mutex
	cmds []string
}

// New starts a fake instrument and returns it with the client end of the pipe.
// Both ends are closed on test cleanup.
func New(t testing.TB, handler Handler) (*Fake, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	f := &Fake{
		conn:    remote,
		handler: handler,
		out:     make(chan string, 64),
	}

	done := make(chan struct{})
	go f.readLoop()
	go f.writeLoop(done)

	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
		close(done)
	})

	return f, local
}

// Reply always answers with the given lines.
func Reply(lines ...string) Handler {
	return func(string) []string { return lines }
}

// Script answers each command from a fixed table; unknown commands are not answered.
func Script(table map[string][]string) Handler {
	return func(cmd string) []string { return table[cmd] }
}

// Commands returns the commands received so far.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.cmds...)
}

// Count returns the number of commands received so far.
func (f *Fake) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.cmds)
}

// SendLine queues an unsolicited answer line.
func (f *Fake) SendLine(line string) {
	f.out <- line + Terminator
}

// SendRaw queues raw bytes without a terminator.
func (f *Fake) SendRaw(raw string) {
	f.out <- raw
}

func (f *Fake) readLoop() {
	r := bufio.NewReader(f.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		if cmd == "" {
			continue
		}

		f.mu.Lock()
		f.cmds = append(f.cmds, cmd)
		f.mu.Unlock()

		if f.handler == nil {
			continue
		}
		for _, answer := range f.handler(cmd) {
			f.out <- answer + Terminator
		}
	}
}

func (f *Fake) writeLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-f.out:
			if _, err := f.conn.Write([]byte(data)); err != nil {
				return
			}
		}
	}
}

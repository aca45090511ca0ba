package transport

import (
	"sync/atomic"
)

// Metrics contains atomic counters for a transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// SendCount indicates the number of messages written.
	SendCount atomic.Uint64
	// ReceiveCount indicates the number of complete answers read.
	ReceiveCount atomic.Uint64
	// TimeoutCount indicates the number of receives that hit the timeout.
	TimeoutCount atomic.Uint64
	// ErrorCount indicates the number of read or write failures.
	ErrorCount atomic.Uint64

	// BytesSent indicates the number of bytes written.
	BytesSent atomic.Uint64
	// BytesReceived indicates the number of bytes read, including discarded ones.
	BytesReceived atomic.Uint64
}

// Reset sets all counters to zero.
func (m *Metrics) Reset() {
	m.SendCount.Store(0)
	m.ReceiveCount.Store(0)
	m.TimeoutCount.Store(0)
	m.ErrorCount.Store(0)
	m.BytesSent.Store(0)
	m.BytesReceived.Store(0)
}

func (m *Metrics) incSendCount(n int) {
	m.SendCount.Add(1)
	m.BytesSent.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) incReceiveCount() {
	m.ReceiveCount.Add(1)
}

func (m *Metrics) addBytesReceived(n int) {
	m.BytesReceived.Add(uint64(n)) //nolint:gosec
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incErrorCount() {
	m.ErrorCount.Add(1)
}

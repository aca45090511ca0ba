package geocom

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"
)

// transactionCounter generates GeoCom transaction ids.
//
// The counter advances on every request whatever its outcome and wraps at
// 16 bits. Echoed ids are only used for diagnostics.
type transactionCounter struct {
	id atomic.Uint32
}

// newTransactionCounter starts at a random seed.
func newTransactionCounter() *transactionCounter {
	c := &transactionCounter{}
	var buf [2]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return c
	}
	c.id.Store(uint32(binary.LittleEndian.Uint16(buf[:])))

	return c
}

func (c *transactionCounter) seed(v uint16) {
	c.id.Store(uint32(v))
}

func (c *transactionCounter) next() uint16 {
	return uint16(c.id.Add(1)) //nolint:gosec
}

func (c *transactionCounter) current() uint16 {
	return uint16(c.id.Load()) //nolint:gosec
}

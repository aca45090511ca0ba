package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// serialPort adapts a go.bug.st/serial port. A read that returns no bytes and
// no error means the port read timeout expired.
type serialPort struct {
	port        serial.Port
	readTimeout time.Duration
}

func (p *serialPort) write(b []byte, _ time.Duration) (int, error) {
	total := 0
	for total < len(b) {
		n, err := p.port.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

func (p *serialPort) read(b []byte, timeout time.Duration) (int, error) {
	if timeout != p.readTimeout {
		if err := p.port.SetReadTimeout(timeout); err != nil {
			return 0, err
		}
		p.readTimeout = timeout
	}

	n, err := p.port.Read(b)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, errReadTimeout
	}

	return n, nil
}

func (p *serialPort) close() error {
	return p.port.Close()
}

func serialMode(cfg *Config) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: cfg.dataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if cfg.stopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch cfg.parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	case ParityNone:
	}

	return mode
}

// NewSerial creates a closed transport for the named serial port,
// for example "/dev/ttyUSB0" or "COM4". Call Open before use.
// The port can be re-opened after Close.
func NewSerial(portName string, cfg *Config) Transport {
	return newLineTransport(portName, cfg, func() (port, error) {
		p, err := serial.Open(portName, serialMode(cfg))
		if err != nil {
			return nil, err
		}
		if err := p.ResetInputBuffer(); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("reset input buffer: %w", err)
		}

		return &serialPort{port: p}, nil
	})
}

// OpenSerial creates a serial transport and opens it.
func OpenSerial(portName string, cfg *Config) (Transport, error) {
	t := NewSerial(portName, cfg)
	if err := t.Open(); err != nil {
		return nil, err
	}

	return t, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

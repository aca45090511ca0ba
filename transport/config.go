package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-geocom/logger"
)

// Default transport settings.
const (
	DefaultTimeout      = 15 * time.Second // motorized GeoCom functions may take this long
	DefaultWriteTimeout = 3 * time.Second
	DefaultTerminator   = "\r\n"

	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultStopBits = 1
)

// Range limits.
const (
	MinTimeout = 100 * time.Millisecond
	MaxTimeout = 10 * time.Minute
)

// Parity is the serial parity mode.
type Parity string

const (
	ParityNone  Parity = "none"
	ParityOdd   Parity = "odd"
	ParityEven  Parity = "even"
	ParityMark  Parity = "mark"
	ParitySpace Parity = "space"
)

var validBaudRates = map[int]struct{}{
	1200: {}, 2400: {}, 4800: {}, 9600: {}, 19200: {},
	38400: {}, 57600: {}, 115200: {}, 230400: {},
}

// Config holds the settings shared by all transports.
type Config struct {
	timeout      time.Duration
	writeTimeout time.Duration
	eom          string
	eoa          string

	baudRate int
	dataBits int
	stopBits int
	parity   Parity

	logger logger.Logger
}

// NewConfig creates a transport configuration.
//
// opts are functional options applied in order; see With* functions.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		timeout:      DefaultTimeout,
		writeTimeout: DefaultWriteTimeout,
		eom:          DefaultTerminator,
		eoa:          DefaultTerminator,
		baudRate:     DefaultBaudRate,
		dataBits:     DefaultDataBits,
		stopBits:     DefaultStopBits,
		parity:       ParityNone,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Timeout returns the receive timeout.
func (cfg *Config) Timeout() time.Duration { return cfg.timeout }

// WriteTimeout returns the send timeout for streams supporting write deadlines.
func (cfg *Config) WriteTimeout() time.Duration { return cfg.writeTimeout }

// MessageTerminator returns the end-of-message sequence appended to requests.
func (cfg *Config) MessageTerminator() string { return cfg.eom }

// AnswerTerminator returns the end-of-answer sequence that delimits responses.
func (cfg *Config) AnswerTerminator() string { return cfg.eoa }

// BaudRate returns the serial baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// DataBits returns the serial data bits.
func (cfg *Config) DataBits() int { return cfg.dataBits }

// StopBits returns the serial stop bits.
func (cfg *Config) StopBits() int { return cfg.stopBits }

// Parity returns the serial parity mode.
func (cfg *Config) Parity() Parity { return cfg.parity }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithTimeout sets the receive timeout. Must be in [100ms, 10min].
func WithTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinTimeout || d > MaxTimeout {
			return fmt.Errorf("%w: timeout %v out of range [%v, %v]", ErrInvalidConfig, d, MinTimeout, MaxTimeout)
		}
		cfg.timeout = d

		return nil
	})
}

// WithWriteTimeout sets the send timeout.
func WithWriteTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: write timeout must be positive", ErrInvalidConfig)
		}
		cfg.writeTimeout = d

		return nil
	})
}

// WithMessageTerminator sets the end-of-message sequence. Must not be empty.
func WithMessageTerminator(eom string) Option {
	return optFunc(func(cfg *Config) error {
		if eom == "" {
			return fmt.Errorf("%w: message terminator must not be empty", ErrInvalidConfig)
		}
		cfg.eom = eom

		return nil
	})
}

// WithAnswerTerminator sets the end-of-answer sequence. Must not be empty.
func WithAnswerTerminator(eoa string) Option {
	return optFunc(func(cfg *Config) error {
		if eoa == "" {
			return fmt.Errorf("%w: answer terminator must not be empty", ErrInvalidConfig)
		}
		cfg.eoa = eoa

		return nil
	})
}

// WithBaudRate sets the serial baud rate. Only standard rates are accepted.
func WithBaudRate(rate int) Option {
	return optFunc(func(cfg *Config) error {
		if _, ok := validBaudRates[rate]; !ok {
			return fmt.Errorf("%w: unsupported baud rate %d", ErrInvalidConfig, rate)
		}
		cfg.baudRate = rate

		return nil
	})
}

// WithDataBits sets the serial data bits. Must be in [5, 8].
func WithDataBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("%w: data bits %d out of range [5, 8]", ErrInvalidConfig, bits)
		}
		cfg.dataBits = bits

		return nil
	})
}

// WithStopBits sets the serial stop bits. Must be 1 or 2.
func WithStopBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits != 1 && bits != 2 {
			return fmt.Errorf("%w: stop bits must be 1 or 2, got %d", ErrInvalidConfig, bits)
		}
		cfg.stopBits = bits

		return nil
	})
}

// WithParity sets the serial parity mode.
func WithParity(p Parity) Option {
	return optFunc(func(cfg *Config) error {
		switch p {
		case ParityNone, ParityOdd, ParityEven, ParityMark, ParitySpace:
			cfg.parity = p
			return nil
		default:
			return fmt.Errorf("%w: unknown parity %q", ErrInvalidConfig, p)
		}
	})
}

// WithLogger sets the logger for the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// Package geocom implements the GeoCom RPC protocol of Leica total stations.
//
// A request is "%R1Q,<rpc>,<trid>:<params>" and its answer
// "%R1P,<comrc>,<trid>:<rc>,<fields>". The Client never returns transport
// errors from requests: every failure is described by the return codes of
// the Response it produces.
package geocom

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-geocom/logger"
	"github.com/arloliu/go-geocom/session"
	"github.com/arloliu/go-geocom/transport"
)

// wakeup is written before each handshake to flush the instrument receiver.
const wakeup = "\n"

// Client is a GeoCom protocol engine. It exclusively owns its transport.
type Client struct {
	sess   *session.Session
	logger logger.Logger
	family Family
	caps   *Capabilities

	precision atomic.Int32
	trans     *transactionCounter
}

// NewClient creates a client over t. Call Open before issuing requests.
func NewClient(t transport.Transport, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		family:    TPS1200P,
		logger:    logger.GetLogger(),
		precision: DefaultPrecision,
	}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	caps, ok := CapabilitiesOf(cfg.family)
	if !ok {
		return nil, fmt.Errorf("geocom: unknown instrument family %q", cfg.family)
	}

	c := &Client{
		logger: cfg.logger.With("protocol", "geocom", "family", string(cfg.family)),
		family: cfg.family,
		caps:   caps,
		trans:  newTransactionCounter(),
	}
	c.precision.Store(int32(cfg.precision)) //nolint:gosec
	if cfg.seed != nil {
		c.trans.seed(*cfg.seed)
	}

	sessOpts := append([]session.Option{session.WithLogger(c.logger)}, cfg.sessOpts...)
	sess, err := session.New(t, c, sessOpts...)
	if err != nil {
		return nil, err
	}
	c.sess = sess

	return c, nil
}

// Open opens the transport, performs the handshake with retries and syncs
// the floating point precision. It returns session.ErrConnection when the
// instrument did not answer.
func (c *Client) Open(ctx context.Context) error {
	if err := c.sess.Open(ctx); err != nil {
		return err
	}

	digits, resp := c.GetDoublePrecision(ctx)
	if _, valid := resp.Params.At(0); resp.OK() && valid {
		c.precision.Store(int32(digits)) //nolint:gosec
		c.logger.Info("geocom: synced double precision", "precision", digits)
	} else {
		c.logger.Error("geocom: could not synchronize double precision",
			"precision", c.Precision(), "code", resp.Code().String())
	}

	return nil
}

// Close closes the owned transport.
func (c *Client) Close() error {
	return c.sess.Close()
}

// Session returns the owned session.
func (c *Client) Session() *session.Session {
	return c.sess
}

// Family returns the instrument family.
func (c *Client) Family() Family {
	return c.family
}

// Capabilities returns the commands supported by the instrument family.
func (c *Client) Capabilities() *Capabilities {
	return c.caps
}

// Precision returns the number of decimals used for floating point parameters.
func (c *Client) Precision() int {
	return int(c.precision.Load())
}

// Transaction returns the last transaction id used.
func (c *Client) Transaction() uint16 {
	return c.trans.current()
}

// Handshake wakes the instrument and runs COM_NullProc.
func (c *Client) Handshake(ctx context.Context) bool {
	if err := c.sess.Send(ctx, wakeup); err != nil {
		c.logger.Debug("geocom: wake up failed", "error", err)
		return false
	}

	return c.NullProc(ctx).OK()
}

// NoOp returns a COM_NullProc request acknowledged only by an answer
// echoing its transaction id, or by one carrying no id at all.
func (c *Client) NoOp() session.NoOp {
	trid := c.trans.next()

	return session.NoOp{
		Cmd: requestLine(0, trid, nil),
		IsAck: func(answer string) bool {
			h, ok := parseHeader(answer)
			if !ok || !h.comCode.IsOK() || !h.rpcCode.IsOK() {
				return false
			}

			return !h.hasTrans || h.trans == int(trid)
		},
	}
}

// Request executes an RPC and decodes its answer. It never fails: transport
// and encoding problems are reported through the response return codes.
func (c *Client) Request(ctx context.Context, rpc int, params []any, decs Decoders) *Response {
	trid := c.trans.next()
	name := rpcName(rpc)

	encoded, err := EncodeParams(params, c.Precision())
	if err != nil {
		c.logger.Error("geocom: cannot encode request", "rpc", rpc, "name", name, "error", err)
		return &Response{
			RPC:     rpc,
			Name:    name,
			Cmd:     requestLine(rpc, trid, nil),
			ComCode: GrcComCantEncode,
			RPCCode: GrcUndefined,
		}
	}

	cmd := requestLine(rpc, trid, encoded)
	start := time.Now()
	answer, err := c.sess.Exchange(ctx, cmd)
	if err != nil {
		code := transportCode(err)
		c.logger.Error("geocom: exchange failed", "rpc", rpc, "name", name, "code", code.String(), "error", err)

		return &Response{
			RPC:     rpc,
			Name:    name,
			Cmd:     cmd,
			ComCode: code,
			RPCCode: GrcUndefined,
		}
	}

	resp := ParseResponse(rpc, cmd, answer, decs)
	resp.Name = name
	for _, f := range resp.Params.fields {
		if f.Err != nil {
			c.logger.Warn("geocom: field decode failed", "rpc", rpc, "name", name, "field", f.Name, "error", f.Err)
		}
	}
	c.logger.Debug("geocom: request", "cmd", cmd, "answer", answer, "response", resp.String(), "elapsed", time.Since(start))

	return resp
}

func requestLine(rpc int, trid uint16, params []string) string {
	return "%R1Q," + strconv.Itoa(rpc) + "," + strconv.Itoa(int(trid)) + ":" + strings.Join(params, ",")
}

// transportCode maps a transport failure to a communication return code.
func transportCode(err error) ReturnCode {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return GrcComTimedOut
	case errors.Is(err, transport.ErrInvalidPayload):
		return GrcComCantEncode
	case errors.Is(err, transport.ErrChannelClosed), errors.Is(err, transport.ErrWrite):
		return GrcComCantSend
	case errors.Is(err, transport.ErrRead):
		return GrcComCantRecv
	default:
		return GrcComFailed
	}
}

// --- ClientOption ---

type clientConfig struct {
	family    Family
	logger    logger.Logger
	precision int
	seed      *uint16
	sessOpts  []session.Option
}

// ClientOption is a functional option for configuring a Client.
type ClientOption interface {
	apply(*clientConfig) error
}

type clientOptFunc func(*clientConfig) error

func (f clientOptFunc) apply(cfg *clientConfig) error { return f(cfg) }

// WithFamily selects the instrument family and thereby its command set.
// The default is TPS1200P.
func WithFamily(f Family) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		cfg.family = f
		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		if l == nil {
			return errors.New("geocom: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithPrecision sets the initial floating point precision. Must be in [0, 15].
func WithPrecision(digits int) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		if digits < 0 || digits > DefaultPrecision {
			return fmt.Errorf("geocom: precision %d out of range [0, %d]", digits, DefaultPrecision)
		}
		cfg.precision = digits

		return nil
	})
}

// WithTransactionSeed sets the transaction counter start value. The first
// request uses seed+1. By default the seed is random.
func WithTransactionSeed(seed uint16) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		cfg.seed = &seed
		return nil
	})
}

// WithMaxAttempts sets the number of handshake attempts on Open.
func WithMaxAttempts(n int) ClientOption {
	return withSessionOption(session.WithMaxAttempts(n))
}

// WithBackoff sets the wait between failed handshake attempts.
func WithBackoff(d time.Duration) ClientOption {
	return withSessionOption(session.WithBackoff(d))
}

// WithResync enables stream resynchronization after timeouts.
func WithResync(enabled bool) ClientOption {
	return withSessionOption(session.WithResync(enabled))
}

// WithResyncRounds sets the maximum number of answers discarded during a resync.
func WithResyncRounds(n int) ClientOption {
	return withSessionOption(session.WithResyncRounds(n))
}

func withSessionOption(opt session.Option) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		cfg.sessOpts = append(cfg.sessOpts, opt)
		return nil
	})
}

// Package gsi implements the GSI Online word protocol of Leica digital levels.
//
// Requests are SET/<param>/<value>, CONF/<param>, PUT/<word> and
// GET/<mode>/WI<index>. A request never returns a transport error: failures
// are reported by the Comment of the Response.
package gsi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-geocom/logger"
	"github.com/arloliu/go-geocom/session"
	"github.com/arloliu/go-geocom/transport"
)

var (
	confPattern = regexp.MustCompile(`^(\d{4})/(\d{4})$`)
	wordPattern = regexp.MustCompile(`^\*?[0-9.]{6}[+-](?:[a-zA-Z0-9]{8}|[a-zA-Z0-9]{16}) $`)
	// formatAck matches the answer of the resync probe CONF/137.
	formatAck = regexp.MustCompile(`^0137/\d{4}$`)
)

// ack is the success answer of SET, PUT and the low level commands.
const ack = "?"

// Mode selects how a GET request obtains its value.
type Mode string

const (
	// ModeInstant returns the value without triggering a measurement.
	ModeInstant Mode = "I"
	// ModeMeasure triggers a measurement.
	ModeMeasure Mode = "M"
	// ModeContinuous starts a continuous measurement.
	ModeContinuous Mode = "C"
)

// ParseMode validates a mode letter.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeInstant, ModeMeasure, ModeContinuous:
		return m, nil
	default:
		return "", errors.New("gsi: mode must be one of I, M, C")
	}
}

// Client is a GSI Online protocol engine. It exclusively owns its transport.
type Client struct {
	sess   *session.Session
	logger logger.Logger
	gsi16  atomic.Bool
}

// NewClient creates a client over t. Call Open before issuing requests.
func NewClient(t transport.Transport, opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{logger: logger.GetLogger()}
	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	c := &Client{logger: cfg.logger.With("protocol", "gsi")}
	c.gsi16.Store(cfg.width == GSI16)

	sessOpts := append([]session.Option{session.WithLogger(c.logger)}, cfg.sessOpts...)
	sess, err := session.New(t, c, sessOpts...)
	if err != nil {
		return nil, err
	}
	c.sess = sess

	return c, nil
}

// Open opens the transport, wakes the instrument with retries and syncs the
// word width. It returns session.ErrConnection when the instrument did not answer.
func (c *Client) Open(ctx context.Context) error {
	if err := c.sess.Open(ctx); err != nil {
		return err
	}

	if resp := c.GetFormat(ctx); !resp.OK() {
		c.logger.Error("gsi: could not synchronize word format", "width", c.Width().String(), "comment", string(resp.Comment))
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

// Width returns the word width currently used by the connection.
func (c *Client) Width() Width {
	if c.gsi16.Load() {
		return GSI16
	}

	return GSI8
}

func (c *Client) setWidth(w Width) {
	c.gsi16.Store(w == GSI16)
}

// Word builds a word in the current width.
func (c *Client) Word(wi int, data string, opts ...WordOption) string {
	return buildWord(wi, data, c.Width(), opts...)
}

// Handshake sends the wake up command and expects the "?" acknowledgement.
func (c *Client) Handshake(ctx context.Context) bool {
	answer, err := c.sess.Exchange(ctx, "a")
	if err != nil {
		c.logger.Debug("gsi: wake up failed", "error", err)
		return false
	}

	return answer == ack
}

// NoOp returns a format query, acknowledged by its configuration echo.
func (c *Client) NoOp() session.NoOp {
	return session.NoOp{
		Cmd:   "CONF/" + strconv.Itoa(ParamFormat),
		IsAck: formatAck.MatchString,
	}
}

// exchange performs one round trip. A transport failure is replaced by the
// unknown error token and reported as CommentExchange.
func (c *Client) exchange(ctx context.Context, cmd string) (string, Comment) {
	start := time.Now()
	answer, err := c.sess.Exchange(ctx, cmd)
	if err != nil {
		c.logger.Error("gsi: exchange failed", "cmd", cmd, "error", err)
		return string(TokenUnknown), CommentExchange
	}
	c.logger.Debug("gsi: exchange", "cmd", cmd, "answer", answer, "elapsed", time.Since(start))

	return answer, ""
}

func (c *Client) acknowledged(ctx context.Context, desc, cmd string) *Response[bool] {
	answer, comment := c.exchange(ctx, cmd)
	resp := &Response[bool]{Desc: desc, Cmd: cmd, Raw: answer, Value: answer == ack, Valid: true, Comment: comment}
	if !resp.Value && resp.Comment == "" {
		resp.Comment = CommentInstrument
	}
	c.logger.Debug("gsi: response", "response", resp.String())

	return resp
}

// Set changes an instrument parameter. A successful change of the word
// format parameter also switches the connection width.
func (c *Client) Set(ctx context.Context, param, value int) *Response[bool] {
	cmd := "SET/" + strconv.Itoa(param) + "/" + strconv.Itoa(value)
	resp := c.acknowledged(ctx, ParamDescription(param), cmd)
	if param == ParamFormat && resp.OK() {
		if w, err := DecodeWidth(strconv.Itoa(value)); err == nil {
			c.setWidth(w)
		}
	}

	return resp
}

// Put writes a complete word. wi only selects the description.
func (c *Client) Put(ctx context.Context, wi int, word string) *Response[bool] {
	return c.acknowledged(ctx, WordDescription(wi), "PUT/"+word)
}

// Request sends a low level command and expects the "?" acknowledgement.
func (c *Client) Request(ctx context.Context, cmd string) *Response[bool] {
	return c.acknowledged(ctx, "", cmd)
}

// Conf queries an instrument parameter and decodes its value.
func Conf[T any](ctx context.Context, c *Client, param int, dec Decoder[T]) *Response[T] {
	cmd := "CONF/" + strconv.Itoa(param)
	answer, comment := c.exchange(ctx, cmd)
	resp := &Response[T]{Desc: ParamDescription(param), Cmd: cmd, Raw: answer, Comment: comment}

	if m := confPattern.FindStringSubmatch(answer); m != nil {
		decode(c, resp, dec, m[2])
	} else if resp.Comment == "" {
		resp.Comment = CommentInstrument
	}
	c.logger.Debug("gsi: response", "response", resp.String())

	return resp
}

// Get reads a word and decodes it.
func Get[T any](ctx context.Context, c *Client, mode Mode, wi int, dec Decoder[T]) *Response[T] {
	cmd := "GET/" + string(mode) + "/WI" + strconv.Itoa(wi)
	answer, comment := c.exchange(ctx, cmd)
	resp := &Response[T]{Desc: WordDescription(wi), Cmd: cmd, Raw: answer, Comment: comment}

	if wordPattern.MatchString(answer) {
		decode(c, resp, dec, answer)
	} else if resp.Comment == "" {
		resp.Comment = CommentInstrument
	}
	c.logger.Debug("gsi: response", "response", resp.String())

	return resp
}

func decode[T any](c *Client, resp *Response[T], dec Decoder[T], value string) {
	v, err := safeDecode(dec, value)
	if err != nil {
		c.logger.Warn("gsi: decode failed", "cmd", resp.Cmd, "answer", resp.Raw, "error", err)
		resp.Comment = CommentParse

		return
	}
	resp.Value, resp.Valid = v, true
}

func safeDecode[T any](dec Decoder[T], value string) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gsi: decoder panic: %v", r)
		}
	}()

	return dec(value)
}

// --- ClientOption ---

type clientConfig struct {
	logger   logger.Logger
	width    Width
	sessOpts []session.Option
}

// ClientOption is a functional option for configuring a Client.
type ClientOption interface {
	apply(*clientConfig) error
}

type clientOptFunc func(*clientConfig) error

func (f clientOptFunc) apply(cfg *clientConfig) error { return f(cfg) }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		if l == nil {
			return errors.New("gsi: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithWidth sets the word width assumed until the instrument reports its own.
func WithWidth(w Width) ClientOption {
	return clientOptFunc(func(cfg *clientConfig) error {
		if w != GSI8 && w != GSI16 {
			return errors.New("gsi: width must be GSI8 or GSI16")
		}
		cfg.width = w

		return nil
	})
}

// WithMaxAttempts sets the number of wake up attempts on Open.
func WithMaxAttempts(n int) ClientOption {
	return withSessionOption(session.WithMaxAttempts(n))
}

// WithBackoff sets the wait between failed wake up attempts.
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

package gsi

import (
	"fmt"
	"strings"
)

// Comment classifies why a request failed. The zero value means no failure.
type Comment string

const (
	// CommentExchange marks a transport failure.
	CommentExchange Comment = "EXCHANGE"
	// CommentInstrument marks an answer that is not the expected success form.
	CommentInstrument Comment = "INSTRUMENT"
	// CommentParse marks a well formed answer whose value could not be decoded.
	CommentParse Comment = "PARSE"
)

// ErrorToken is an error answer of the instrument. Name returns the
// manual mnemonic of a known token, e.g. W_INVCMD for TokenInvalidCommand.
type ErrorToken string

const (
	TokenBusy           ErrorToken = "@W400"
	TokenInvalidCommand ErrorToken = "@W427"
	TokenUnknown        ErrorToken = "@E0"
	TokenTilt           ErrorToken = "@E458"
	TokenNoMeasure      ErrorToken = "@E439"
)

var errorTokenNames = map[ErrorToken]string{
	TokenBusy:           "W_BUSY",
	TokenInvalidCommand: "W_INVCMD",
	TokenUnknown:        "E_UNKNOWN",
	TokenTilt:           "E_TILT",
	TokenNoMeasure:      "E_NOMEASURE",
}

// Name returns the symbolic name of a known token, or the token itself.
func (e ErrorToken) Name() string {
	if name, ok := errorTokenNames[e]; ok {
		return name
	}

	return string(e)
}

// IsWarning reports whether the token is a warning (@W) rather than an error (@E).
func (e ErrorToken) IsWarning() bool {
	return strings.HasPrefix(string(e), "@W")
}

// ParseErrorToken reports whether raw is an instrument error answer.
func ParseErrorToken(raw string) (ErrorToken, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 3 || raw[0] != '@' || (raw[1] != 'E' && raw[1] != 'W') {
		return "", false
	}

	return ErrorToken(raw), true
}

// Response is the result of one GSI Online request.
type Response[T any] struct {
	// Desc describes the parameter or word addressed by the request.
	Desc string
	// Cmd is the request sent and Raw the answer received.
	Cmd string
	Raw string

	Value T
	// Valid is false when no value could be produced.
	Valid   bool
	Comment Comment
}

// OK reports whether the request succeeded.
func (r *Response[T]) OK() bool {
	return r.Valid && r.Comment == ""
}

// ErrorToken returns the instrument error carried by the answer, if any.
func (r *Response[T]) ErrorToken() (ErrorToken, bool) {
	return ParseErrorToken(r.Raw)
}

func (r *Response[T]) String() string {
	status := "success"
	if !r.OK() {
		status = "fail (" + string(r.Comment) + ")"
	}

	value := "<none>"
	if r.Valid {
		value = fmt.Sprint(r.Value)
	}

	return fmt.Sprintf("Response(%s) %s, value: %s, (cmd: %q, answer: %q)", r.Desc, status, value, r.Cmd, r.Raw)
}

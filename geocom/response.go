package geocom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// responsePattern matches "[%R1P,]<comrc>[,<trid>]:<rc>[,<fields>]".
var responsePattern = regexp.MustCompile(`^(?:%R1P,)?(\d+)(?:,(\d+))?:(\d+)(?:,(.*))?$`)

// Response is the result of one RPC.
//
// Params is populated only when both return codes are GrcOK.
type Response struct {
	// RPC is the request id and Name its catalog name, when known.
	RPC  int
	Name string
	// Cmd is the serialized request and Raw the received answer.
	Cmd string
	Raw string

	// ComCode is the communication layer return code.
	ComCode ReturnCode
	// RPCCode is the instrument return code.
	RPCCode ReturnCode
	// Trans is the transaction id echoed by the instrument.
	Trans int

	Params Params
}

// OK reports whether both the communication and the instrument succeeded.
func (r *Response) OK() bool {
	return r.ComCode.IsOK() && r.RPCCode.IsOK()
}

// Code returns the first failing return code, or GrcOK.
func (r *Response) Code() ReturnCode {
	if !r.ComCode.IsOK() {
		return r.ComCode
	}

	return r.RPCCode
}

func (r *Response) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(com=%s, rpc=%s, tr=%d", r.label(), r.ComCode, r.RPCCode, r.Trans)
	for _, f := range r.Params.fields {
		if f.Valid {
			fmt.Fprintf(&sb, ", %s=%v", f.Name, f.Value)
		} else {
			fmt.Fprintf(&sb, ", %s=<none>", f.Name)
		}
	}
	sb.WriteByte(')')

	return sb.String()
}

func (r *Response) label() string {
	if r.Name != "" {
		return r.Name
	}

	return "RPC" + strconv.Itoa(r.RPC)
}

// header is the administrative prefix of an answer.
type header struct {
	comCode  ReturnCode
	rpcCode  ReturnCode
	trans    int
	hasTrans bool
	tail     string
}

func parseHeader(answer string) (header, bool) {
	m := responsePattern.FindStringSubmatch(answer)
	if m == nil {
		return header{}, false
	}

	com, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return header{}, false
	}
	rc, err := strconv.ParseUint(m[3], 10, 16)
	if err != nil {
		return header{}, false
	}

	h := header{comCode: ReturnCode(com), rpcCode: ReturnCode(rc), tail: m[4]}
	if m[2] != "" {
		h.trans, _ = strconv.Atoi(m[2])
		h.hasTrans = true
	}

	return h, true
}

// ParseResponse decodes an answer to the request cmd.
//
// A malformed header yields GrcComCantDecode and GrcUndefined. Field
// decoding is skipped when either return code signals failure; otherwise each
// declared field is decoded independently.
func ParseResponse(rpc int, cmd, answer string, decs Decoders) *Response {
	resp := &Response{RPC: rpc, Cmd: cmd, Raw: answer}

	h, ok := parseHeader(answer)
	if !ok {
		resp.ComCode = GrcComCantDecode
		resp.RPCCode = GrcUndefined

		return resp
	}

	resp.ComCode = h.comCode
	resp.RPCCode = h.rpcCode
	resp.Trans = h.trans
	if resp.OK() {
		resp.Params = decs.decode(splitFields(h.tail))
	}

	return resp
}

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arloliu/go-geocom/geocom"
	"github.com/arloliu/go-geocom/gsi"
	"github.com/arloliu/go-geocom/logger"
)

// maxRPCFields bounds the undecoded answer fields of a raw RPC.
const maxRPCFields = 64

var (
	errLineBreak = errors.New("value must not contain line breaks")

	setCommand = regexp.MustCompile(`^SET/(\d+)/(\d+)$`)
)

// checkLine rejects values that would put more than one command on the wire.
func checkLine(s string) error {
	if strings.ContainsAny(s, "\r\n") {
		return errLineBreak
	}

	return nil
}

// Handler serves the instrument endpoints.
type Handler struct {
	registry *Registry
	logger   logger.Logger
}

// NewHandler creates a handler over the registered engines.
func NewHandler(registry *Registry, l logger.Logger) *Handler {
	return &Handler{registry: registry, logger: l}
}

// Health reports the state of every registered engine.
func (h *Handler) Health(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "Gateway is healthy", gin.H{
		"status":      "ok",
		"instruments": h.registry.Statuses(),
	})
}

// --- GeoCom ---

// FieldView is one decoded GeoCom response field.
type FieldView struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// RPCView is the JSON form of a GeoCom response.
type RPCView struct {
	RPC     int         `json:"rpc"`
	Name    string      `json:"name,omitempty"`
	Cmd     string      `json:"cmd"`
	Raw     string      `json:"raw"`
	ComCode uint16      `json:"com_code"`
	ComName string      `json:"com_name"`
	RPCCode uint16      `json:"rpc_code"`
	RPCName string      `json:"rpc_name"`
	Trans   int         `json:"trans"`
	Fields  []FieldView `json:"fields"`
}

func rpcView(resp *geocom.Response) RPCView {
	v := RPCView{
		RPC:     resp.RPC,
		Name:    resp.Name,
		Cmd:     resp.Cmd,
		Raw:     resp.Raw,
		ComCode: uint16(resp.ComCode),
		ComName: resp.ComCode.String(),
		RPCCode: uint16(resp.RPCCode),
		RPCName: resp.RPCCode.String(),
		Trans:   resp.Trans,
		Fields:  []FieldView{},
	}
	for _, f := range resp.Params.Fields() {
		fv := FieldView{Name: f.Name, Value: f.Value, Valid: f.Valid}
		if f.Err != nil {
			fv.Error = f.Err.Error()
		}
		v.Fields = append(v.Fields, fv)
	}

	return v
}

// RPCRequest is the body of POST /geocom/rpc.
type RPCRequest struct {
	RPC    int               `json:"rpc"`
	Params []json.RawMessage `json:"params"`
	// Fields is the number of answer fields returned undecoded when the RPC
	// is not in the catalog of the instrument family.
	Fields int `json:"fields"`
}

// GeoComRPC executes a raw RPC.
func (h *Handler) GeoComRPC(c *gin.Context) {
	client, ok := h.geocom(c)
	if !ok {
		return
	}

	var req RPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RPC < 0 || req.Fields < 0 {
		ErrorResponse(c, http.StatusBadRequest, "rpc and fields must not be negative", nil)
		return
	}
	if req.Fields > maxRPCFields {
		ErrorResponse(c, http.StatusBadRequest, "Too many fields",
			fmt.Errorf("fields must not exceed %d", maxRPCFields))
		return
	}

	params, err := decodeParams(req.Params)
	if err != nil {
		h.logger.Warn("gateway: rejected rpc parameters", "rpc", req.RPC, "error", err)
		ErrorResponse(c, http.StatusBadRequest, "Invalid parameters", err)
		return
	}

	decs := geocom.Positional(make([]geocom.Decoder, req.Fields)...)
	if cmd, found := commandByID(client.Capabilities(), req.RPC); found {
		decs = cmd.Decoders
	}

	resp := client.Request(c.Request.Context(), req.RPC, params, decs)
	InstrumentResponse(c, resp.OK(), resp.Code().String(), rpcView(resp))
}

// GeoComCall executes a catalog command without parameters.
func (h *Handler) GeoComCall(c *gin.Context) {
	client, ok := h.geocom(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if !client.Capabilities().Supports(name) {
		ErrorResponse(c, http.StatusNotFound, "Command not available",
			fmt.Errorf("%s is not supported by %s", name, client.Family()))
		return
	}

	resp := client.Call(c.Request.Context(), name)
	InstrumentResponse(c, resp.OK(), resp.Code().String(), rpcView(resp))
}

// CommandView is one catalog entry.
type CommandView struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields,omitempty"`
}

// GeoComCatalog lists the commands of the instrument family.
func (h *Handler) GeoComCatalog(c *gin.Context) {
	client, ok := h.geocom(c)
	if !ok {
		return
	}

	cmds := client.Capabilities().Commands()
	views := make([]CommandView, 0, len(cmds))
	for _, cmd := range cmds {
		view := CommandView{ID: cmd.ID, Name: cmd.Name}
		if cmd.Decoders.IsNamed() {
			view.Fields = cmd.Decoders.Names()
		}
		views = append(views, view)
	}

	SuccessResponse(c, http.StatusOK, "Catalog retrieved", gin.H{
		"family":   client.Family(),
		"commands": views,
	})
}

func (h *Handler) geocom(c *gin.Context) (*geocom.Client, bool) {
	client, err := h.registry.GeoCom()
	if err != nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "GeoCom instrument not available", err)
		return nil, false
	}

	return client, true
}

func commandByID(caps *geocom.Capabilities, id int) (geocom.Command, bool) {
	for _, cmd := range caps.Commands() {
		if cmd.ID == id {
			return cmd, true
		}
	}

	return geocom.Command{}, false
}

// decodeParams converts JSON values to GeoCom parameters. Numbers written
// with a fraction or exponent become doubles, other numbers integers.
func decodeParams(raw []json.RawMessage) ([]any, error) {
	params := make([]any, 0, len(raw))
	for i, msg := range raw {
		msg = bytes.TrimSpace(msg)
		if len(msg) == 0 {
			return nil, fmt.Errorf("parameter %d: empty value", i)
		}

		var (
			v   any
			err error
		)
		switch {
		case msg[0] == '"':
			var s string
			if err = json.Unmarshal(msg, &s); err == nil {
				err = checkLine(s)
			}
			v = s
		case bytes.Equal(msg, []byte("true")), bytes.Equal(msg, []byte("false")):
			v = msg[0] == 't'
		case bytes.ContainsAny(msg, ".eE"):
			v, err = strconv.ParseFloat(string(msg), 64)
		default:
			v, err = strconv.Atoi(string(msg))
		}
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		params = append(params, v)
	}

	return params, nil
}

// --- GSI Online ---

// GSIView is the JSON form of a GSI Online response.
type GSIView struct {
	Desc    string `json:"desc,omitempty"`
	Cmd     string `json:"cmd"`
	Raw     string `json:"raw"`
	Value   any    `json:"value,omitempty"`
	Valid   bool   `json:"valid"`
	Comment string `json:"comment,omitempty"`
	Error   string `json:"error,omitempty"`
}

func gsiView[T any](resp *gsi.Response[T]) GSIView {
	v := GSIView{
		Desc:    resp.Desc,
		Cmd:     resp.Cmd,
		Raw:     resp.Raw,
		Valid:   resp.Valid,
		Comment: string(resp.Comment),
	}
	if resp.Valid {
		v.Value = resp.Value
	}
	if tok, ok := resp.ErrorToken(); ok {
		v.Error = tok.Name()
	}

	return v
}

func gsiMessage[T any](resp *gsi.Response[T]) string {
	if resp.OK() {
		return "OK"
	}

	return string(resp.Comment)
}

// GSIRequestBody is the body of POST /gsi/request.
type GSIRequestBody struct {
	Cmd string `json:"cmd" binding:"required"`
}

// GSIRequest sends a low level command. SET commands go through Client.Set so
// a format change also switches the connection width.
func (h *Handler) GSIRequest(c *gin.Context) {
	client, ok := h.gsi(c)
	if !ok {
		return
	}

	var req GSIRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := checkLine(req.Cmd); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid command", err)
		return
	}

	if m := setCommand.FindStringSubmatch(req.Cmd); m != nil {
		param, perr := strconv.Atoi(m[1])
		value, verr := strconv.Atoi(m[2])
		if perr == nil && verr == nil {
			resp := client.Set(c.Request.Context(), param, value)
			InstrumentResponse(c, resp.OK(), gsiMessage(resp), gsiView(resp))
			return
		}
	}

	resp := client.Request(c.Request.Context(), req.Cmd)
	InstrumentResponse(c, resp.OK(), gsiMessage(resp), gsiView(resp))
}

// GSIConf queries an instrument parameter.
func (h *Handler) GSIConf(c *gin.Context) {
	client, ok := h.gsi(c)
	if !ok {
		return
	}

	param, err := strconv.Atoi(c.Param("param"))
	if err != nil || param < 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid parameter index", err)
		return
	}

	resp := gsi.Conf(c.Request.Context(), client, param, gsi.DecodeInt)
	InstrumentResponse(c, resp.OK(), gsiMessage(resp), gsiView(resp))
}

// GSISetBody is the body of POST /gsi/conf/:param.
type GSISetBody struct {
	Value *int `json:"value" binding:"required"`
}

// GSISet changes an instrument parameter.
func (h *Handler) GSISet(c *gin.Context) {
	client, ok := h.gsi(c)
	if !ok {
		return
	}

	param, err := strconv.Atoi(c.Param("param"))
	if err != nil || param < 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid parameter index", err)
		return
	}

	var req GSISetBody
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	resp := client.Set(c.Request.Context(), param, *req.Value)
	InstrumentResponse(c, resp.OK(), gsiMessage(resp), gsiView(resp))
}

// GSIWord reads a word. The mode query parameter defaults to I.
func (h *Handler) GSIWord(c *gin.Context) {
	client, ok := h.gsi(c)
	if !ok {
		return
	}

	wi, err := strconv.Atoi(c.Param("wi"))
	if err != nil || wi < 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid word index", err)
		return
	}
	mode, err := gsi.ParseMode(c.DefaultQuery("mode", string(gsi.ModeInstant)))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid mode", err)
		return
	}

	resp := gsi.Get(c.Request.Context(), client, mode, wi, wordDecoder(wi))
	InstrumentResponse(c, resp.OK(), gsiMessage(resp), gsiView(resp))
}

func (h *Handler) gsi(c *gin.Context) (*gsi.Client, bool) {
	client, err := h.registry.GSI()
	if err != nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "GSI instrument not available", err)
		return nil, false
	}

	return client, true
}

func anyOf[T any](dec gsi.Decoder[T]) gsi.Decoder[any] {
	return func(value string) (any, error) {
		v, err := dec(value)
		if err != nil {
			return nil, err
		}

		return v, nil
	}
}

var wordDecoders = map[int]gsi.Decoder[any]{
	gsi.WordDistance:    anyOf(gsi.DecodeDistance),
	gsi.WordReading:     anyOf(gsi.DecodeReading),
	gsi.WordTemperature: anyOf(gsi.DecodeTemperature),
	gsi.WordTime:        anyOf(gsi.DecodeTime),
	gsi.WordDate:        anyOf(gsi.DecodeDate),
	gsi.WordYear:        anyOf(gsi.DecodeYear),
	gsi.WordFullDate:    anyOf(gsi.DecodeFullDate),
	gsi.WordDayTime:     anyOf(gsi.DecodeDayTime),
}

// wordDecoder returns the decoder of a known word, or the text decoder.
func wordDecoder(wi int) gsi.Decoder[any] {
	if dec, ok := wordDecoders[wi]; ok {
		return dec
	}

	return anyOf(gsi.DecodeText)
}

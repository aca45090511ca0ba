package geocom

import (
	"context"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// Family identifies a generation of GeoCom instruments.
type Family string

const (
	TPS1000  Family = "TPS1000"
	TPS1100  Family = "TPS1100"
	TPS1200P Family = "TPS1200P"
	VivaTPS  Family = "VivaTPS"
)

// Command is one catalog entry: the RPC id, its name and the decoders of its
// answer fields.
type Command struct {
	ID       int
	Name     string
	Decoders Decoders
}

// Command names.
const (
	CmdNullProc              = "COM_NullProc"
	CmdGetSWVersion          = "COM_GetSWVersion"
	CmdGetDoublePrecision    = "COM_GetDoublePrecision"
	CmdSetDoublePrecision    = "COM_SetDoublePrecision"
	CmdSwitchOffTPS          = "COM_SwitchOffTPS"
	CmdGetInstrumentName     = "CSV_GetInstrumentName"
	CmdGetInstrumentNo       = "CSV_GetInstrumentNo"
	CmdGetDateTime           = "CSV_GetDateTime"
	CmdGetDateTimeCentiSec   = "CSV_GetDateTimeCentiSec"
	CmdGetIntTemp            = "CSV_GetIntTemp"
	CmdGetFirmwareVersion    = "CSV_GetSWVersion"
	CmdGetSimpleMea          = "TMC_GetSimpleMea"
	CmdGetAngle5             = "TMC_GetAngle5"
	CmdLaserpointer          = "EDM_Laserpointer"
	CmdBeepAlarm             = "BMM_BeepAlarm"
	CmdBeepNormal            = "BMM_BeepNormal"
	CmdGetBinaryAvailable    = "COM_GetBinaryAvailable"
	CmdGetReflectorlessClass = "CSV_GetReflectorlessClass"
)

var (
	comNullProc           = Command{ID: 0, Name: CmdNullProc}
	comGetSWVersion       = Command{ID: 110, Name: CmdGetSWVersion, Decoders: Named(Field{"release", DecodeInt}, Field{"version", DecodeInt}, Field{"subversion", DecodeInt})}
	comGetDoublePrecision = Command{ID: 108, Name: CmdGetDoublePrecision, Decoders: Positional(DecodeInt)}
	comSetDoublePrecision = Command{ID: 107, Name: CmdSetDoublePrecision}
	comSwitchOffTPS       = Command{ID: 112, Name: CmdSwitchOffTPS}
	comGetBinaryAvailable = Command{ID: 113, Name: CmdGetBinaryAvailable, Decoders: Positional(DecodeBool)}

	csvGetInstrumentName = Command{ID: 5004, Name: CmdGetInstrumentName, Decoders: Positional(DecodeString)}
	csvGetInstrumentNo   = Command{ID: 5003, Name: CmdGetInstrumentNo, Decoders: Positional(DecodeInt)}
	csvGetDateTime       = Command{ID: 5008, Name: CmdGetDateTime, Decoders: Named(
		Field{"year", DecodeInt}, Field{"month", DecodeByte}, Field{"day", DecodeByte},
		Field{"hour", DecodeByte}, Field{"minute", DecodeByte}, Field{"second", DecodeByte},
	)}
	csvGetDateTimeCentiSec = Command{ID: 5117, Name: CmdGetDateTimeCentiSec, Decoders: Named(
		Field{"year", DecodeInt}, Field{"month", DecodeInt}, Field{"day", DecodeInt},
		Field{"hour", DecodeInt}, Field{"minute", DecodeInt}, Field{"second", DecodeInt},
		Field{"centisecond", DecodeInt},
	)}
	csvGetIntTemp            = Command{ID: 5011, Name: CmdGetIntTemp, Decoders: Positional(DecodeFloat)}
	csvGetFirmwareVersion    = Command{ID: 5034, Name: CmdGetFirmwareVersion, Decoders: Named(Field{"release", DecodeInt}, Field{"version", DecodeInt}, Field{"subversion", DecodeInt})}
	csvGetReflectorlessClass = Command{ID: 5100, Name: CmdGetReflectorlessClass, Decoders: Positional(DecodeInt)}

	tmcGetSimpleMea = Command{ID: 2108, Name: CmdGetSimpleMea, Decoders: Named(Field{"hz", DecodeAngle}, Field{"v", DecodeAngle}, Field{"slope_distance", DecodeFloat})}
	tmcGetAngle5    = Command{ID: 2107, Name: CmdGetAngle5, Decoders: Named(Field{"hz", DecodeAngle}, Field{"v", DecodeAngle})}

	edmLaserpointer = Command{ID: 1004, Name: CmdLaserpointer}

	bmmBeepAlarm  = Command{ID: 11004, Name: CmdBeepAlarm}
	bmmBeepNormal = Command{ID: 11003, Name: CmdBeepNormal}
)

// Capabilities is the command set of one instrument family.
type Capabilities struct {
	family Family
	byName map[string]Command
}

// NewCapabilities creates a command set for family.
func NewCapabilities(family Family, cmds ...Command) *Capabilities {
	c := &Capabilities{family: family, byName: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		c.byName[cmd.Name] = cmd
	}

	return c
}

// Extend returns a copy for family with cmds added or replaced.
func (c *Capabilities) Extend(family Family, cmds ...Command) *Capabilities {
	out := NewCapabilities(family)
	for name, cmd := range c.byName {
		out.byName[name] = cmd
	}
	for _, cmd := range cmds {
		out.byName[cmd.Name] = cmd
	}

	return out
}

// Family returns the instrument family.
func (c *Capabilities) Family() Family {
	return c.family
}

// Lookup returns the named command.
func (c *Capabilities) Lookup(name string) (Command, bool) {
	cmd, ok := c.byName[name]
	return cmd, ok
}

// Supports reports whether the named command is available.
func (c *Capabilities) Supports(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Commands returns the commands sorted by id.
func (c *Capabilities) Commands() []Command {
	cmds := make([]Command, 0, len(c.byName))
	for _, cmd := range c.byName {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b Command) int { return a.ID - b.ID })

	return cmds
}

var (
	registry = xsync.NewMapOf[Family, *Capabilities]()
	rpcNames = xsync.NewMapOf[int, string]()
)

// Register installs or replaces the command set of a family.
func Register(c *Capabilities) {
	registry.Store(c.family, c)
	for _, cmd := range c.byName {
		rpcNames.Store(cmd.ID, cmd.Name)
	}
}

// CapabilitiesOf returns the registered command set of family.
func CapabilitiesOf(family Family) (*Capabilities, bool) {
	return registry.Load(family)
}

// Families returns the registered families.
func Families() []Family {
	var out []Family
	registry.Range(func(f Family, _ *Capabilities) bool {
		out = append(out, f)
		return true
	})
	slices.Sort(out)

	return out
}

func rpcName(rpc int) string {
	name, _ := rpcNames.Load(rpc)
	return name
}

func init() {
	tps1000 := NewCapabilities(TPS1000,
		comNullProc, comGetSWVersion, comGetDoublePrecision, comSetDoublePrecision, comSwitchOffTPS,
		csvGetInstrumentName, csvGetInstrumentNo, csvGetDateTime, csvGetIntTemp,
		tmcGetSimpleMea, tmcGetAngle5,
		bmmBeepAlarm, bmmBeepNormal,
	)
	tps1100 := tps1000.Extend(TPS1100,
		comGetBinaryAvailable, csvGetFirmwareVersion, edmLaserpointer,
	)
	tps1200p := tps1100.Extend(TPS1200P,
		csvGetDateTimeCentiSec, csvGetReflectorlessClass,
	)
	viva := tps1200p.Extend(VivaTPS)

	Register(tps1000)
	Register(tps1100)
	Register(tps1200p)
	Register(viva)
}

// Call executes a catalog command of the client's family. Commands the family
// does not support are answered locally with GrcComProcUnavail.
func (c *Client) Call(ctx context.Context, name string, params ...any) *Response {
	cmd, ok := c.caps.Lookup(name)
	if !ok {
		c.logger.Warn("geocom: command not available", "name", name)
		return &Response{
			RPC:     -1,
			Name:    name,
			ComCode: GrcComProcUnavail,
			RPCCode: GrcUndefined,
		}
	}

	return c.Request(ctx, cmd.ID, params, cmd.Decoders)
}

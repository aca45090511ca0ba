package geocom

import (
	"context"
	"fmt"
	"time"
)

// Version is a release.version.subversion triple.
type Version struct {
	Release    int
	Version    int
	Subversion int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Release, v.Version, v.Subversion)
}

// InclinationMode selects how TMC functions account for the tilt sensor.
type InclinationMode int

const (
	InclinationMeasure InclinationMode = 0
	InclinationAuto    InclinationMode = 1
	InclinationModel   InclinationMode = 2
)

// ShutdownMode selects how COM_SwitchOffTPS turns the instrument off.
type ShutdownMode int

const (
	ShutdownStop  ShutdownMode = 0
	ShutdownSleep ShutdownMode = 1
)

// Measurement is the result of TMC_GetSimpleMea.
type Measurement struct {
	Hz            Angle
	V             Angle
	SlopeDistance float64
}

// NullProc checks the communication with the instrument.
func (c *Client) NullProc(ctx context.Context) *Response {
	return c.Call(ctx, CmdNullProc)
}

// GetSWVersion returns the GeoCom software version.
func (c *Client) GetSWVersion(ctx context.Context) (Version, *Response) {
	resp := c.Call(ctx, CmdGetSWVersion)
	return versionOf(resp), resp
}

// GetFirmwareVersion returns the instrument firmware version.
func (c *Client) GetFirmwareVersion(ctx context.Context) (Version, *Response) {
	resp := c.Call(ctx, CmdGetFirmwareVersion)
	return versionOf(resp), resp
}

func versionOf(resp *Response) Version {
	var v Version
	v.Release, _ = NamedAs[int](resp.Params, "release")
	v.Version, _ = NamedAs[int](resp.Params, "version")
	v.Subversion, _ = NamedAs[int](resp.Params, "subversion")

	return v
}

// GetDoublePrecision returns the number of decimals the instrument uses for
// floating point values.
func (c *Client) GetDoublePrecision(ctx context.Context) (int, *Response) {
	resp := c.Call(ctx, CmdGetDoublePrecision)
	digits, _ := ParamAs[int](resp.Params, 0)

	return digits, resp
}

// SetDoublePrecision sets the floating point precision on the instrument
// and, on success, for the encoding of subsequent requests.
func (c *Client) SetDoublePrecision(ctx context.Context, digits int) *Response {
	resp := c.Call(ctx, CmdSetDoublePrecision, digits)
	if resp.OK() {
		c.precision.Store(int32(digits)) //nolint:gosec
	}

	return resp
}

// SwitchOff turns the instrument off or puts it to sleep.
func (c *Client) SwitchOff(ctx context.Context, mode ShutdownMode) *Response {
	return c.Call(ctx, CmdSwitchOffTPS, int(mode))
}

// GetBinaryAvailable reports whether the binary protocol is available.
func (c *Client) GetBinaryAvailable(ctx context.Context) (bool, *Response) {
	resp := c.Call(ctx, CmdGetBinaryAvailable)
	v, _ := ParamAs[bool](resp.Params, 0)

	return v, resp
}

// GetInstrumentName returns the instrument name, e.g. "TCRP1201 R300".
func (c *Client) GetInstrumentName(ctx context.Context) (string, *Response) {
	resp := c.Call(ctx, CmdGetInstrumentName)
	name, _ := ParamAs[string](resp.Params, 0)

	return name, resp
}

// GetInstrumentNo returns the instrument serial number.
func (c *Client) GetInstrumentNo(ctx context.Context) (int, *Response) {
	resp := c.Call(ctx, CmdGetInstrumentNo)
	no, _ := ParamAs[int](resp.Params, 0)

	return no, resp
}

// GetDateTime returns the instrument clock. The instrument has no time zone,
// the result is expressed in UTC.
func (c *Client) GetDateTime(ctx context.Context) (time.Time, *Response) {
	resp := c.Call(ctx, CmdGetDateTime)
	if !resp.OK() {
		return time.Time{}, resp
	}

	year, ok := NamedAs[int](resp.Params, "year")
	if !ok {
		return time.Time{}, resp
	}
	parts := make([]int, 0, 5)
	for _, name := range []string{"month", "day", "hour", "minute", "second"} {
		b, ok := NamedAs[Byte](resp.Params, name)
		if !ok {
			return time.Time{}, resp
		}
		parts = append(parts, int(b))
	}

	return time.Date(year, time.Month(parts[0]), parts[1], parts[2], parts[3], parts[4], 0, time.UTC), resp
}

// GetDateTimeCentiSec returns the instrument clock with centisecond resolution.
func (c *Client) GetDateTimeCentiSec(ctx context.Context) (time.Time, *Response) {
	resp := c.Call(ctx, CmdGetDateTimeCentiSec)
	if !resp.OK() {
		return time.Time{}, resp
	}

	names := []string{"year", "month", "day", "hour", "minute", "second", "centisecond"}
	parts := make([]int, len(names))
	for i, name := range names {
		v, ok := NamedAs[int](resp.Params, name)
		if !ok {
			return time.Time{}, resp
		}
		parts[i] = v
	}

	return time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5],
		parts[6]*int(10*time.Millisecond), time.UTC), resp
}

// GetInternalTemperature returns the internal temperature in °C.
func (c *Client) GetInternalTemperature(ctx context.Context) (float64, *Response) {
	resp := c.Call(ctx, CmdGetIntTemp)
	v, _ := ParamAs[float64](resp.Params, 0)

	return v, resp
}

// GetReflectorlessClass returns the reflectorless EDM class.
func (c *Client) GetReflectorlessClass(ctx context.Context) (int, *Response) {
	resp := c.Call(ctx, CmdGetReflectorlessClass)
	v, _ := ParamAs[int](resp.Params, 0)

	return v, resp
}

// GetSimpleMeasurement returns angles and the slope distance, waiting at
// most wait for the distance measurement.
func (c *Client) GetSimpleMeasurement(ctx context.Context, wait time.Duration, mode InclinationMode) (Measurement, *Response) {
	resp := c.Call(ctx, CmdGetSimpleMea, int(wait.Milliseconds()), int(mode))

	var m Measurement
	m.Hz, _ = NamedAs[Angle](resp.Params, "hz")
	m.V, _ = NamedAs[Angle](resp.Params, "v")
	m.SlopeDistance, _ = NamedAs[float64](resp.Params, "slope_distance")

	return m, resp
}

// GetAngles returns the horizontal and vertical angles.
func (c *Client) GetAngles(ctx context.Context, mode InclinationMode) (Angle, Angle, *Response) {
	resp := c.Call(ctx, CmdGetAngle5, int(mode))
	hz, _ := NamedAs[Angle](resp.Params, "hz")
	v, _ := NamedAs[Angle](resp.Params, "v")

	return hz, v, resp
}

// SetLaserpointer switches the laser pointer on or off.
func (c *Client) SetLaserpointer(ctx context.Context, on bool) *Response {
	return c.Call(ctx, CmdLaserpointer, on)
}

// BeepAlarm sounds the alarm signal.
func (c *Client) BeepAlarm(ctx context.Context) *Response {
	return c.Call(ctx, CmdBeepAlarm)
}

// BeepNormal sounds a short beep.
func (c *Client) BeepNormal(ctx context.Context) *Response {
	return c.Call(ctx, CmdBeepNormal)
}

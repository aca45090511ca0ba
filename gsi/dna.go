package gsi

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// BeepKind selects the beep signal.
type BeepKind int

const (
	BeepShort BeepKind = 0
	BeepLong  BeepKind = 1
	BeepAlarm BeepKind = 2
)

// BeepIntensity is the volume of the instrument beeper.
type BeepIntensity int

const (
	BeepOff    BeepIntensity = 0
	BeepMedium BeepIntensity = 1
	BeepLoud   BeepIntensity = 2
)

// DistanceUnit is the unit used for distances and readings.
type DistanceUnit int

const (
	UnitMeter      DistanceUnit = 0
	UnitUSFeet     DistanceUnit = 1
	UnitIntFeet    DistanceUnit = 2
	UnitUSFeetInch DistanceUnit = 3
)

// AutoOff is the power saving mode.
type AutoOff int

const (
	AutoOffDisabled AutoOff = 0
	AutoOffEnabled  AutoOff = 1
	AutoOffSleep    AutoOff = 2
)

func enumDecoder[T ~int](maxValue T) Decoder[T] {
	return func(value string) (T, error) {
		v, err := strconv.Atoi(value)
		if err != nil {
			return 0, err
		}
		if v < 0 || T(v) > maxValue {
			return 0, fmt.Errorf("gsi: value %d out of range [0, %d]", v, maxValue)
		}

		return T(v), nil
	}
}

func describe(resp *Response[bool], desc string) *Response[bool] {
	resp.Desc = desc
	return resp
}

// Wakeup wakes up the instrument.
func (c *Client) Wakeup(ctx context.Context) *Response[bool] {
	return describe(c.Request(ctx, "a"), "Wakeup")
}

// Shutdown turns the instrument off.
func (c *Client) Shutdown(ctx context.Context) *Response[bool] {
	return describe(c.Request(ctx, "b"), "Shutdown")
}

// Clear clears the command buffer and stops a continuous measurement.
func (c *Client) Clear(ctx context.Context) *Response[bool] {
	return describe(c.Request(ctx, "c"), "Clear")
}

// Beep sounds a signal.
func (c *Client) Beep(ctx context.Context, kind BeepKind) *Response[bool] {
	return describe(c.Request(ctx, "BEEP/"+strconv.Itoa(int(kind))), "Beep")
}

// GetFormat queries the word format and adopts it for the connection.
func (c *Client) GetFormat(ctx context.Context) *Response[Width] {
	resp := Conf(ctx, c, ParamFormat, DecodeWidth)
	if resp.OK() {
		c.setWidth(resp.Value)
	}

	return resp
}

// SetFormat changes the word format of the instrument and the connection.
func (c *Client) SetFormat(ctx context.Context, w Width) *Response[bool] {
	value := 0
	if w == GSI16 {
		value = 1
	}

	return c.Set(ctx, ParamFormat, value)
}

// GetBeep returns the beep intensity.
func (c *Client) GetBeep(ctx context.Context) *Response[BeepIntensity] {
	return Conf(ctx, c, ParamBeep, enumDecoder(BeepLoud))
}

// SetBeep sets the beep intensity.
func (c *Client) SetBeep(ctx context.Context, v BeepIntensity) *Response[bool] {
	return c.Set(ctx, ParamBeep, int(v))
}

// GetContrast returns the display contrast.
func (c *Client) GetContrast(ctx context.Context) *Response[int] {
	return Conf(ctx, c, ParamContrast, DecodeInt)
}

// SetContrast sets the display contrast.
func (c *Client) SetContrast(ctx context.Context, v int) *Response[bool] {
	return c.Set(ctx, ParamContrast, v)
}

// GetDistanceUnit returns the distance unit.
func (c *Client) GetDistanceUnit(ctx context.Context) *Response[DistanceUnit] {
	return Conf(ctx, c, ParamDistanceUnit, enumDecoder(UnitUSFeetInch))
}

// SetDistanceUnit sets the distance unit.
func (c *Client) SetDistanceUnit(ctx context.Context, u DistanceUnit) *Response[bool] {
	return c.Set(ctx, ParamDistanceUnit, int(u))
}

// GetAutoOff returns the power saving mode.
func (c *Client) GetAutoOff(ctx context.Context) *Response[AutoOff] {
	return Conf(ctx, c, ParamAutoOff, enumDecoder(AutoOffSleep))
}

// SetAutoOff sets the power saving mode.
func (c *Client) SetAutoOff(ctx context.Context, m AutoOff) *Response[bool] {
	return c.Set(ctx, ParamAutoOff, int(m))
}

// GetBattery returns the battery level.
func (c *Client) GetBattery(ctx context.Context) *Response[int] {
	return Conf(ctx, c, ParamBattery, DecodeInt)
}

// GetPointID returns the running point id.
func (c *Client) GetPointID(ctx context.Context) *Response[string] {
	return Get(ctx, c, ModeMeasure, WordPointID, DecodeText)
}

// SetPointID sets the running point id.
func (c *Client) SetPointID(ctx context.Context, id string) *Response[bool] {
	return c.Put(ctx, WordPointID, c.Word(WordPointID, id))
}

// GetNote returns the note attached to the measurement.
func (c *Client) GetNote(ctx context.Context) *Response[string] {
	return Get(ctx, c, ModeMeasure, WordNote, DecodeText)
}

// SetNote attaches a note to the next measurement.
func (c *Client) SetNote(ctx context.Context, note string) *Response[bool] {
	return c.Put(ctx, WordNote, c.Word(WordNote, note))
}

// GetTime returns the instrument time of day.
func (c *Client) GetTime(ctx context.Context) *Response[Clock] {
	return Get(ctx, c, ModeInstant, WordTime, DecodeTime)
}

// SetTime sets the instrument time of day.
func (c *Client) SetTime(ctx context.Context, t Clock) *Response[bool] {
	data := fmt.Sprintf("%02d%02d%02d", t.Hour, t.Minute, t.Second)
	return c.Put(ctx, WordTime, c.Word(WordTime, data, WithInfo("6")))
}

// GetDate returns the instrument month and day.
func (c *Client) GetDate(ctx context.Context) *Response[MonthDay] {
	return Get(ctx, c, ModeInstant, WordDate, DecodeDate)
}

// SetDate sets the instrument month and day.
func (c *Client) SetDate(ctx context.Context, month time.Month, day int) *Response[bool] {
	data := fmt.Sprintf("%02d%02d00", int(month), day)
	return c.Put(ctx, WordDate, c.Word(WordDate, data, WithInfo("6")))
}

// GetYear returns the instrument year.
func (c *Client) GetYear(ctx context.Context) *Response[int] {
	return Get(ctx, c, ModeInstant, WordYear, DecodeYear)
}

// SetYear sets the instrument year.
func (c *Client) SetYear(ctx context.Context, year int) *Response[bool] {
	return c.Put(ctx, WordYear, c.Word(WordYear, strconv.Itoa(year)))
}

// GetDistance measures the distance to the staff in meters.
func (c *Client) GetDistance(ctx context.Context) *Response[float64] {
	return Get(ctx, c, ModeMeasure, WordDistance, DecodeDistance)
}

// GetReading measures the staff reading in meters.
func (c *Client) GetReading(ctx context.Context) *Response[float64] {
	return Get(ctx, c, ModeMeasure, WordReading, DecodeReading)
}

// GetTemperature measures the internal temperature in °C.
func (c *Client) GetTemperature(ctx context.Context) *Response[float64] {
	return Get(ctx, c, ModeMeasure, WordTemperature, DecodeTemperature)
}

// GetSerialNumber returns the instrument serial number.
func (c *Client) GetSerialNumber(ctx context.Context) *Response[string] {
	return Get(ctx, c, ModeInstant, WordSerialNumber, DecodeText)
}

// GetInstrumentType returns the instrument type.
func (c *Client) GetInstrumentType(ctx context.Context) *Response[string] {
	return Get(ctx, c, ModeInstant, WordInstrumentType, DecodeText)
}

// GetFullDate returns the instrument date.
func (c *Client) GetFullDate(ctx context.Context) *Response[time.Time] {
	return Get(ctx, c, ModeInstant, WordFullDate, DecodeFullDate)
}

// GetDayTime returns the date and time of the last measurement.
func (c *Client) GetDayTime(ctx context.Context) *Response[DayTime] {
	return Get(ctx, c, ModeInstant, WordDayTime, DecodeDayTime)
}

// GetSoftwareVersion returns the firmware version.
func (c *Client) GetSoftwareVersion(ctx context.Context) *Response[string] {
	return Get(ctx, c, ModeInstant, WordSoftwareVersion, DecodeText)
}

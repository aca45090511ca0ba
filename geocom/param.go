package geocom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimals used for floating point
// parameters until the instrument reports its own setting.
const DefaultPrecision = 15

// Encoder is implemented by domain values with their own wire form.
type Encoder interface {
	EncodeGeoCom(precision int) string
}

// Byte is a single byte value, serialized as 'XX'.
type Byte uint8

func (b Byte) String() string {
	return fmt.Sprintf("'%02X'", uint8(b))
}

// Angle is an angular value in radians.
type Angle float64

// Degrees returns the angle in degrees.
func (a Angle) Degrees() float64 {
	return float64(a) * 180 / math.Pi
}

// AngleFromDegrees converts degrees to an Angle.
func AngleFromDegrees(deg float64) Angle {
	return Angle(deg * math.Pi / 180)
}

// Normalized returns the angle wrapped to [0, 2π).
func (a Angle) Normalized() Angle {
	v := math.Mod(float64(a), 2*math.Pi)
	if v < 0 {
		v += 2 * math.Pi
	}

	return Angle(v)
}

// DMS formats the angle as degrees-minutes-seconds, e.g. 123-45-06.
func (a Angle) DMS() string {
	deg := a.Degrees()
	sign := ""
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	total := int(math.Round(deg * 3600))

	return fmt.Sprintf("%s%d-%02d-%02d", sign, total/3600, total/60%60, total%60)
}

// EncodeParams renders params in their positional wire form.
func EncodeParams(params []any, precision int) ([]string, error) {
	out := make([]string, 0, len(params))
	for i, p := range params {
		s, err := encodeParam(p, precision)
		if err != nil {
			return nil, fmt.Errorf("geocom: parameter %d: %w", i, err)
		}
		out = append(out, s)
	}

	return out, nil
}

func encodeParam(p any, precision int) (string, error) {
	switch v := p.(type) {
	case Encoder:
		return v.EncodeGeoCom(precision), nil
	case Byte:
		return v.String(), nil
	case Angle:
		return formatFloat(float64(v), precision), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return formatFloat(float64(v), precision), nil
	case float64:
		return formatFloat(v, precision), nil
	case string:
		if strings.ContainsAny(v, "\r\n") {
			return "", fmt.Errorf("string parameter %q contains a line break", v)
		}
		return quote(v), nil
	default:
		return "", fmt.Errorf("unsupported parameter type %T", p)
	}
}

// formatFloat rounds v to precision decimals and strips trailing zeros,
// keeping at least one decimal digit.
func formatFloat(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if !strings.Contains(s, ".") {
		return s + ".0"
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if s == "-0.0" {
		s = "0.0"
	}

	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

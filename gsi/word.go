package gsi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Width is the payload length of GSI words.
type Width int

const (
	GSI8  Width = 8
	GSI16 Width = 16
)

// ErrInvalidWidth is returned when a word is built for a width other than
// GSI8 or GSI16.
var ErrInvalidWidth = errors.New("gsi: invalid word width")

// IsValid reports whether w is GSI8 or GSI16.
func (w Width) IsValid() bool {
	return w == GSI8 || w == GSI16
}

func (w Width) String() string {
	return "GSI" + strconv.Itoa(int(w))
}

// WordOption customizes a built word.
type WordOption func(*wordConfig)

type wordConfig struct {
	info     string
	negative bool
}

// WithInfo sets the information block of the word header.
func WithInfo(info string) WordOption {
	return func(s *wordConfig) { s.info = info }
}

// Negative marks numeric word data as negative.
func Negative() WordOption {
	return func(s *wordConfig) { s.negative = true }
}

// BuildWord assembles a GSI word: header of index, padding and information
// block (6 characters), sign, zero filled data and a trailing space. GSI16
// words are prefixed with '*'.
func BuildWord(wi int, data string, width Width, opts ...WordOption) (string, error) {
	if !width.IsValid() {
		return "", fmt.Errorf("%w: %d", ErrInvalidWidth, int(width))
	}

	return buildWord(wi, data, width, opts...), nil
}

func buildWord(wi int, data string, width Width, opts ...WordOption) string {
	var wc wordConfig
	for _, opt := range opts {
		opt(&wc)
	}

	n := int(width)
	if len(data) < n {
		data = strings.Repeat("0", n-len(data)) + data
	}
	data = data[:n]

	info := truncate(wc.info, 4)
	idx := strconv.Itoa(wi)
	if len(info) < 4 {
		idx = truncate(idx, 3)
	} else {
		idx = truncate(idx, 2)
	}

	var sb strings.Builder
	if width == GSI16 {
		sb.WriteByte('*')
	}
	sb.WriteString(idx)
	sb.WriteString(strings.Repeat(".", 6-len(idx)-len(info)))
	sb.WriteString(info)
	if wc.negative {
		sb.WriteByte('-')
	} else {
		sb.WriteByte('+')
	}
	sb.WriteString(data)
	sb.WriteByte(' ')

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}

	return s
}

// stripWord removes the GSI16 marker and the trailing space.
func stripWord(raw string) string {
	return strings.Trim(raw, "* ")
}

// Decoder converts a GET answer or a CONF value into T.
type Decoder[T any] func(string) (T, error)

// DecodeInt parses a CONF value.
func DecodeInt(value string) (int, error) {
	return strconv.Atoi(value)
}

// DecodeBool parses a 0/1 CONF value.
func DecodeBool(value string) (bool, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// DecodeWidth parses the CONF value of the GSI format parameter.
func DecodeWidth(value string) (Width, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	switch v {
	case 0:
		return GSI8, nil
	case 1:
		return GSI16, nil
	default:
		return 0, fmt.Errorf("gsi: unknown word format %d", v)
	}
}

// scaleOf maps a unit digit to the power of ten dividing the payload.
// Unknown digits leave the payload unscaled.
func scaleOf(unit byte) int32 {
	switch unit {
	case '0', '1':
		return 3
	case '6', '7':
		return 4
	case '8':
		return 5
	default:
		return 0
	}
}

// payload returns the signed data block of a word.
func payload(raw string) (decimal.Decimal, error) {
	s := stripWord(raw)
	if len(s) < 7 {
		return decimal.Zero, fmt.Errorf("gsi: word %q too short", raw)
	}

	return decimal.NewFromString(strings.TrimPrefix(s[6:], "+"))
}

// DecodeDistance decodes a distance or staff reading in meters. The unit digit
// at index 5 of the raw answer selects the scale of the payload.
func DecodeDistance(raw string) (float64, error) {
	if len(raw) < 6 {
		return 0, fmt.Errorf("gsi: word %q too short", raw)
	}
	exp := scaleOf(raw[5])
	v, err := payload(raw)
	if err != nil {
		return 0, err
	}

	return v.Shift(-exp).InexactFloat64(), nil
}

// DecodeReading decodes a staff reading in meters.
func DecodeReading(raw string) (float64, error) {
	return DecodeDistance(raw)
}

// DecodeTemperature decodes a temperature word in °C.
func DecodeTemperature(raw string) (float64, error) {
	v, err := payload(raw)
	if err != nil {
		return 0, err
	}

	return v.Shift(-4).InexactFloat64(), nil
}

// DecodeText returns the word data with leading zeros removed.
func DecodeText(raw string) (string, error) {
	s := stripWord(raw)
	if len(s) < 7 {
		return "", fmt.Errorf("gsi: word %q too short", raw)
	}

	return strings.TrimLeft(s[7:], "0"), nil
}

// DecodeYear decodes a year word.
func DecodeYear(raw string) (int, error) {
	text, err := DecodeText(raw)
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(text)
}

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// MonthDay is a calendar day without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// DayTime is the date and time of the last measurement.
type DayTime struct {
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// digitsFromEnd parses s[len(s)-from : len(s)-to].
func digitsFromEnd(s string, from, to int) (int, error) {
	if len(s) < from {
		return 0, fmt.Errorf("gsi: word %q too short", s)
	}

	return strconv.Atoi(s[len(s)-from : len(s)-to])
}

func decodeFields(raw string, spans ...[2]int) ([]int, error) {
	s := stripWord(raw)
	out := make([]int, len(spans))
	for i, sp := range spans {
		v, err := digitsFromEnd(s, sp[0], sp[1])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}

	return out, nil
}

// DecodeTime decodes an HHMMSS time word.
func DecodeTime(raw string) (Clock, error) {
	f, err := decodeFields(raw, [2]int{6, 4}, [2]int{4, 2}, [2]int{2, 0})
	if err != nil {
		return Clock{}, err
	}
	if f[0] > 23 || f[1] > 59 || f[2] > 59 {
		return Clock{}, fmt.Errorf("gsi: invalid time %02d:%02d:%02d", f[0], f[1], f[2])
	}

	return Clock{Hour: f[0], Minute: f[1], Second: f[2]}, nil
}

// DecodeDate decodes an MMDD00 date word.
func DecodeDate(raw string) (MonthDay, error) {
	f, err := decodeFields(raw, [2]int{6, 4}, [2]int{4, 2})
	if err != nil {
		return MonthDay{}, err
	}
	if f[0] < 1 || f[0] > 12 || f[1] < 1 || f[1] > 31 {
		return MonthDay{}, fmt.Errorf("gsi: invalid date %02d-%02d", f[0], f[1])
	}

	return MonthDay{Month: time.Month(f[0]), Day: f[1]}, nil
}

// DecodeFullDate decodes a DDMMYYYY date word.
func DecodeFullDate(raw string) (time.Time, error) {
	f, err := decodeFields(raw, [2]int{8, 6}, [2]int{6, 4}, [2]int{4, 0})
	if err != nil {
		return time.Time{}, err
	}
	if f[1] < 1 || f[1] > 12 || f[0] < 1 || f[0] > 31 {
		return time.Time{}, fmt.Errorf("gsi: invalid date %04d-%02d-%02d", f[2], f[1], f[0])
	}

	return time.Date(f[2], time.Month(f[1]), f[0], 0, 0, 0, 0, time.UTC), nil
}

// DecodeDayTime decodes an MMDDhhmm word.
func DecodeDayTime(raw string) (DayTime, error) {
	f, err := decodeFields(raw, [2]int{8, 6}, [2]int{6, 4}, [2]int{4, 2}, [2]int{2, 0})
	if err != nil {
		return DayTime{}, err
	}
	if f[0] < 1 || f[0] > 12 || f[2] > 23 || f[3] > 59 {
		return DayTime{}, fmt.Errorf("gsi: invalid date and time %v", f)
	}

	return DayTime{Month: time.Month(f[0]), Day: f[1], Hour: f[2], Minute: f[3]}, nil
}

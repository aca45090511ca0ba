package geocom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decoder converts one textual response field into a value.
type Decoder func(field string) (any, error)

// DecodeInt parses a decimal integer field.
func DecodeInt(field string) (any, error) {
	return strconv.Atoi(strings.TrimSpace(field))
}

// DecodeFloat parses a floating point field.
func DecodeFloat(field string) (any, error) {
	return strconv.ParseFloat(strings.TrimSpace(field), 64)
}

// DecodeBool parses a 0/1 field. Any non-zero integer is true.
func DecodeBool(field string) (any, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return nil, err
	}

	return v != 0, nil
}

// DecodeString removes the enclosing quotes of a string field.
func DecodeString(field string) (any, error) {
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return nil, fmt.Errorf("geocom: %q is not a quoted string", field)
	}

	return strings.ReplaceAll(field[1:len(field)-1], `\"`, `"`), nil
}

// DecodeByte parses a 'XX' hexadecimal byte field.
func DecodeByte(field string) (any, error) {
	if len(field) != 4 || field[0] != '\'' || field[3] != '\'' {
		return nil, fmt.Errorf("geocom: %q is not a quoted byte", field)
	}
	v, err := strconv.ParseUint(field[1:3], 16, 8)
	if err != nil {
		return nil, err
	}

	return Byte(v), nil
}

// DecodeAngle parses a radian field into an Angle.
func DecodeAngle(field string) (any, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return nil, err
	}

	return Angle(v), nil
}

// DecodeEnum returns a decoder for integer backed enumerations. Values not
// listed in valid are rejected; an empty valid list accepts any integer.
func DecodeEnum[T ~int](valid ...T) Decoder {
	return func(field string) (any, error) {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, err
		}
		if len(valid) == 0 {
			return T(v), nil
		}
		for _, e := range valid {
			if T(v) == e {
				return e, nil
			}
		}

		return nil, fmt.Errorf("geocom: %d is not a valid %T", v, valid[0])
	}
}

// Field is a named decoder.
type Field struct {
	Name   string
	Decode Decoder
}

type decoderKind uint8

const (
	positionalDecoders decoderKind = iota
	namedDecoders
)

// Decoders describes how to decode the field tail of a response: either by
// position or by name. The zero value decodes nothing.
type Decoders struct {
	kind   decoderKind
	fields []Field
}

// Positional decodes the tail fields in order. Values are addressed by index.
func Positional(decs ...Decoder) Decoders {
	fields := make([]Field, len(decs))
	for i, d := range decs {
		fields[i] = Field{Name: strconv.Itoa(i), Decode: d}
	}

	return Decoders{kind: positionalDecoders, fields: fields}
}

// Named decodes the tail fields in declaration order and addresses them by name.
func Named(fields ...Field) Decoders {
	return Decoders{kind: namedDecoders, fields: append([]Field(nil), fields...)}
}

// Len returns the number of declared fields.
func (d Decoders) Len() int {
	return len(d.fields)
}

// Names returns the declared field names in order.
func (d Decoders) Names() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}

	return names
}

// IsNamed reports whether the decoders address fields by name.
func (d Decoders) IsNamed() bool {
	return d.kind == namedDecoders
}

// errMissingField is recorded for declared fields absent from the response.
var errMissingField = errors.New("geocom: field missing in response")

// decode applies the decoders to the raw field values. A failing decoder
// leaves its value absent and does not affect the others.
func (d Decoders) decode(values []string) Params {
	params := Params{named: d.kind == namedDecoders, fields: make([]ParamValue, len(d.fields))}
	for i, f := range d.fields {
		pv := ParamValue{Name: f.Name}
		switch {
		case i >= len(values):
			pv.Err = errMissingField
		case f.Decode == nil:
			pv.Value, pv.Valid = values[i], true
		default:
			v, err := safeDecode(f.Decode, values[i])
			if err != nil {
				pv.Err = err
			} else {
				pv.Value, pv.Valid = v, true
			}
		}
		params.fields[i] = pv
	}

	return params
}

func safeDecode(dec Decoder, field string) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("geocom: decoder panic: %v", r)
		}
	}()

	return dec(field)
}

// splitFields splits a field tail on commas outside quoted strings.
func splitFields(tail string) []string {
	if tail == "" {
		return nil
	}

	var (
		fields  []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(tail); i++ {
		switch tail[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				fields = append(fields, tail[start:i])
				start = i + 1
			}
		}
	}

	return append(fields, tail[start:])
}

// ParamValue is one decoded response field.
type ParamValue struct {
	Name  string
	Value any
	// Valid is false when decoding failed or the field was missing.
	Valid bool
	Err   error
}

// Params holds decoded response fields in declaration order.
type Params struct {
	named  bool
	fields []ParamValue
}

// Len returns the number of declared fields. It is zero for failed responses.
func (p Params) Len() int {
	return len(p.fields)
}

// At returns the value at position i and whether it decoded successfully.
func (p Params) At(i int) (any, bool) {
	if i < 0 || i >= len(p.fields) || !p.fields[i].Valid {
		return nil, false
	}

	return p.fields[i].Value, true
}

// Get returns the named value and whether it decoded successfully.
func (p Params) Get(name string) (any, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			if !f.Valid {
				return nil, false
			}
			return f.Value, true
		}
	}

	return nil, false
}

// IsNamed reports whether the fields were declared by name.
func (p Params) IsNamed() bool {
	return p.named
}

// Names returns the field names in order.
func (p Params) Names() []string {
	names := make([]string, len(p.fields))
	for i, f := range p.fields {
		names[i] = f.Name
	}

	return names
}

// Fields returns a copy of the decoded fields.
func (p Params) Fields() []ParamValue {
	return append([]ParamValue(nil), p.fields...)
}

// Map returns the valid values keyed by field name.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p.fields))
	for _, f := range p.fields {
		if f.Valid {
			m[f.Name] = f.Value
		}
	}

	return m
}

// ParamAs returns the value at position i converted to T.
func ParamAs[T any](p Params, i int) (T, bool) {
	var zero T
	v, ok := p.At(i)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)

	return t, ok
}

// NamedAs returns the named value converted to T.
func NamedAs[T any](p Params, name string) (T, bool) {
	var zero T
	v, ok := p.Get(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)

	return t, ok
}

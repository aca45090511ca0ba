package geocom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct{ x, y float64 }

func (p point) EncodeGeoCom(precision int) string {
	return formatFloat(p.x, precision) + "," + formatFloat(p.y, precision)
}

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name      string
		params    []any
		precision int
		want      []string
	}{
		{name: "int and float", params: []any{1, 2.0}, precision: 15, want: []string{"1", "2.0"}},
		{name: "negative int", params: []any{int64(-42)}, precision: 15, want: []string{"-42"}},
		{name: "unsigned", params: []any{uint16(65535)}, precision: 15, want: []string{"65535"}},
		{name: "bool", params: []any{true, false}, precision: 15, want: []string{"1", "0"}},
		{name: "string", params: []any{"abc"}, precision: 15, want: []string{`"abc"`}},
		{name: "quoted string", params: []any{`a"b`}, precision: 15, want: []string{`"a\"b"`}},
		{name: "byte", params: []any{Byte(0x2f)}, precision: 15, want: []string{"'2F'"}},
		{name: "angle", params: []any{Angle(1.5)}, precision: 15, want: []string{"1.5"}},
		{name: "rounded float", params: []any{1.23456}, precision: 3, want: []string{"1.235"}},
		{name: "precision zero", params: []any{2.6}, precision: 0, want: []string{"3.0"}},
		{name: "negative zero", params: []any{-0.00001}, precision: 2, want: []string{"0.0"}},
		{name: "float32", params: []any{float32(0.5)}, precision: 15, want: []string{"0.5"}},
		{name: "encoder", params: []any{point{1, 2.25}}, precision: 4, want: []string{"1.0,2.25"}},
		{name: "empty", params: nil, precision: 15, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeParams(tt.params, tt.precision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParams_Unsupported(t *testing.T) {
	_, err := EncodeParams([]any{1, []int{1}}, 15)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter 1")
	assert.Contains(t, err.Error(), "unsupported parameter type []int")
}

func TestEncodeParams_LineBreakInString(t *testing.T) {
	for _, v := range []string{"a\r\nb", "a\nb", "a\r"} {
		_, err := EncodeParams([]any{v}, 15)
		require.Error(t, err, "%q", v)
		assert.Contains(t, err.Error(), "line break")
	}
}

func TestEncodeDecode_Scalars(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		s, err := encodeParam(-17, 15)
		require.NoError(t, err)
		v, err := DecodeInt(s)
		require.NoError(t, err)
		assert.Equal(t, -17, v)
	})

	t.Run("float", func(t *testing.T) {
		s, err := encodeParam(3.125, 15)
		require.NoError(t, err)
		v, err := DecodeFloat(s)
		require.NoError(t, err)
		assert.InDelta(t, 3.125, v, 1e-12)
	})

	t.Run("bool", func(t *testing.T) {
		s, err := encodeParam(true, 15)
		require.NoError(t, err)
		v, err := DecodeBool(s)
		require.NoError(t, err)
		assert.Equal(t, true, v)
	})

	t.Run("string", func(t *testing.T) {
		s, err := encodeParam(`say "hi"`, 15)
		require.NoError(t, err)
		v, err := DecodeString(s)
		require.NoError(t, err)
		assert.Equal(t, `say "hi"`, v)
	})

	t.Run("byte", func(t *testing.T) {
		s, err := encodeParam(Byte(200), 15)
		require.NoError(t, err)
		v, err := DecodeByte(s)
		require.NoError(t, err)
		assert.Equal(t, Byte(200), v)
	})

	t.Run("angle", func(t *testing.T) {
		s, err := encodeParam(Angle(math.Pi), 15)
		require.NoError(t, err)
		v, err := DecodeAngle(s)
		require.NoError(t, err)
		assert.InDelta(t, math.Pi, float64(v.(Angle)), 1e-12)
	})
}

func TestAngle(t *testing.T) {
	a := AngleFromDegrees(180)
	assert.InDelta(t, math.Pi, float64(a), 1e-12)
	assert.InDelta(t, 180, a.Degrees(), 1e-9)
	assert.InDelta(t, math.Pi/2, float64(AngleFromDegrees(-270).Normalized()), 1e-12)
	assert.Equal(t, "123-45-06", AngleFromDegrees(123+45.0/60+6.0/3600).DMS())
	assert.Equal(t, "-0-30-00", AngleFromDegrees(-0.5).DMS())
}

package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlogWriter_LevelGate(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWriter(&buf, InfoLevel, false)

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Info("geocom: request", "rpc", 5004)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "geocom: request", rec["msg"])
	assert.EqualValues(t, 5004, rec["rpc"])
	assert.Contains(t, rec, "ts")

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
}

func TestSlogWriter_WithKeepsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWriter(&buf, WarnLevel, false)
	child := l.With("port", "/dev/ttyUSB0")

	child.Info("hidden")
	assert.Zero(t, buf.Len())

	child.Warn("shown")
	assert.Contains(t, buf.String(), "/dev/ttyUSB0")
}

func TestZap_ForwardsKeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZap(zap.New(core), InfoLevel)

	l.Debug("hidden")
	l.Info("gsi: exchange", "cmd", "CONF/137")
	l.With("family", "DNA").Error("gsi: failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "gsi: exchange", entries[0].Message)
	assert.Equal(t, "CONF/137", entries[0].ContextMap()["cmd"])
	assert.Equal(t, "DNA", entries[1].ContextMap()["family"])

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	l.Debug("now shown")
	assert.Equal(t, 3, logs.Len())
}

func TestZapWithConfig_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "geocomd.log")
	l, err := NewZapWithConfig(ZapConfig{Level: "debug", Format: "json", Output: path, MaxSizeMB: 1})
	require.NoError(t, err)
	l.Info("written")
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)

	_, err = NewZapWithConfig(ZapConfig{Format: "xml"})
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"", InfoLevel, false},
		{"WARNING", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	child := r.With("protocol", "gsi")

	r.Debug("session: synchronized")
	child.Warn("gsi: decode failed", "cmd", "GET/M/WI32")
	child.Fatal("gsi: gone")

	entries := r.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, WarnLevel, entries[1].Level)
	v, ok := entries[1].Field("protocol")
	require.True(t, ok)
	assert.Equal(t, "gsi", v)
	v, ok = entries[1].Field("cmd")
	require.True(t, ok)
	assert.Equal(t, "GET/M/WI32", v)
	_, ok = entries[0].Field("protocol")
	assert.False(t, ok)

	assert.Equal(t, []string{"gsi: decode failed", "gsi: gone"}, r.Messages(WarnLevel))

	r.SetLevel(ErrorLevel)
	r.Info("dropped")
	assert.Len(t, r.Entries(), 3)
}

func TestDefaultLogger(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetDefault(prev) })

	r := NewRecorder()
	SetDefault(r)
	SetDefault(nil)
	assert.Same(t, r, GetLogger())

	Info("started", "port", "COM4")
	With("family", "TPS1200P").Error("failed")
	require.Len(t, r.Entries(), 2)
	v, _ := r.Entries()[1].Field("family")
	assert.Equal(t, "TPS1200P", v)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8090", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "geocom", cfg.Instrument.Protocol)
	assert.Equal(t, "TPS1200P", cfg.Instrument.Family)
	assert.Equal(t, "serial", cfg.Instrument.Transport)
	assert.Equal(t, 15*time.Second, cfg.Instrument.Timeout)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "\r\n", cfg.Serial.AnswerTerminator)
	assert.Equal(t, 2, cfg.Session.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Session.Backoff)
	assert.False(t, cfg.Session.Resync)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load([]string{
		"--instrument.protocol", "gsi",
		"--instrument.transport", "tcp",
		"--instrument.address", "10.0.0.7:4001",
		"--serial.baud_rate", "19200",
		"--session.resync",
		"--logging.level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "gsi", cfg.Instrument.Protocol)
	assert.Equal(t, "tcp", cfg.Instrument.Transport)
	assert.Equal(t, "10.0.0.7:4001", cfg.Instrument.Address)
	assert.Equal(t, 19200, cfg.Serial.BaudRate)
	assert.True(t, cfg.Session.Resync)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("GEOCOM_SERVER_PORT", "9999")
	t.Setenv("GEOCOM_INSTRUMENT_PORT", "/dev/ttyS1")
	t.Setenv("GEOCOM_SESSION_MAX_ATTEMPTS", "5")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "/dev/ttyS1", cfg.Instrument.Port)
	assert.Equal(t, 5, cfg.Session.MaxAttempts)
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("GEOCOM_LOGGING_LEVEL", "warn")

	cfg, err := Load([]string{"--logging.level", "error"})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocomd.yaml")
	content := `
instrument:
  protocol: gsi
  timeout: 3s
session:
  backoff: 250ms
  resync: true
  resync_rounds: 4
logging:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load([]string{"-c", path})
	require.NoError(t, err)

	assert.Equal(t, "gsi", cfg.Instrument.Protocol)
	assert.Equal(t, 3*time.Second, cfg.Instrument.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.Backoff)
	assert.True(t, cfg.Session.Resync)
	assert.Equal(t, 4, cfg.Session.ResyncRounds)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := Load([]string{"--nope"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "protocol", mutate: func(c *Config) { c.Instrument.Protocol = "nmea" }, wantErr: "instrument.protocol"},
		{name: "transport", mutate: func(c *Config) { c.Instrument.Transport = "usb" }, wantErr: "instrument.transport"},
		{name: "serial port", mutate: func(c *Config) { c.Instrument.Port = "" }, wantErr: "instrument.port"},
		{name: "tcp address", mutate: func(c *Config) { c.Instrument.Transport = "tcp" }, wantErr: "instrument.address"},
		{name: "timeout", mutate: func(c *Config) { c.Instrument.Timeout = 0 }, wantErr: "instrument.timeout"},
		{name: "parity", mutate: func(c *Config) { c.Serial.Parity = "x" }, wantErr: "serial.parity"},
		{name: "attempts", mutate: func(c *Config) { c.Session.MaxAttempts = 0 }, wantErr: "session.max_attempts"},
		{name: "rounds", mutate: func(c *Config) { c.Session.ResyncRounds = 0 }, wantErr: "session.resync_rounds"},
		{name: "level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "logging.level"},
		{name: "format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "mode", mutate: func(c *Config) { c.Server.Mode = "prod" }, wantErr: "server.mode"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = "" }, wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

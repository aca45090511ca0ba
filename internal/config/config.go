// Package config loads the geocomd configuration from flags, environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables, e.g. GEOCOM_SERVER_PORT.
const EnvPrefix = "GEOCOM"

// Config is the daemon configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Serial     SerialConfig     `mapstructure:"serial"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig is the HTTP gateway configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	Mode            string        `mapstructure:"mode"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// InstrumentConfig selects the instrument and how it is reached.
type InstrumentConfig struct {
	// Protocol is "geocom" or "gsi".
	Protocol string `mapstructure:"protocol"`
	// Family is the GeoCom instrument family.
	Family string `mapstructure:"family"`
	// Transport is "serial" or "tcp".
	Transport string `mapstructure:"transport"`
	// Port is the serial device, Address the host:port of a serial server.
	Port    string        `mapstructure:"port"`
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SerialConfig is the line configuration.
type SerialConfig struct {
	BaudRate          int    `mapstructure:"baud_rate"`
	DataBits          int    `mapstructure:"data_bits"`
	StopBits          int    `mapstructure:"stop_bits"`
	Parity            string `mapstructure:"parity"`
	MessageTerminator string `mapstructure:"message_terminator"`
	AnswerTerminator  string `mapstructure:"answer_terminator"`
}

// SessionConfig tunes the connection lifecycle.
type SessionConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	Backoff      time.Duration `mapstructure:"backoff"`
	Resync       bool          `mapstructure:"resync"`
	ResyncRounds int           `mapstructure:"resync_rounds"`
}

// LoggingConfig is the logger configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

var (
	validProtocols  = []string{"geocom", "gsi"}
	validTransports = []string{"serial", "tcp"}
	validParities   = []string{"none", "odd", "even", "mark", "space"}
	validLevels     = []string{"debug", "info", "warn", "error", "fatal"}
	validFormats    = []string{"json", "console"}
	validModes      = []string{"debug", "release", "test"}
)

// Load parses args and merges them with the environment, the optional
// configuration file and the defaults, in that order of precedence.
func Load(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("geocomd", pflag.ContinueOnError)
	configFile := fs.StringP("config", "c", "", "path to a YAML configuration file")
	fs.String("server.port", v.GetString("server.port"), "HTTP listen port")
	fs.String("instrument.protocol", v.GetString("instrument.protocol"), "instrument protocol (geocom, gsi)")
	fs.String("instrument.family", v.GetString("instrument.family"), "GeoCom instrument family")
	fs.String("instrument.transport", v.GetString("instrument.transport"), "transport (serial, tcp)")
	fs.StringP("instrument.port", "p", v.GetString("instrument.port"), "serial port")
	fs.String("instrument.address", v.GetString("instrument.address"), "host:port of a serial server")
	fs.Int("serial.baud_rate", v.GetInt("serial.baud_rate"), "serial baud rate")
	fs.Bool("session.resync", v.GetBool("session.resync"), "resynchronize after timeouts")
	fs.String("logging.level", v.GetString("logging.level"), "log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.mode", "release")

	v.SetDefault("instrument.protocol", "geocom")
	v.SetDefault("instrument.family", "TPS1200P")
	v.SetDefault("instrument.transport", "serial")
	v.SetDefault("instrument.port", "/dev/ttyUSB0")
	v.SetDefault("instrument.address", "")
	v.SetDefault("instrument.timeout", "15s")

	v.SetDefault("serial.baud_rate", 9600)
	v.SetDefault("serial.data_bits", 8)
	v.SetDefault("serial.stop_bits", 1)
	v.SetDefault("serial.parity", "none")
	v.SetDefault("serial.message_terminator", "\r\n")
	v.SetDefault("serial.answer_terminator", "\r\n")

	v.SetDefault("session.max_attempts", 2)
	v.SetDefault("session.backoff", "1s")
	v.SetDefault("session.resync", false)
	v.SetDefault("session.resync_rounds", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if !slices.Contains(validModes, c.Server.Mode) {
		errs = append(errs, fmt.Errorf("server.mode must be one of: %v", validModes))
	}
	if !slices.Contains(validProtocols, c.Instrument.Protocol) {
		errs = append(errs, fmt.Errorf("instrument.protocol must be one of: %v", validProtocols))
	}
	if !slices.Contains(validTransports, c.Instrument.Transport) {
		errs = append(errs, fmt.Errorf("instrument.transport must be one of: %v", validTransports))
	}
	if c.Instrument.Transport == "serial" && c.Instrument.Port == "" {
		errs = append(errs, errors.New("instrument.port is required for the serial transport"))
	}
	if c.Instrument.Transport == "tcp" && c.Instrument.Address == "" {
		errs = append(errs, errors.New("instrument.address is required for the tcp transport"))
	}
	if c.Instrument.Timeout <= 0 {
		errs = append(errs, errors.New("instrument.timeout must be positive"))
	}
	if !slices.Contains(validParities, c.Serial.Parity) {
		errs = append(errs, fmt.Errorf("serial.parity must be one of: %v", validParities))
	}
	if c.Session.MaxAttempts < 1 {
		errs = append(errs, errors.New("session.max_attempts must be at least 1"))
	}
	if c.Session.ResyncRounds < 1 {
		errs = append(errs, errors.New("session.resync_rounds must be at least 1"))
	}
	if !slices.Contains(validLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", validLevels))
	}
	if !slices.Contains(validFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", validFormats))
	}

	return errors.Join(errs...)
}

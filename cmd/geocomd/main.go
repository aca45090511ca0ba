// Command geocomd connects to one surveying instrument and serves it over an
// HTTP JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arloliu/go-geocom/geocom"
	"github.com/arloliu/go-geocom/gsi"
	"github.com/arloliu/go-geocom/internal/config"
	"github.com/arloliu/go-geocom/internal/gateway"
	"github.com/arloliu/go-geocom/logger"
	"github.com/arloliu/go-geocom/transport"
)

// Application wires the instrument engine to the gateway.
type Application struct {
	config   *config.Config
	logger   *logger.ZapLogger
	registry *gateway.Registry
	server   *gateway.Server
}

func main() {
	app, err := NewApplication(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "geocomd: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = app.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		app.logger.Error("geocomd: stopped with error", "error", err)
		os.Exit(1) //nolint:gocritic
	}
}

// NewApplication loads the configuration and builds the logger.
func NewApplication(args []string) (*Application, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.NewZapWithConfig(logger.ZapConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(l)

	return &Application{
		config:   cfg,
		logger:   l,
		registry: gateway.NewRegistry(),
	}, nil
}

// Run connects the instrument and serves the gateway until ctx is canceled.
func (app *Application) Run(ctx context.Context) error {
	if err := app.connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.registry.Close(); err != nil {
			app.logger.Error("geocomd: close instrument", "error", err)
		}
	}()

	router := gateway.NewRouter(gateway.RouterConfig{
		Mode:           app.config.Server.Mode,
		AllowedOrigins: app.config.Server.AllowedOrigins,
	}, app.registry, app.logger)

	app.server = gateway.NewServer(gateway.ServerConfig{
		Addr:            app.config.Server.Addr(),
		ReadTimeout:     app.config.Server.ReadTimeout,
		WriteTimeout:    app.config.Server.WriteTimeout,
		ShutdownTimeout: app.config.Server.ShutdownTimeout,
	}, router, app.logger)

	return app.server.Run(ctx)
}

func (app *Application) connect(ctx context.Context) error {
	inst := app.config.Instrument

	t, err := app.openTransport(ctx)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}

	sess := app.config.Session
	switch inst.Protocol {
	case gateway.ProtocolGeoCom:
		c, err := geocom.NewClient(t,
			geocom.WithFamily(geocom.Family(inst.Family)),
			geocom.WithLogger(app.logger),
			geocom.WithMaxAttempts(sess.MaxAttempts),
			geocom.WithBackoff(sess.Backoff),
			geocom.WithResync(sess.Resync),
			geocom.WithResyncRounds(sess.ResyncRounds),
		)
		if err != nil {
			_ = t.Close()
			return err
		}
		if err := c.Open(ctx); err != nil {
			return fmt.Errorf("failed to connect %s instrument: %w", inst.Family, err)
		}
		app.registry.AddGeoCom(c)

	case gateway.ProtocolGSI:
		c, err := gsi.NewClient(t,
			gsi.WithLogger(app.logger),
			gsi.WithMaxAttempts(sess.MaxAttempts),
			gsi.WithBackoff(sess.Backoff),
			gsi.WithResync(sess.Resync),
			gsi.WithResyncRounds(sess.ResyncRounds),
		)
		if err != nil {
			_ = t.Close()
			return err
		}
		if err := c.Open(ctx); err != nil {
			return fmt.Errorf("failed to connect GSI instrument: %w", err)
		}
		app.registry.AddGSI(c)

	default:
		_ = t.Close()
		return errors.New("unsupported protocol " + inst.Protocol)
	}

	app.logger.Info("geocomd: instrument connected", "protocol", inst.Protocol, "transport", inst.Transport)

	return nil
}

func (app *Application) openTransport(ctx context.Context) (transport.Transport, error) {
	inst := app.config.Instrument
	line := app.config.Serial

	cfg, err := transport.NewConfig(
		transport.WithTimeout(inst.Timeout),
		transport.WithMessageTerminator(line.MessageTerminator),
		transport.WithAnswerTerminator(line.AnswerTerminator),
		transport.WithBaudRate(line.BaudRate),
		transport.WithDataBits(line.DataBits),
		transport.WithStopBits(line.StopBits),
		transport.WithParity(transport.Parity(line.Parity)),
		transport.WithLogger(app.logger),
	)
	if err != nil {
		return nil, err
	}

	if inst.Transport == "tcp" {
		return transport.Dial(ctx, "tcp", inst.Address, cfg)
	}

	// The session opens the serial port.
	return transport.NewSerial(inst.Port, cfg), nil
}

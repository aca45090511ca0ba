package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arloliu/go-geocom/logger"
)

// RouterConfig configures the HTTP router.
type RouterConfig struct {
	// Mode is the gin mode: debug, release or test.
	Mode           string
	AllowedOrigins []string
}

// NewRouter builds the gateway routes over the registered engines.
func NewRouter(cfg RouterConfig, registry *Registry, l logger.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(l))
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(l))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	h := NewHandler(registry, l)

	api := router.Group("/api/v1")
	api.GET("/health", h.Health)

	gc := api.Group("/geocom")
	gc.GET("/catalog", h.GeoComCatalog)
	gc.POST("/rpc", h.GeoComRPC)
	gc.GET("/commands/:name", h.GeoComCall)

	gs := api.Group("/gsi")
	gs.POST("/request", h.GSIRequest)
	gs.GET("/conf/:param", h.GSIConf)
	gs.POST("/conf/:param", h.GSISet)
	gs.GET("/words/:wi", h.GSIWord)

	router.NoRoute(func(c *gin.Context) {
		ErrorResponse(c, http.StatusNotFound, "Route not found", nil)
	})

	return router
}

const defaultShutdownTimeout = 10 * time.Second

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the gateway router.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewServer creates a server for handler.
func NewServer(cfg ServerConfig, handler http.Handler, l logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          l,
	}
}

// Run serves until ctx is canceled, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway: listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("gateway: shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}

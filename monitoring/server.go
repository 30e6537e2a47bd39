package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"serialtool/config"
	"serialtool/controller"
)

// Server provides HTTP endpoints for observing a running session
type Server struct {
	config *config.MonitoringConfig
	echo   *echo.Echo
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new monitoring server
func NewServer(cfg *config.Config, version string, ctrl *controller.Controller, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	health := NewHealthHandler(cfg.App.InstanceID, version, ctrl)
	metrics := NewMetricsHandler(ctrl)
	api := NewAPIHandler(ctrl)
	cfgHandler := NewConfigHandler(cfg)

	e.GET("/health", health.Handle)
	e.GET("/metrics", metrics.Handle)

	g := e.Group("/api")
	g.GET("/ports", api.HandlePorts)
	g.GET("/events", api.HandleEvents)
	g.GET("/commands", api.HandleCommands)
	g.GET("/config", cfgHandler.Handle)

	return &Server{
		config: &cfg.Monitoring,
		echo:   e,
		server: &http.Server{
			Addr:         cfg.Monitoring.ListenAddr(),
			Handler:      e,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting monitoring server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop gracefully stops the monitoring server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping monitoring server")
	return s.server.Shutdown(ctx)
}

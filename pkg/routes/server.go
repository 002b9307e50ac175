// Package routes wires the ops HTTP server: health probes, metrics and pass triggers
package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/middleware"
)

// Server is the ops HTTP server
type Server struct {
	echo   *echo.Echo
	runs   *RunHandler
	logger ectologger.Logger
}

// NewServer builds the echo instance and registers every route
func NewServer(appName string, checker *health.Checker, runs *RunHandler, logger ectologger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(appName))
	e.Use(middleware.Logger(logger))

	checker.ReportPass(runs.ActivePass)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.POST("/runs/:pass", runs.Trigger)
	api.GET("/runs/current", runs.Status)

	return &Server{
		echo:   e,
		runs:   runs,
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on port until ctx is done, then shuts down and waits for the
// running pass to return
func (s *Server) Start(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Ops server listening on %s", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down ops server: %w", err)
	}
	s.runs.Wait()
	s.logger.Info("Ops server stopped")
	return nil
}

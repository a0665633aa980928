package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/careergraph/config"
	"github.com/mohammad-safakhou/careergraph/internal/agent/core"
	"github.com/mohammad-safakhou/careergraph/internal/logger"
	cgruntime "github.com/mohammad-safakhou/careergraph/internal/runtime"
)

// Pipeline produces the terminal state for one query.
type Pipeline interface {
	Run(ctx context.Context, query string) core.State
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config   *config.Config
	Pipeline Pipeline
	Logger   *logger.Logger
	Metrics  *cgruntime.Metrics
	Version  string
	// Now defaults to time.Now.
	Now func() time.Time
}

// New builds the echo application with every route mounted.
func New(deps Deps) *echo.Echo {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := deps.Config.Server

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	// Unified HTTP error handler with structured JSON and logging
	httpLog := deps.Logger.With("component", "http")
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		kv := []interface{}{
			"status", code,
			"method", req.Method,
			"path", req.URL.Path,
			"remote", c.RealIP(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", msg,
		}
		if code >= http.StatusInternalServerError {
			httpLog.Error("request failed", kv...)
		} else {
			httpLog.Warn("request rejected", kv...)
		}
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"detail": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))

	rh := &RoadmapHandler{
		Pipeline: deps.Pipeline,
		Log:      deps.Logger.With("component", "roadmap"),
		Timeout:  cfg.RequestTimeout,
		Now:      deps.Now,
	}
	api := e.Group("/api")
	rh.Register(api)

	sh := &StatusHandler{Config: deps.Config, Version: deps.Version, Now: deps.Now}
	sh.Register(e)
	e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))

	return e
}

// Run serves e on addr until ctx is cancelled, then drains in-flight
// requests for up to grace.
func Run(ctx context.Context, e *echo.Echo, addr string, grace time.Duration, log *logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	log.Info("shutting down", "grace", grace)
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

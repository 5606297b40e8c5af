// Package server exposes the attractor service over HTTP: the parameter
// authority under /api/params, websocket ingress for effector state,
// websocket egress for force commands, health, and prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmlab/attractor/internal/attractor"
	"github.com/nmlab/attractor/internal/metrics"
)

type Server struct {
	echo   *echo.Echo
	loop   *attractor.SampleLoop
	feed   *attractor.Feed
	hub    *Hub
	logger *slog.Logger
}

func New(loop *attractor.SampleLoop, feed *attractor.Feed, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{
		echo:   echo.New(),
		loop:   loop,
		feed:   feed,
		hub:    hub,
		logger: logger,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/api/params", s.handleGetParams)
	s.echo.PUT("/api/params", s.handlePutParams)
	s.echo.GET("/ws/state", s.handleStateIngress)
	s.echo.GET("/ws/force", s.handleForceEgress)
}

// Handler returns the underlying HTTP handler, used by tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"loop":   s.loop.State().String(),
	})
}

func (s *Server) handleGetParams(c echo.Context) error {
	return c.JSON(http.StatusOK, s.loop.Config().Params())
}

// handlePutParams applies a configuration update. The request body may be
// partial: absent fields keep their current values. Validation is
// all-or-nothing; a rejected update leaves the active snapshot untouched.
func (s *Server) handlePutParams(c echo.Context) error {
	params := s.loop.Config().Params()
	if err := c.Bind(&params); err != nil {
		metrics.ParameterUpdatesTotal.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	cfg, err := attractor.NewConfiguration(params)
	if err != nil {
		metrics.ParameterUpdatesTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn("parameter update rejected", "err", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	s.loop.Swap(cfg)
	metrics.ParameterUpdatesTotal.WithLabelValues("applied").Inc()
	s.logger.Info("parameters updated",
		"stiffness", cfg.Stiffness,
		"damping", cfg.Damping,
		"interval", cfg.SampleInterval,
	)
	return c.JSON(http.StatusOK, cfg.Params())
}

package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the body of the /healthz response.
type Status struct {
	Status        string     `json:"status"` // ok, degraded or stopped
	State         string     `json:"state"`
	Presence      string     `json:"presence,omitempty"`
	LastValue     string     `json:"last_value,omitempty"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	Stale         bool       `json:"stale"`
}

// StatusFunc reports the current Status.
type StatusFunc func() Status

// Server serves /metrics and /healthz.
type Server struct {
	e      *echo.Echo
	addr   string
	logger *slog.Logger
}

// NewServer creates a Server listening on addr once started.
func NewServer(addr string, c *Collector, status StatusFunc) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{})))
	e.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, status())
	})

	return &Server{
		e:      e,
		addr:   addr,
		logger: slog.Default(),
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until Shutdown is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("[metrics][Start] serving metrics", "addr", s.addr)
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

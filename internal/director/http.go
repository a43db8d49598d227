package director

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// HTTPServer is the Director's read-only diagnostics surface: health,
// Prometheus metrics and a JSON dump of the worker registry and placement
// map. It runs alongside the ZeroMQ control plane and is not part of the
// RPC protocol.
type HTTPServer struct {
	echo *echo.Echo
	addr string
}

func NewHTTPServer(addr string, d *Director) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":         "ok",
			"uptime_seconds": time.Since(d.StartTime()).Seconds(),
		})
	})

	e.GET("/metrics", echo.WrapHandler(d.metrics.Handler()))

	e.GET("/debug/workers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"workers":   d.State().LiveWorkers(),
			"placement": d.State().PlacementSnapshot(),
		})
	})

	return &HTTPServer{echo: e, addr: addr}
}

// Start serves until Shutdown; it returns http.ErrServerClosed on a clean
// stop.
func (s *HTTPServer) Start() error {
	return s.echo.Start(s.addr)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

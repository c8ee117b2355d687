// Package web serves the interactive BT query demo over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/whhaicheng/PenguinBM/internal/app/usecase"
	"github.com/whhaicheng/PenguinBM/internal/domain/config"
	"github.com/whhaicheng/PenguinBM/internal/domain/query"
)

//go:embed static/index.html
var static embed.FS

// Querier runs one query specification.
type Querier interface {
	Values(ctx context.Context, spec query.Spec) (*usecase.QueryResult, error)
}

// Server is the demo HTTP server.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
	log  *slog.Logger
}

// NewServer wires routes and middleware around queries.
func NewServer(cfg config.ServerConfig, queries Querier, log *slog.Logger) *Server {
	log = log.With(slog.String("component", "web"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(log)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(
		middleware.RequestID(),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/healthz" || path == "/metrics"
			},
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogError:     true,
			LogMethod:    true,
			LogRequestID: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []any{
					slog.String("method", v.Method),
					slog.String("uri", v.URI),
					slog.Int("status", v.Status),
					slog.Duration("latency", v.Latency),
					slog.String("request_id", v.RequestID),
				}
				if v.Error != nil {
					attrs = append(attrs, slog.Any("error", v.Error))
					log.Error("request failed", attrs...)
				} else {
					log.Info("request", attrs...)
				}
				return nil
			},
		}),
		middleware.RecoverWithConfig(middleware.RecoverConfig{
			LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
				log.Error("panic recovered", slog.Any("error", err), slog.String("stack", string(stack)))
				return nil
			},
		}),
	)

	h := NewHandler(queries, log)
	RegisterRoutes(e, h)

	return &Server{echo: e, cfg: cfg, log: log}
}

// RegisterRoutes registers the demo routes.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.Index)
	e.POST("/user_query", h.UserQuery)
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.echo,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

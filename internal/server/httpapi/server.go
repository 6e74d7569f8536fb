// Package httpapi exposes the portfolio over HTTP with echo. Sessions are
// JWTs carried in the session cookie or an Authorization: Bearer header.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/divkeeper/internal/logging"
	"github.com/dmitrijs2005/divkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/divkeeper/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Health reports whether storage finished migrating and is reachable.
type Health interface {
	Ready() bool
	Ping(ctx context.Context) error
}

// Services groups the business logic the handlers call.
type Services struct {
	Users     *services.UserService
	Portfolio *services.PortfolioService
	Prices    *services.PriceService
}

type HTTPServer struct {
	address  string
	echo     *echo.Echo
	services Services
	health   Health
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func NewHTTPServer(address string, l logging.Logger, svc Services, health Health, m *metrics.Metrics) *HTTPServer {
	s := &HTTPServer{
		address:  address,
		echo:     echo.New(),
		services: svc,
		health:   health,
		metrics:  m,
		logger:   l.With("module", "http_server"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleEchoError
	s.routes()
	return s
}

func (s *HTTPServer) routes() {
	e := s.echo
	e.Use(middleware.Recover())
	e.Use(s.requestID)
	e.Use(s.metricsMiddleware)

	e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	e.GET("/healthz", s.healthz)

	api := e.Group("/api")
	api.POST("/login", s.login)
	api.POST("/logout", s.logout)

	authed := api.Group("", s.authenticate)
	authed.GET("/me", s.me)
	authed.GET("/price/:code", s.price)
	authed.GET("/stocks", s.listStocks)
	authed.POST("/stocks", s.createStock)
	authed.PUT("/stocks/:id", s.updateStock)
	authed.DELETE("/stocks/:id", s.deleteStock)
	authed.POST("/stocks/update-prices", s.updatePrice)
	authed.POST("/stocks/refresh-prices", s.refreshPrices)
	authed.POST("/dividends", s.createDividend)
	authed.DELETE("/dividends/:id", s.deleteDividend)
	authed.GET("/export", s.export)
	authed.POST("/import", s.importSnapshot, middleware.BodyLimit(importBodyLimit))

	admin := authed.Group("/admin", s.requireAdmin)
	admin.GET("/export", s.exportAll)
	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	admin.PUT("/users/:id", s.updateUser)
	admin.DELETE("/users/:id", s.deleteUser)
}

// Handler is the routed echo instance, used by tests.
func (s *HTTPServer) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *HTTPServer) healthz(c echo.Context) error {
	if !s.health.Ready() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "starting"})
	}
	if err := s.health.Ping(c.Request().Context()); err != nil {
		loggerFrom(c, s.logger).Warn(c.Request().Context(), "health ping failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

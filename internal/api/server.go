package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carelog/daycare-bot/internal/repository"
	"github.com/carelog/daycare-bot/internal/usecases"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// SheetReader is the cached spreadsheet access used by the proxy endpoint
type SheetReader interface {
	Read(ctx context.Context, rng string) ([][]string, error)
	Refresh(ctx context.Context, rng string) ([][]string, error)
	Purge()
}

// Pinger reports storage health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the HTTP API. Nil members disable their routes.
type Deps struct {
	Records           *usecases.CareRecordUseCase
	Reports           *usecases.ReportUseCase
	Sheets            SheetReader
	Notifications     repository.NotificationRepository
	DB                Pinger
	LINEChannelSecret string
	APIToken          string
}

// Server wires handlers onto an echo instance
type Server struct {
	deps Deps
	*echo.Echo
}

// NewServer builds the router
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, Echo: echo.New()}
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = ErrorHandler
	s.RegisterRoutes()
	return s
}

// HTTPServer wraps the router in an http.Server with network timeouts
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// RegisterRoutes mounts every endpoint
func (s *Server) RegisterRoutes() {
	s.Use(LoggerMiddleware)
	s.Use(middleware.Recover())
	s.Use(middleware.BodyLimit("2M"))

	s.GET("/health", s.healthHandler)

	api := s.Group("/api")

	if s.deps.Reports != nil {
		api.POST("/line-webhook", s.notifyHandler)
		api.GET("/elders", s.listEldersHandler)
		api.GET("/elders/:name/health", s.elderHealthHandler)
	}

	if s.deps.Records != nil {
		for path, kind := range recordRoutes {
			h := &recordHandler{uc: s.deps.Records, kind: kind}
			g := api.Group("/" + path)
			g.GET("", h.list)
			g.POST("", h.create)
			g.GET("/:id", h.get)
			g.PUT("/:id", h.update)
			g.DELETE("/:id", h.delete)
		}
		api.GET("/records/export", s.exportHandler)
	}

	if s.deps.Sheets != nil {
		api.GET("/sheets/:sheet", s.sheetHandler)
	}

	if s.deps.Notifications != nil {
		api.GET("/notifications", s.listNotificationsHandler)
	}
}

// LoggerMiddleware tags each request with an id and a child logger
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(echo.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set(echo.HeaderXRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		c.Set("logger", &logger)

		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		logger.Info().
			Str("method", c.Request().Method).
			Str("uri", c.Request().RequestURI).
			Int("status", c.Response().Status).
			Dur("latency", time.Since(start)).
			Msg("Handled request")
		return nil
	}
}

func (s *Server) healthHandler(c echo.Context) error {
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Error: "database unavailable"})
		}
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "ok"})
}

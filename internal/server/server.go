package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-cvbankas-scraper/internal/config"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type ScraperServer struct {
	httpServer *http.Server
	router     *gin.Engine
	config     config.Server
	handler    *ScrapeHandler
	logger     *slog.Logger
}

func NewServer(cfg config.Server, handler *ScrapeHandler, logger *slog.Logger) (*ScraperServer, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	return &ScraperServer{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:  router,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (s *ScraperServer) SetUpRoutes() {
	s.router.GET("/", s.handler.Health)
	s.router.GET("/scrape", s.handler.Scrape)
}

// Handler exposes the router, mainly for tests.
func (s *ScraperServer) Handler() http.Handler {
	return s.router
}

// Run blocks until the server stops. It returns http.ErrServerClosed after Shutdown.
func (s *ScraperServer) Run() error {
	s.SetUpRoutes()
	s.logger.Info("server listening", "port", s.config.Port)
	return s.httpServer.ListenAndServe()
}

func (s *ScraperServer) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server shutdown completed")
	return nil
}

// RequestIDMiddleware keeps the caller's X-Request-ID or assigns a new one,
// and echoes it back.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"request_id", RequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

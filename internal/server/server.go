// Package server exposes the aggregator over a small JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/git-tkc/self-assistant/internal/aggregate"
	"github.com/git-tkc/self-assistant/internal/logger"
	"github.com/git-tkc/self-assistant/internal/model"
	"github.com/git-tkc/self-assistant/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Aggregator is the part of the aggregate package the handlers use.
type Aggregator interface {
	Aggregate(ctx context.Context) model.AggregationResult
	AggregateSource(ctx context.Context, name string) (model.AggregationResult, error)
	Probe(ctx context.Context, name string) (model.ProbeResult, error)
	Sources() []model.SourceName
}

// Deps are the collaborators of the HTTP layer. Journal, Credentials and
// Config may be nil.
type Deps struct {
	Aggregator  Aggregator
	Journal     store.Journal
	Credentials aggregate.Credentials
	Config      *model.AppConfig
	Logger      logger.Logger
}

// Server wraps the gin engine.
type Server struct {
	deps   Deps
	router *gin.Engine
}

// New builds the router. gin's mode is left to the caller.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	s := &Server{deps: deps, router: gin.New()}
	s.router.Use(gin.Recovery(), LoggerMiddleware(deps.Logger), CORSMiddleware())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.GET("/health", s.health)

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.POST("/refresh", s.refreshTasks)
	tasks.GET("/:source", s.listSourceTasks)

	services := api.Group("/services")
	services.POST("/test/:source", s.probeSource)
	services.GET("/config", s.serviceConfig)

	notifications := api.Group("/notifications")
	notifications.GET("", s.listNotifications)
	notifications.POST("/:id/read", s.markNotificationRead)
	notifications.POST("/read", s.markAllNotificationsRead)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	log := s.deps.Logger
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server: listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Debug("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server: shutdown complete")
	return nil
}

// LoggerMiddleware attaches log to each request context and logs the
// completed request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))

		c.Next()

		log.Info("request completed",
			"method", c.Request.Method,
			"path", path,
			"status_code", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// CORSMiddleware allows the dashboard to call the API from another origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bodyanalyzer "github.com/menta2k/body-analyzer"
	"github.com/menta2k/body-analyzer/internal/config"
)

// Server wraps the gin engine and its http.Server
type Server struct {
	analyzer *bodyanalyzer.Analyzer
	cfg      config.ServerConfig
	logger   *zap.Logger
	engine   *gin.Engine
	srv      *http.Server
}

// New builds the router. The analyzer is shared by all requests.
func New(a *bodyanalyzer.Analyzer, cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := gin.New()
	engine.Use(requestLogger(logger), recovery(logger))

	s := &Server{
		analyzer: a,
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
	}

	engine.GET("/healthz", s.health)
	api := engine.Group("/api")
	{
		api.POST("/classify", s.classify)
		api.GET("/recommendations/:bodyType", s.recommendations)
		api.POST("/analyze", s.analyze)
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the router for use with httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Package api wires the gin REST surface: one route group per resource,
// registered the way the rest of the codebase splits its handlers.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "taskloom/internal/api/v1"
	"taskloom/internal/config"
	"taskloom/internal/logging"
)

// Server hosts the HTTP API.
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	srv    *http.Server
}

func New(cfg *config.Config, handlers *v1.Handlers) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", handlers.Health)

	api := engine.Group("/api")
	v1.RegisterWorkflowRoutes(api, handlers)
	v1.RegisterChatRoutes(api, handlers)

	return &Server{
		cfg:    cfg,
		engine: engine,
		srv: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler: engine,
		},
	}
}

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.srv.Shutdown(context.Background())
	}()

	logging.Info("api: listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Package api is the HTTP surface: gin routes over the service layer with
// bearer JWT authentication and the shared error taxonomy mapping.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/database"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/store"
)

// Server is the inbound HTTP server.
type Server struct {
	cfg      *config.HTTPConfig
	db       *database.Client
	cache    *cache.Client
	tenants  *services.TenantService
	threads  *services.ThreadService
	memories *services.MemoryService
	runs     *services.RunService
	jobs     *store.JobStore

	httpServer *http.Server
}

// NewServer wires the routes and returns a Server ready to start.
func NewServer(cfg *config.HTTPConfig, db *database.Client, c *cache.Client,
	tenants *services.TenantService, threads *services.ThreadService,
	memories *services.MemoryService, runs *services.RunService, jobs *store.JobStore) *Server {
	s := &Server{
		cfg:      cfg,
		db:       db,
		cache:    c,
		tenants:  tenants,
		threads:  threads,
		memories: memories,
		runs:     runs,
		jobs:     jobs,
	}
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", s.handleHealthz)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware(s.cfg))
	v1.POST("/auth/token", s.handleAuthToken)
	v1.POST("/tenants/sync", s.handleTenantSync)
	v1.POST("/threads", s.handleCreateThread)
	v1.POST("/threads/:thread_id/runs/wait", s.handleRunWait)
	v1.POST("/threads/:thread_id/runs/async", s.handleRunAsync)
	v1.POST("/threads/:thread_id/runs/:run_id/status", s.handleRunStatus)
	v1.POST("/memory/insert", s.handleMemoryInsert)
	v1.POST("/memory/delete", s.handleMemoryDelete)
	v1.POST("/threads/:thread_id/memory/append", s.handleMemoryAppend)
	v1.POST("/videos", s.handleCreateVideo)
	v1.GET("/audio/:audio_id", s.handleGetAudio)
	return router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

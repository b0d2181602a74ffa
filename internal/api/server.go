// Package api exposes the report-analysis pipeline over HTTP with gin.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/birads-report-server/internal/casebase"
	"github.com/birads-report-server/internal/domain"
	"github.com/birads-report-server/internal/knowledge"
	"github.com/birads-report-server/internal/middleware"
	"github.com/birads-report-server/internal/service"
)

// HealthChecker reports whether a backing component is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the HTTP surface needs. Archive, ArchiveHealth
// and Matcher may be nil; the corresponding routes degrade instead of
// failing at startup.
type Deps struct {
	Config        *domain.Config
	Logger        *logrus.Logger
	Analyzer      *service.Analyzer
	Matcher       *service.Matcher
	CaseStore     casebase.Store
	Knowledge     *knowledge.Base
	Archive       domain.AnalysisArchive
	ArchiveHealth HealthChecker
	EncoderName   string
}

// Server represents the HTTP server.
type Server struct {
	deps        Deps
	router      *gin.Engine
	server      *http.Server
	resultCache *expirable.LRU[string, *domain.AnalysisResult]
}

// NewServer creates a new HTTP server instance.
func NewServer(deps Deps) *Server {
	switch deps.Config.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		router.Use(middleware.RequestTimeout(timeout))
	}

	cacheSize := deps.Config.Analysis.ResultCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cacheTTL := deps.Config.Analysis.ResultCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	server := &Server{
		deps:        deps,
		router:      router,
		resultCache: expirable.NewLRU[string, *domain.AnalysisResult](cacheSize, nil, cacheTTL),
	}

	server.setupRoutes()
	return server
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.deps.Config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("starting server: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.deps.Logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)

		v1.GET("/guidelines", s.handleListGuidelines)
		v1.GET("/guidelines/:code", s.handleGetGuideline)

		v1.POST("/similar", s.handleSimilar)

		v1.GET("/cases", s.handleListCases)
		v1.POST("/cases", s.handleSaveCase)
		v1.GET("/cases/export", s.handleExportCases)
		v1.POST("/cases/import", s.handleImportCases)
		v1.GET("/cases/:id", s.handleGetCase)
		v1.DELETE("/cases/:id", s.handleDeleteCase)

		v1.POST("/evaluate", s.handleEvaluate)

		v1.GET("/analyses", s.handleListAnalyses)
		v1.GET("/analyses/:id", s.handleGetAnalysis)

		v1.GET("/stats", s.handleStats)
	}
}

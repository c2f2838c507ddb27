package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/engine"
	"github.com/harborline/docflow/storage"
)

// Pipeline is the engine surface the gateway drives. Satisfied by
// *engine.Engine.
type Pipeline interface {
	Submit(ctx context.Context, job core.JobDescriptor) (engine.Submission, error)
	Lookup(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error)
	Reconfigure(limit int) error
	InFlight() int
	Queued() int
	Limit() int
}

// ConcurrencySync mirrors the concurrency bound into an external workflow
// engine. Satisfied by *workflowsync.Synchronizer; nil disables mirroring.
type ConcurrencySync interface {
	GetExternalConcurrency(ctx context.Context) (int, error)
	SetExternalConcurrency(ctx context.Context, runs int) error
}

// Server is the ingestion and observation HTTP surface. It holds no
// pipeline state of its own; every accept path hands off to the engine and
// returns immediately.
type Server struct {
	pipeline Pipeline
	records  storage.RecordStore
	objects  storage.ObjectStore
	syncer   ConcurrencySync
	logger   *slog.Logger
	router   *gin.Engine
	http     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithConcurrencySync enables mirroring concurrency updates to an external
// workflow engine.
func WithConcurrencySync(syncer ConcurrencySync) Option {
	return func(s *Server) { s.syncer = syncer }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the gateway around a pipeline and its backing stores.
func NewServer(pipeline Pipeline, records storage.RecordStore, objects storage.ObjectStore, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		pipeline: pipeline,
		records:  records,
		objects:  objects,
		logger:   slog.Default(),
		router:   gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	{
		v1.POST("/events", s.handleEvents)
		v1.POST("/documents", s.handleManualTrigger)
		v1.GET("/documents/:container/*path", s.handleGetDocument)
		v1.GET("/healthz", s.handleHealthz)
		v1.GET("/config/concurrency", s.handleGetConcurrency)
		v1.PUT("/config/concurrency", s.handlePutConcurrency)
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP on bind until Shutdown.
func (s *Server) ListenAndServe(bind string) error {
	s.http = &http.Server{
		Addr:              bind,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("gateway listening", "bind", bind)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aleksaelezovic/plywrite/internal/storage"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
)

// maxDocumentSize caps PUT bodies
const maxDocumentSize = 64 << 20

// Server serves stored meshes as PLY over HTTP
type Server struct {
	meshes *storage.MeshStore
	addr   string
	format ply.Format
	cache  *ply.PlanCache
	logger *slog.Logger
	http   *http.Server
}

// NewServer creates a server for meshes. format is used when a request
// names none. A nil logger discards.
func NewServer(meshes *storage.MeshStore, addr string, format ply.Format, cache *ply.PlanCache, logger *slog.Logger) *Server {
	if cache == nil {
		cache = ply.DefaultPlanCache
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		meshes: meshes,
		addr:   addr,
		format: format,
		cache:  cache,
		logger: logger,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /meshes", s.handleList)
	mux.HandleFunc("GET /meshes/{name}", s.handleGet)
	mux.HandleFunc("GET /meshes/{name}/info", s.handleInfo)
	mux.HandleFunc("PUT /meshes/{name}", s.handlePut)
	mux.HandleFunc("DELETE /meshes/{name}", s.handleDelete)
	mux.HandleFunc("OPTIONS /", s.handleOptions)
	return s.withLogging(s.withCORS(mux))
}

// Start listens on the configured address until Shutdown
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting PLY endpoint", "url", "http://"+s.addr+"/meshes")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight streams
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Package server exposes a search session over HTTP for the web frontend.
//
// Routes:
//
//	GET    /healthz
//	GET    /api/view              current view with the flow-graph payload
//	POST   /api/search?query=…    run a search (or JSON body {"query": …})
//	POST   /api/select/{id}       select a node (ids may contain slashes)
//	DELETE /api/select            clear the selection
//	POST   /api/connect           connect gesture, logged only
//	GET    /api/view.{format}     current snapshot as svg, dot or json
//	GET    /api/status?paper_id=… ingestion status, batched upstream
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/papergraph/pkg/paper"
	"github.com/matzehuels/papergraph/pkg/pipeline"
	"github.com/matzehuels/papergraph/pkg/search"
)

// StatusFetcher looks up ingestion status. *api.Client implements it.
type StatusFetcher interface {
	StatusBatched(ctx context.Context, ids []string) ([]paper.PaperStatus, error)
}

// Config wires a Server.
type Config struct {
	Session        *search.Session
	Runner         *pipeline.Runner // Renders artifacts; nil gets an uncached runner
	Status         StatusFetcher    // Optional; /api/status returns 501 without it
	Logger         *log.Logger
	AllowedOrigins []string
}

// Server is the HTTP surface.
type Server struct {
	session *search.Session
	runner  *pipeline.Runner
	status  StatusFetcher
	logger  *log.Logger
	origins []string
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runner := cfg.Runner
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{
		session: cfg.Session,
		runner:  runner,
		status:  cfg.Status,
		logger:  logger,
		origins: cfg.AllowedOrigins,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.getView)
		r.Get("/view.{format}", s.renderView)
		r.Post("/search", s.search)
		r.Post("/select/*", s.selectNode)
		r.Delete("/select", s.clearSelection)
		r.Post("/connect", s.connect)
		r.Get("/status", s.getStatus)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()))
	})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/feedscout/pkg/scheduler"
	"github.com/umputun/feedscout/pkg/store"
)

// Server exposes discovery state and on-demand operations over HTTP
type Server struct {
	config    ConfigProvider
	store     Store
	scheduler Scheduler
	version   string
	debug     bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Store interface for server read operations
type Store interface {
	GetRecommendations(ctx context.Context, limit int) ([]store.Recommendation, error)
	GetCandidates(ctx context.Context, limit int) ([]store.CandidateInfo, error)
	GetPrimarySources(ctx context.Context) ([]store.PrimarySource, error)
	GetLastRun(ctx context.Context) (*store.Run, error)
}

// Scheduler interface for on-demand discovery runs
type Scheduler interface {
	RunOnce(ctx context.Context) (*scheduler.Result, error)
	LastResult() *scheduler.Result
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance
func New(cfg ConfigProvider, st Store, sched Scheduler, version string, debug bool) *Server {
	s := &Server{
		config:    cfg,
		store:     st,
		scheduler: sched,
		version:   version,
		debug:     debug,
		router:    routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// Router returns the configured handler, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("feedscout", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /recommendations", s.recommendationsHandler)
		r.HandleFunc("GET /candidates", s.candidatesHandler)
		r.HandleFunc("GET /sources", s.sourcesHandler)
		r.HandleFunc("POST /discover", s.discoverHandler)
	})
}

// statusHandler returns server status with the latest run summary
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}

	if last := s.scheduler.LastResult(); last != nil {
		status["last_run"] = map[string]interface{}{
			"run_id":          last.RunID,
			"started_at":      last.StartedAt.UTC(),
			"finished_at":     last.FinishedAt.UTC(),
			"sources_fetched": last.SourcesFetched,
			"sources_failed":  last.SourcesFailed,
			"posts_analyzed":  last.PostsAnalyzed,
			"candidates":      last.Candidates,
			"recommended":     len(last.Recommendations),
		}
	} else if stored, err := s.store.GetLastRun(r.Context()); err == nil && stored != nil {
		// nothing ran in this process yet, fall back to the persisted run
		status["last_run"] = map[string]interface{}{
			"run_id":          stored.ID,
			"started_at":      stored.StartedAt.UTC(),
			"finished_at":     stored.FinishedAt.UTC(),
			"sources_fetched": stored.SourcesFetched,
			"posts_analyzed":  stored.PostsAnalyzed,
			"candidates":      stored.Candidates,
			"recommended":     stored.Recommended,
		}
	}

	renderJSON(w, r, http.StatusOK, status)
}

// recommendationsHandler returns the ranked recommendations of the latest run
func (s *Server) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.GetRecommendations(r.Context(), limitParam(r, 100))
	if err != nil {
		lgr.Printf("[ERROR] failed to get recommendations: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"recommendations": recs})
}

// candidatesHandler returns discovered sources with their citation counts
func (s *Server) candidatesHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.store.GetCandidates(r.Context(), limitParam(r, 100))
	if err != nil {
		lgr.Printf("[ERROR] failed to get candidates: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"candidates": candidates})
}

// sourcesHandler returns the registered primary sources
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.GetPrimarySources(r.Context())
	if err != nil {
		lgr.Printf("[ERROR] failed to get primary sources: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]interface{}{"sources": sources})
}

// discoverHandler triggers a discovery run in the background. The run uses
// a detached context so it survives the HTTP request.
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	go func() {
		if _, err := s.scheduler.RunOnce(context.Background()); err != nil {
			lgr.Printf("[ERROR] on-demand discovery run failed: %v", err)
		}
	}()
	renderJSON(w, r, http.StatusAccepted, map[string]string{"status": "discovery started"})
}

// limitParam extracts the limit query parameter with a default
func limitParam(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			return limit
		}
	}
	return def
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"error": errMsg})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"socsim/internal/logger"
	"socsim/internal/report"
	"socsim/internal/store"
	"socsim/pkg/models"
)

// StreamControl is the slice of the scheduler the API drives.
type StreamControl interface {
	Start() bool
	Stop() bool
	SetPattern(name string) bool
	Stats() models.StreamStats
}

// Server is a thin HTTP adapter over the stream, store and report generator.
type Server struct {
	stream   StreamControl
	store    store.Store
	reports  *report.Generator
	feed     http.Handler
	metrics  http.Handler
	patterns []string
	validate *validator.Validate
	now      func() time.Time
}

// Options wires optional handlers.
type Options struct {
	Feed     http.Handler
	Metrics  http.Handler
	Patterns []string
}

// NewServer creates the API server.
func NewServer(stream StreamControl, st store.Store, reports *report.Generator, opts Options) *Server {
	if reports == nil {
		reports = report.NewGenerator(nil)
	}
	return &Server{
		stream:   stream,
		store:    st,
		reports:  reports,
		feed:     opts.Feed,
		metrics:  opts.Metrics,
		patterns: opts.Patterns,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api.HandleFunc("/stream/status", s.streamStatus).Methods(http.MethodGet)
	api.HandleFunc("/stream/start", s.streamStart).Methods(http.MethodPost)
	api.HandleFunc("/stream/stop", s.streamStop).Methods(http.MethodPost)
	api.HandleFunc("/stream/pattern", s.streamPattern).Methods(http.MethodPost)
	api.HandleFunc("/dashboard/stats", s.dashboardStats).Methods(http.MethodGet)
	api.HandleFunc("/incidents", s.listIncidents).Methods(http.MethodGet)
	api.HandleFunc("/incidents/recent", s.recentIncidents).Methods(http.MethodGet)
	api.HandleFunc("/incidents/{id}", s.getIncident).Methods(http.MethodGet)
	api.HandleFunc("/incidents/{id}/report", s.incidentReport).Methods(http.MethodGet)
	api.HandleFunc("/incidents/{id}/status", s.updateStatus).Methods(http.MethodPatch)
	if s.feed != nil {
		api.Handle("/stream/ws", s.feed).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

// ListenAndServe serves the router until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

type errorResponse struct {
	Error         string   `json:"error"`
	ValidPatterns []string `json:"validPatterns,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/valpere/MinwonScrapexter/internal/scraper"
)

// ProgressSource reports the running phase
type ProgressSource interface {
	Snapshot() scraper.Progress
}

// Server exposes metrics, liveness and crawl progress over HTTP
type Server struct {
	metrics  *Metrics
	progress ProgressSource
	started  time.Time
	logger   logrus.FieldLogger
	srv      *http.Server
}

// NewServer creates a monitoring server. progress may be nil.
func NewServer(addr string, metrics *Metrics, progress ProgressSource, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		metrics:  metrics,
		progress: progress,
		started:  time.Now(),
		logger:   logger,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/progress", s.progressHandler).Methods(http.MethodGet)
	return r
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("monitoring server shutdown failed")
		}
	}()

	s.logger.WithField("addr", s.srv.Addr).Info("monitoring server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

type progressResponse struct {
	scraper.Progress
	Percent float64 `json:"percent"`
}

func (s *Server) progressHandler(w http.ResponseWriter, _ *http.Request) {
	var p scraper.Progress
	if s.progress != nil {
		p = s.progress.Snapshot()
	}
	writeJSON(w, progressResponse{Progress: p, Percent: p.Percent()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

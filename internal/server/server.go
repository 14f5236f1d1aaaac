// Package server exposes the running engine over a small local HTTP API so
// status bars and other UI layers can show the next prayer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/smokyabdulrahman/athany/internal/engine"
	"github.com/smokyabdulrahman/athany/internal/metrics"
	"github.com/smokyabdulrahman/athany/internal/prayer"
	"github.com/smokyabdulrahman/athany/internal/queue"
)

// Status is the read side of the engine.
type Status interface {
	NextPrayer() (prayer.Prayer, error)
	TodayHijri(ctx context.Context, now time.Time) (string, error)
	Snapshot() engine.Snapshot
}

type api struct {
	status Status
	now    func() time.Time
	logger *zap.Logger
}

// NewRouter registers the status routes. m may be nil, in which case
// /metrics is not served.
func NewRouter(status Status, m *metrics.Metrics, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &api{status: status, now: time.Now, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/health", a.health).Methods("GET")
	r.HandleFunc("/next", a.next).Methods("GET")
	r.HandleFunc("/hijri", a.hijri).Methods("GET")
	r.HandleFunc("/queue", a.queue).Methods("GET")
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}
	return r
}

type nextResponse struct {
	Prayer           string    `json:"prayer"`
	Time             time.Time `json:"time"`
	Remaining        string    `json:"remaining"`
	RemainingSeconds int64     `json:"remaining_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	snap := a.status.Snapshot()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "state": snap.State, "session": snap.Session})
}

func (a *api) next(w http.ResponseWriter, r *http.Request) {
	now := a.now()
	p, err := a.status.NextPrayer()
	if err != nil {
		a.fail(w, err)
		return
	}
	d := prayer.TimeRemaining(p, now)
	writeJSON(w, http.StatusOK, nextResponse{
		Prayer:           p.Name,
		Time:             p.Time,
		Remaining:        prayer.FormatRemaining(d),
		RemainingSeconds: int64(d / time.Second),
	})
}

func (a *api) hijri(w http.ResponseWriter, r *http.Request) {
	h, err := a.status.TodayHijri(r.Context(), a.now())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hijri": h})
}

func (a *api) queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.status.Snapshot())
}

// fail maps engine errors to status codes. An empty queue only happens
// while a rollover is in progress.
func (a *api) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, queue.ErrEmpty) {
		code = http.StatusServiceUnavailable
	}
	a.logger.Debug("Status request failed", zap.Int("code", code), zap.Error(err))
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Server serves the status API until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// New returns a server on addr with access logging through logger.
func New(addr string, status Status, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := NewRouter(status, m, logger)
	access := zap.NewStdLog(logger.Named("http")).Writer()

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handlers.LoggingHandler(access, router),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Status API listening", zap.String("addr", ln.Addr().String()))
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

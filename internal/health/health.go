// Package health serves liveness, readiness and dependency status over HTTP.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/swap-router/internal/logger"
)

const checkTimeout = 5 * time.Second

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// Report is the /health body.
type Report struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check is the outcome of one dependency probe.
type Check struct {
	Healthy   bool   `json:"healthy"`
	Critical  bool   `json:"critical"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// CheckFunc probes a dependency. A nil error means healthy; the string is a
// short detail such as "block 19000000".
type CheckFunc func(ctx context.Context) (string, error)

type registered struct {
	critical bool
	fn       CheckFunc
}

// Server exposes /health, /ready and /live. A failing critical check marks
// the service down and not ready; a failing optional check only degrades it.
type Server struct {
	port    int
	version string
	log     logger.LoggerInterface

	mu     sync.RWMutex
	checks map[string]registered
	server *http.Server
}

func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		log:     log,
		checks:  make(map[string]registered),
	}
}

// RegisterCheck adds or replaces a named probe.
func (s *Server) RegisterCheck(name string, critical bool, fn CheckFunc) {
	s.mu.Lock()
	s.checks[name] = registered{critical: critical, fn: fn}
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("alive"))
	})
	return mux
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "health server stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Run probes every registered check concurrently.
func (s *Server) Run(ctx context.Context) Report {
	s.mu.RLock()
	checks := make(map[string]registered, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var mu sync.Mutex
	report := Report{
		Status:    StatusOK,
		Checks:    make(map[string]Check, len(checks)),
		Version:   s.version,
		Timestamp: time.Now().UTC(),
	}

	var g errgroup.Group
	for name, c := range checks {
		g.Go(func() error {
			start := time.Now()
			msg, err := c.fn(ctx)
			res := Check{Healthy: err == nil, Critical: c.critical, Message: msg, LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Message = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = res
			switch {
			case res.Healthy:
			case c.critical:
				report.Status = StatusDown
			case report.Status == StatusOK:
				report.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.Run(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.log.Warn(r.Context(), "health response write failed", "error", err)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.Run(r.Context())
	if report.Status == StatusDown {
		for name, c := range report.Checks {
			if !c.Healthy {
				s.log.Debug(r.Context(), "readiness check failed", "check", name, "message", c.Message)
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	_, _ = w.Write([]byte("ready"))
}

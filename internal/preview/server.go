// Package preview serves the latest build over HTTP: the generated CSS,
// the resolved token map and the validation report.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/validate"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// Builder runs a build on demand.
type Builder interface {
	Build(ctx context.Context) (*build.Result, error)
}

// Server wraps the HTTP listener and the last published build.
type Server struct {
	settings Settings
	builder  Builder
	logger   *zap.Logger
	clock    func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time

	last      *build.Result
	lastErr   error
	lastBuilt time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithBuilder enables POST /rebuild.
func WithBuilder(b Builder) Option {
	return func(s *Server) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a preview server using the provided settings.
func NewServer(settings Settings, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		logger:   zap.NewNop(),
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler returns the route table. It is exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tokens.json", s.handleTokens)
	mux.HandleFunc("/report", s.handleReport)
	mux.HandleFunc("/rebuild", s.handleRebuild)
	if s.settings.OutputDir != "" {
		mux.Handle("/css/", http.FileServer(http.Dir(s.settings.OutputDir)))
	}
	return mux
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("preview: server is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("preview: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("preview: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview: serve error", zap.Error(err))
		}
	}()
	s.logger.Info("preview: listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then drains it.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	server := s.server
	if s.listener == nil || server == nil {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusDraining
	// In-flight rebuilds call Publish, which takes the lock.
	s.mu.Unlock()

	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}
	if err := server.Shutdown(deadline); err != nil {
		return err
	}
	s.mu.Lock()
	if s.server == server {
		s.listener = nil
		s.server = nil
	}
	s.mu.Unlock()
	return nil
}

// Publish records the outcome of a build so the endpoints serve it. A
// rejected build still updates the report.
func (s *Server) Publish(result *build.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.lastBuilt = s.clock()
	if result == nil {
		return
	}
	if result.Manifest == nil && s.last != nil {
		// Keep serving the previous token map until a build succeeds.
		result = &build.Result{
			Layers:   result.Layers,
			Report:   result.Report,
			Duration: result.Duration,
			Manifest: s.last.Manifest,
		}
	}
	s.last = result
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

type healthResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	LastBuild     *time.Time `json:"last_build,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

type buildResponse struct {
	Status   string           `json:"status"`
	Summary  string           `json:"summary"`
	Files    int              `json:"files"`
	Tokens   int              `json:"tokens"`
	Duration string           `json:"duration"`
	Report   *validate.Report `json:"report,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.mu.RLock()
	resp := healthResponse{Status: string(s.status)}
	if !s.startTime.IsZero() {
		resp.UptimeSeconds = int64(s.clock().Sub(s.startTime).Seconds())
	}
	if !s.lastBuilt.IsZero() {
		built := s.lastBuilt
		resp.LastBuild = &built
	}
	if s.lastErr != nil {
		resp.LastError = s.lastErr.Error()
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil || last.Manifest == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no successful build yet"})
		return
	}
	writeJSON(w, http.StatusOK, last.Manifest)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil || last.Report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no build yet"})
		return
	}
	writeJSON(w, http.StatusOK, last.Report)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if s.builder == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rebuild not available"})
		return
	}
	result, err := s.builder.Build(r.Context())
	s.Publish(result, err)
	switch {
	case errors.Is(err, build.ErrValidationFailed):
		resp := summarize("rejected", result)
		resp.Report = result.Report
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case err != nil:
		s.logger.Error("preview: rebuild failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, summarize("built", result))
	}
}

func summarize(status string, result *build.Result) buildResponse {
	resp := buildResponse{Status: status}
	if result == nil {
		return resp
	}
	resp.Files = len(result.FilesWritten)
	resp.Tokens = result.TokensEmitted
	resp.Duration = result.Duration.String()
	if result.Report != nil {
		resp.Summary = result.Report.Summary()
	}
	return resp
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	allowed := methods[0]
	for _, m := range methods[1:] {
		allowed += ", " + m
	}
	w.Header().Set("Allow", allowed)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

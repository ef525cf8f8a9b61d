package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"truthx/internal/analyzer"
	"truthx/internal/audit"
	"truthx/internal/config"
	"truthx/internal/deps"
	"truthx/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// History is the read side of the analysis log.
type History interface {
	List(ctx context.Context, limit int) ([]audit.Entry, error)
	Get(ctx context.Context, id string) (audit.Entry, error)
}

// Server serves the HTTP API.
type Server struct {
	cfg        *config.Config
	analyzer   *analyzer.Analyzer
	history    History
	logger     *slog.Logger
	structured func() bool

	lock     *flock.Flock
	server   *http.Server
	listener net.Listener
	stopOnce sync.Once
	done     chan struct{}
}

// Option customizes a Server.
type Option func(*Server)

// WithHistory enables the history endpoints.
func WithHistory(history History) Option {
	return func(s *Server) { s.history = history }
}

// WithProbeCheck overrides how /health decides whether ffprobe is available.
func WithProbeCheck(fn func() bool) Option {
	return func(s *Server) {
		if fn != nil {
			s.structured = fn
		}
	}
}

// New builds a server for cfg around an analyzer.
func New(cfg *config.Config, a *analyzer.Analyzer, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil || a == nil {
		return nil, errors.New("server requires config and analyzer")
	}
	s := &Server{
		cfg:      cfg,
		analyzer: a,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		lock:     flock.New(cfg.LockPath()),
		done:     make(chan struct{}),
	}
	s.structured = func() bool {
		_, ok := deps.Resolve(cfg.Probe.FFprobeBinary)
		return ok
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	mux.HandleFunc("GET /api/analyses/{id}", s.handleGetAnalysis)

	var handler http.Handler = mux
	handler = authMiddleware(s.cfg.Server.APIToken, handler)
	handler = corsMiddleware(s.cfg.Server.AllowedOrigins, handler)
	handler = accessLogMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	handler = recoverMiddleware(s.logger, handler)
	return handler
}

// Start acquires the instance lock, binds the listener, and serves in the
// background until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another truthx server is already running (lock %s)", s.cfg.LockPath())
	}

	bind := strings.TrimSpace(s.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "server_failed", logging.Error(err))
		}
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.cfg.Server.APIToken != ""),
	)
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests and releases the instance lock.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.listener == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("api server shutdown incomplete", logging.Error(err))
		}
		<-s.done
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release server lock", logging.Error(err))
		}
		s.logger.Info("api server stopped")
	})
}

// Done is closed once the server stops serving.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Package gateway exposes the correlator and bridge builder over HTTP for
// the external turn-management and prioritization collaborators. The
// analysis core stays pure; all I/O lives here.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mfaure/ctxweave/internal/bridge"
	"github.com/mfaure/ctxweave/internal/correlate"
)

// Server is the HTTP gateway around the analysis engine.
type Server struct {
	config     Config
	logger     *slog.Logger
	correlator *correlate.Correlator
	builder    *bridge.Builder
	metrics    *Metrics
	tracer     trace.Tracer

	server    *http.Server
	startedAt time.Time
}

// New creates a Server. The correlator and builder must already be
// configured; the gateway never mutates them.
func New(cfg Config, logger *slog.Logger, correlator *correlate.Correlator, builder *bridge.Builder) *Server {
	cfg.defaults()
	return &Server{
		config:     cfg,
		logger:     logger,
		correlator: correlator,
		builder:    builder,
		metrics:    NewMetrics(),
		tracer:     otel.Tracer("github.com/mfaure/ctxweave/internal/gateway"),
	}
}

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth())
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/correlate", s.handleCorrelate())
		r.Post("/bridge", s.handleBridge())
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured timeout.
func (s *Server) Run(ctx context.Context) error {
	s.startedAt = time.Now()

	s.server = &http.Server{
		Addr:         s.config.Bind,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	s.logger.Info("gateway listening", "bind", s.config.Bind)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.New("gateway: shutdown failed: " + err.Error())
	}
	s.logger.Info("gateway stopped")
	return nil
}

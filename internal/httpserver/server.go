package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/multierr"

	"github.com/ofcrse/site/internal/config"
	"github.com/ofcrse/site/internal/httpserver/deps"
	"github.com/ofcrse/site/internal/httpserver/hostrouter"
	"github.com/ofcrse/site/internal/httpserver/mw"
	"github.com/ofcrse/site/internal/httpserver/routes"
	"github.com/ofcrse/site/internal/logger"
	"github.com/ofcrse/site/internal/metrics"
)

// Server wraps the public HTTP server, the optional metrics listener and their dependencies.
type Server struct {
	http    *http.Server
	metrics *http.Server
	logger  logger.Logger
	started time.Time
}

// NewHandler builds the full request stack: global middlewares in front of the host router.
func NewHandler(cfg *config.Config, d deps.Deps) (http.Handler, error) {
	router, err := hostrouter.New(hostrouter.Config{
		HealthCheckHost: cfg.HealthCheckHost,
		ShortlinkHost:   cfg.ShortlinkHost,
		MusicHost:       cfg.MusicHost,
		RedirectHosts:   cfg.RedirectHosts,
		GuardedDomains:  cfg.GuardedDomains,
	}, routes.All(d), d.Logger)
	if err != nil {
		return nil, err
	}

	return chi.Chain(
		middleware.RequestID, // X-Request-ID on each request
		middleware.Recoverer, // never crash the process on panic
		mw.Log(d.Logger),     // structured access logs
	).Handler(router), nil
}

// New builds the HTTP server (router, middlewares, route registration).
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) (*Server, error) {
	h, err := NewHandler(cfg, d)
	if err != nil {
		return nil, err
	}

	s := &Server{
		http: &http.Server{
			Addr:              cfg.ListenPort,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.ProxyTimeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:  loggerClient,
		started: d.StartTime,
	}

	if cfg.MetricsAddr != "" {
		s.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mw.AllowOnlyCIDRS(cfg.MetricsAllowedCIDRS, "", loggerClient)(metrics.SetupHandler()),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return s, nil
}

// Start runs the HTTP servers (blocks until error or shutdown).
func (s *Server) Start() error {
	errCh := make(chan error, 2)

	if s.metrics != nil {
		go func() {
			s.logger.Infof("metrics server listening on %s", s.metrics.Addr)
			errCh <- ignoreClosed(s.metrics.ListenAndServe())
		}()
	}

	go func() {
		s.logger.Infof("HTTP server listening on %s", s.http.Addr)
		errCh <- ignoreClosed(s.http.ListenAndServe())
	}()

	return <-errCh
}

// Stop gracefully shuts down the servers with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...",
		logger.Duration("uptime", time.Since(s.started)))

	err := s.http.Shutdown(ctx)
	if s.metrics != nil {
		err = multierr.Append(err, s.metrics.Shutdown(ctx))
	}
	return err
}

// http.ErrServerClosed is expected on graceful shutdown.
func ignoreClosed(err error) error {
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/heptiolabs/healthcheck"

	"github.com/tio-dev/tio/internal/config"
	tioerrors "github.com/tio-dev/tio/internal/errors"
	"github.com/tio-dev/tio/internal/livereload"
	"github.com/tio-dev/tio/internal/metrics"
)

// Options configures a Server.
type Options struct {
	// Logger receives request and lifecycle logs. Default: slog.Default().
	Logger *slog.Logger

	// Metrics is exposed on /__tio/metrics. May be nil.
	Metrics *metrics.Metrics

	// API handles requests under the API prefix. Default: 404.
	API http.Handler

	// Ready reports readiness for /__tio/ready. Default: always ready.
	Ready func() error

	// ShutdownTimeout bounds graceful shutdown. Default: 5s.
	ShutdownTimeout time.Duration
}

// Server is the static SPA server.
type Server struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	dev     bool
	health  healthcheck.Handler
	handler http.Handler
}

// New creates a server for the project.
func New(cfg *config.Config, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.API == nil {
		opts.API = http.NotFoundHandler()
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		cfg:    cfg,
		opts:   opts,
		logger: opts.Logger,
		dev:    cfg.Mode == config.ModeDev,
	}
	s.health = s.newHealth()
	s.handler = s.routes()
	return s
}

func (s *Server) newHealth() healthcheck.Handler {
	var h healthcheck.Handler
	if reg := s.opts.Metrics.Registry(); reg != nil {
		h = healthcheck.NewMetricsHandler(reg, "tio")
	} else {
		h = healthcheck.NewHandler()
	}
	h.AddLivenessCheck("process", func() error { return nil })
	h.AddReadinessCheck("bundle", func() error {
		if s.opts.Ready == nil {
			return nil
		}
		return s.opts.Ready()
	})
	return h
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.dev {
		r.Use(middleware.NoCache)
	}

	if prefix := s.cfg.APIPrefix; prefix != "" && prefix != "/" {
		r.Mount(prefix, s.opts.API)
	}

	r.Get("/__tio/metrics", s.opts.Metrics.Handler().ServeHTTP)
	r.Get("/__tio/live", s.health.LiveEndpoint)
	r.Get("/__tio/ready", s.health.ReadyEndpoint)

	if s.dev {
		r.Get(s.cfg.LiveReload.ScriptPath, livereload.ScriptHandler(livereload.ScriptOptionsFromConfig(s.cfg)).ServeHTTP)
	}

	r.NotFound(s.serveStatic)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe binds the configured address and serves until ctx is
// done. A bind failure is returned as E120.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return tioerrors.New("E120").WithDetail(s.cfg.Address()).Wrap(err)
	}

	if s.cfg.HTTPS.Enabled {
		go s.serveRedirect(ctx)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}()

	s.logger.Info("server listening", "url", s.cfg.URL())

	var err error
	if s.cfg.HTTPS.Enabled {
		err = srv.ServeTLS(ln, s.cfg.HTTPS.CertFile, s.cfg.HTTPS.KeyFile)
	} else {
		err = srv.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}

func (s *Server) serveRedirect(ctx context.Context) {
	addr := s.cfg.RedirectAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("https redirect listener failed", "addr", addr, "error", err)
		return
	}

	srv := &http.Server{
		Handler:           RedirectHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("https redirect listener stopped", "error", err)
	}
}

// RedirectHandler answers every request with a permanent redirect to the
// same host on port 443.
func RedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if host == "" {
			http.Error(w, "missing host", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+host+":443"+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

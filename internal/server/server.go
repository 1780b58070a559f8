package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/session"
)

// Config holds server configuration
type Config struct {
	Addr string
	// ReleaseDir is served for every path outside /api, /ws and /health.
	// Empty disables static file serving.
	ReleaseDir      string
	Log             *zerolog.Logger
	Sessions        *session.Store
	AllowedOrigins  []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	// SweepSchedule is a cron spec for expiring idle sessions.
	SweepSchedule string
	// MaxResultBits limits websocket sessions and the default store.
	MaxResultBits uint64
}

// Server previews a release directory and evaluates expressions for remote
// clients.
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	sessions   *session.Store
	releaseDir string
	origins    []string
	timeout    time.Duration
	shutdown   time.Duration
	schedule   string
	maxBits    uint64

	// closing is canceled when shutdown starts so hijacked websocket
	// connections stop too.
	closing context.Context
	cancel  context.CancelFunc
}

func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = constants.DefaultServerAddr
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewStore(constants.DefaultSessionIdleTimeout, cfg.MaxResultBits)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = constants.DefaultShutdownTimeout
	}
	if cfg.SweepSchedule == "" {
		cfg.SweepSchedule = constants.DefaultSweepSchedule
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	log := zerolog.Nop()
	if cfg.Log != nil {
		log = *cfg.Log
	}

	closing, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:     chi.NewRouter(),
		log:        log.With().Str("component", "server").Logger(),
		sessions:   cfg.Sessions,
		releaseDir: cfg.ReleaseDir,
		origins:    cfg.AllowedOrigins,
		timeout:    cfg.RequestTimeout,
		shutdown:   cfg.ShutdownTimeout,
		schedule:   cfg.SweepSchedule,
		maxBits:    cfg.MaxResultBits,
		closing:    closing,
		cancel:     cancel,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return closing },
	}
	s.server.RegisterOnShutdown(cancel)

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	// Websocket connections outlive any request timeout.
	s.router.Get("/ws", s.handleWebsocket)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Post("/eval", s.handleEval)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleResetSession)
			})
		})

		if s.releaseDir != "" {
			r.Handle("/*", newStaticHandler(s.releaseDir))
		}
	})
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully. Idle sessions are swept in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return s.sweep(gctx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	defer s.cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) sweep(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if n := s.sessions.Sweep(); n > 0 {
			s.log.Debug().Int("dropped", n).Msg("Expired idle sessions")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hirelocal/trust-server/pkg/metrics"
)

const defaultCacheTTL = 10 * time.Minute

// Deps carries the collaborators the HTTP layer serves.
type Deps struct {
	Trust     TrustAPI
	Ratings   RatingDirectory
	Jobs      JobDirectory
	Providers ProviderDirectory
	Cache     Cacher
	Metrics   *metrics.Registry
	DB        *sql.DB
}

type Options struct {
	port     int
	logger   *zap.Logger
	cacheTTL time.Duration
}

type Option func(*Options)

func WithPort(port int) Option {
	return func(o *Options) { o.port = port }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) { o.cacheTTL = ttl }
}

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	deps     Deps
	logger   *zap.Logger
	router   chi.Router
	httpSrv  *http.Server
	lis      net.Listener
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// New constructs the HTTP server with base middleware and routes, bound to
// its listener so that Start cannot fail on a busy port.
func New(deps Deps, opts ...Option) (*Server, error) {
	if deps.Trust == nil {
		return nil, errors.New("trust service is required")
	}
	if deps.Metrics == nil {
		return nil, errors.New("metrics registry is required")
	}

	options := &Options{
		port:     8080,
		logger:   zap.NewNop(),
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(options)
	}
	// Port 0 binds an ephemeral port, which tests rely on.
	if options.port < 0 || options.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 0 and 65535", options.port)
	}
	if options.cacheTTL <= 0 {
		options.cacheTTL = defaultCacheTTL
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", options.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", options.port, err)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		deps:     deps,
		logger:   logger.Named("http-server"),
		lis:      lis,
		cacheTTL: options.cacheTTL,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	s.router = r
	s.registerRoutes()

	s.httpSrv = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	s.router.Route("/providers", func(r chi.Router) {
		r.Post("/", s.handleCreateProvider)
		r.Get("/", s.handleListProviders)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProvider)
			r.Get("/stats", s.handleProviderStats)
			r.Post("/trust-score/recompute", s.handleRecomputeTrustScore)
		})
	})

	s.router.Route("/jobs", func(r chi.Router) {
		r.Post("/", s.handleCreateJob)
		r.Get("/", s.handleListJobs)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetJob)
			r.Post("/status", s.handleUpdateJobStatus)
		})
	})

	s.router.Route("/ratings", func(r chi.Router) {
		r.Post("/", s.handleSubmitRating)
		r.Get("/", s.handleListRatings)
		r.Get("/eligibility", s.handleEligibility)
	})
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the server's listening address.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Start serves in a goroutine and returns immediately.
func (s *Server) Start() {
	s.logger.Info("http server starting", zap.String("addr", s.lis.Addr().String()))

	go func() {
		if err := s.httpSrv.Serve(s.lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpSrv.Shutdown(ctx)
}

// Close releases the listener when the server was never started.
func (s *Server) Close() error {
	return s.lis.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx); err != nil {
			s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

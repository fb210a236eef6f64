package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"smartbudget/internal/aggregate"
	"smartbudget/internal/anomaly"
	"smartbudget/internal/cache"
	"smartbudget/internal/core"
	"smartbudget/internal/ledger"
	"smartbudget/internal/log"
	"smartbudget/internal/middleware/ratelimit"
	"smartbudget/internal/middleware/security"
	"smartbudget/internal/middleware/trace"
	"smartbudget/internal/services"
)

// Analyzer is the pipeline surface the handlers depend on.
type Analyzer interface {
	Options() services.Options
	Prepare(ctx context.Context, t ledger.Table) (*services.Prepared, error)
	Report(ctx context.Context, t ledger.Table) (*services.Report, error)
	DetectAnomalies(ctx context.Context, txns []core.Transaction, contamination float64) ([]core.DailyRecord, *anomaly.Detector, error)
	BasicSavingsTips(p *aggregate.Pivot, topK int) []string
	AdvancedSavingsTips(p *aggregate.Pivot) []string
}

// ServerOptions tunes the HTTP surface.
type ServerOptions struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config

	// CacheSize bounds the cached results per kind; zero disables caching.
	CacheSize int
	CacheTTL  time.Duration

	// Ready reports whether downstream sources are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		MaxUploadBytes: 10 << 20,
		RequestTimeout: 60 * time.Second,
		RateLimit:      ratelimit.DefaultConfig(),
		CacheSize:      32,
		CacheTTL:       10 * time.Minute,
	}
}

// Server serves the analysis API.
type Server struct {
	http.Server
	analyzer Analyzer
	opts     ServerOptions
	logger   *log.Logger
	started  time.Time

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	reports  *cache.LRU[*services.Report]
	prepared *cache.LRU[*services.Prepared]
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, analyzer Analyzer, opts ServerOptions, logger *log.Logger) *Server {
	d := DefaultServerOptions()
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = d.MaxUploadBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = d.RequestTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = d.CacheTTL
	}
	if logger == nil {
		logger = log.Discard()
	}

	detector := security.NewDetector()
	s := &Server{
		analyzer:    analyzer,
		opts:        opts,
		logger:      logger.WithComponent(log.ComponentHTTP),
		started:     time.Now(),
		detector:    detector,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		tracer:      trace.NewMiddleware(logger, detector.ExtractClientIP),
		caches:      cache.NewManager(logger.WithComponent(log.ComponentHTTP)),
	}
	if opts.CacheSize > 0 {
		s.reports = cache.NewLRU[*services.Report](opts.CacheSize, opts.CacheTTL)
		s.prepared = cache.NewLRU[*services.Prepared](opts.CacheSize, opts.CacheTTL)
		s.caches.Register(s.reports)
		s.caches.Register(s.prepared)
		s.caches.Start(opts.CacheTTL)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/schema", s.handleSchema)

	rateLimited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)
	limited := func(h http.HandlerFunc) http.Handler {
		return rateLimited(s.requireAnalyzer(h))
	}
	mux.Handle("POST /api/analyze", limited(s.handleAnalyze))
	mux.Handle("POST /api/anomalies", limited(s.handleAnomalies))
	mux.Handle("POST /api/tips", limited(s.handleTips))
	mux.Handle("POST /api/export/{file}", limited(s.handleExport))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.withSuspiciousCheck(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// withSuspiciousCheck rejects requests that look like probes.
func (s *Server) withSuspiciousCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := s.detector.Inspect(r); reason != "" {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path,
				"reason", reason)
			ErrorResponse(http.StatusForbidden, ErrorBody{Error: "forbidden", RequestID: trace.GetRequestID(r.Context())}).Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, ErrorBody{
		Error:     "rate limit exceeded, please try again later",
		RequestID: trace.GetRequestID(r.Context()),
	}).Write(w)
}

// analysisContext bounds one analysis by the configured timeout.
func (s *Server) analysisContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Package http exposes the conversation, insights and ingestion services as a
// JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dompet/internal/conversation"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/observability"
)

const defaultRequestTimeout = 10 * time.Second

// Conversation is the orchestrator surface used by the handlers.
type Conversation interface {
	HandleMessage(ctx context.Context, userID string, msg conversation.Message) (conversation.Response, error)
	GetMemory(userID string) core.UserMemory
	UpdateMemory(userID string, u conversation.MemoryUpdate) core.UserMemory
}

// Insights serves the read-only aggregations.
type Insights interface {
	CashflowSummary(ctx context.Context, userID string, start, end *core.Date) (core.CashflowSummary, error)
	ExpenseByCategory(ctx context.Context, userID string, start, end *core.Date) ([]core.CategoryAmount, error)
	Recommendations(ctx context.Context, userID string) ([]string, error)
}

// Ingester writes and lists ledger transactions.
type Ingester interface {
	Ingest(ctx context.Context, txs []core.Transaction) (int, error)
	List(ctx context.Context, userID string) ([]core.Transaction, error)
}

// Deps bundles everything the server routes to. Metrics, Ready and Logger
// are optional.
type Deps struct {
	Conversation Conversation
	Insights     Insights
	Ingestion    Ingester
	Metrics      *observability.Metrics
	Ready        func(ctx context.Context) error
	Logger       *applog.Logger

	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

type Server struct {
	http.Server

	conv     Conversation
	insights Insights
	ingest   Ingester
	metrics  *observability.Metrics
	ready    func(ctx context.Context) error
	logger   *applog.Logger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	s := &Server{
		conv:     deps.Conversation,
		insights: deps.Insights,
		ingest:   deps.Ingestion,
		metrics:  deps.Metrics,
		ready:    deps.Ready,
		logger:   logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
		}),
		detector: security.NewDetector(),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP, s.observe)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.flagSuspicious)
	r.Use(s.limitPosts)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Post("/conversation/{user}/message", s.handleMessage)
		r.Get("/conversation/{user}/memory", s.handleGetMemory)
		r.Post("/conversation/{user}/memory", s.handleUpdateMemory)

		r.Get("/insights/{user}/cashflow", s.handleCashflow)
		r.Get("/insights/{user}/expense-by-category", s.handleExpenseByCategory)
		r.Get("/insights/{user}/recommendations", s.handleRecommendations)

		r.Post("/ingestion/{user}/transactions", s.handleIngest)
		r.Get("/ingestion/{user}/transactions", s.handleListTransactions)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// observe records the request against its route pattern, so every user ID
// shares one series.
func (s *Server) observe(r *http.Request, status int, _ time.Duration) {
	if s.metrics == nil {
		return
	}
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	s.metrics.ObserveRequest(route, status)
}

// limitPosts applies the per-client rate limit to POST requests only.
func (s *Server) limitPosts(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and the limiter cleanup routine
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

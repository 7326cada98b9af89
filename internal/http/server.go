package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"caisse/internal/cache"
	"caisse/internal/core"
	applog "caisse/internal/log"
	"caisse/internal/middleware/ratelimit"
	"caisse/internal/middleware/security"
	"caisse/internal/middleware/trace"
	"caisse/internal/services"
)

// Server exposes the dashboard API: summaries, previews, drill-downs
// and record commits.
type Server struct {
	http.Server

	snapshots *services.SnapshotService
	records   *services.RecordService

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Summaries and breakdowns are cached per range+payer; any commit
	// purges both caches because a record can land in any range.
	summaryCache   *cache.LRUCache[services.SummaryView]
	breakdownCache *cache.LRUCache[[]core.Group]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, snapshots *services.SnapshotService, records *services.RecordService, logger *applog.Logger, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		snapshots:      snapshots,
		records:        records,
		limiter:        ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:       security.NewDetector(),
		summaryCache:   cache.NewLRUCache[services.SummaryView](100, cacheTTL),
		breakdownCache: cache.NewLRUCache[[]core.Group](200, cacheTTL),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("POST /api/summary/preview", s.handlePreview)
	mux.HandleFunc("GET /api/breakdown/categories", s.handleCategoryBreakdown)
	mux.HandleFunc("GET /api/breakdown/entries", s.handleEntryBreakdown)
	mux.HandleFunc("GET /api/breakdown/remainders", s.handleRemainderBreakdown)

	mux.HandleFunc("POST /api/invoices", s.handleCreateInvoice)
	mux.HandleFunc("POST /api/invoices/{id}/pay", s.handlePayInvoice)
	mux.HandleFunc("POST /api/bank-transactions", s.handleCreateBankTransaction)
	mux.HandleFunc("POST /api/salary-remainders", s.handleCreateSalaryRemainder)
	mux.HandleFunc("POST /api/salary-remainders/{id}/settle", s.handleSettleSalaryRemainder)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP)

	var handler http.Handler = mux
	handler = s.guard(handler)
	handler = headers.Middleware(handler)
	if logger != nil {
		handler = applog.RequestIDMiddleware(func(r *http.Request) string {
			return trace.GetRequestID(r.Context())
		})(handler)
		handler = applog.Middleware(logger)(handler)
	}
	handler = tracer.Middleware(handler)
	s.Server.Handler = handler

	return s
}

// guard rate-limits commits and flags scanner traffic. Suspicious reads
// are logged, not blocked: a false positive on the dashboard is worse
// than a noisy log line.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request detected",
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r),
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		if r.Method == http.MethodPost {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				w.Header().Set("Retry-After", "60")
				writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// invalidateCaches drops every cached view after a commit.
func (s *Server) invalidateCaches() {
	s.summaryCache.Purge()
	s.breakdownCache.Purge()
}

// Shutdown stops the background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

type Ledger interface {
	CreateTransaction(ctx context.Context, ownerID string, in core.NewEntry) (core.Entry, error)
	DeleteTransaction(ctx context.Context, ownerID, entryID string) (core.Entry, error)
	TransferFunds(ctx context.Context, ownerID string, req core.TransferRequest) (core.TransferResult, error)
	ListTransactions(ctx context.Context, ownerID string, f core.EntryFilter) ([]core.Entry, error)
}

type Reports interface {
	GetSummary(ctx context.Context, ownerID string, r core.DateRange) (core.Summary, error)
	GetBalanceHistory(ctx context.Context, ownerID string, p core.Period) ([]core.BalancePoint, error)
}

type Accounts interface {
	CreateAccount(ctx context.Context, ownerID string, in core.NewAccount) (core.Account, error)
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
	GetAccount(ctx context.Context, ownerID, id string) (core.Account, error)
	DeleteAccount(ctx context.Context, ownerID, id string) error
}

type Categories interface {
	CreateCategory(ctx context.Context, ownerID string, in core.NewCategory) (core.Category, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application services behind the API.
type Services struct {
	Ledger     Ledger
	Reports    Reports
	Accounts   Accounts
	Categories Categories
	Health     Pinger
	// Summaries caches GET /transactions/summary. Optional.
	Summaries *cache.Summaries
}

type Options struct {
	Addr               string
	Authenticator      auth.Authenticator
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	svc          Services
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	authn := opts.Authenticator
	if authn == nil {
		authn = auth.Header{}
	}

	s := &Server{
		svc:    svc,
		logger: logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           ratelimit.DefaultConfig().Methods,
		}),
	}

	if svc.Summaries != nil {
		s.cacheManager = cache.NewManager(logger)
		s.cacheManager.Register(svc.Summaries.Cleaner())
		s.cacheManager.StartCleanup(5 * time.Minute)
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /transactions", s.handleListTransactions)
	api.HandleFunc("DELETE /transactions", s.handleDeleteTransaction)
	api.HandleFunc("DELETE /transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /transactions/summary", s.handleSummary)
	api.HandleFunc("GET /transactions/balance-history", s.handleBalanceHistory)
	api.HandleFunc("POST /transactions/transfer", s.handleTransfer)

	api.HandleFunc("POST /accounts", s.handleCreateAccount)
	api.HandleFunc("GET /accounts", s.handleListAccounts)
	api.HandleFunc("GET /accounts/{id}", s.handleGetAccount)
	api.HandleFunc("DELETE /accounts/{id}", s.handleDeleteAccount)

	api.HandleFunc("POST /categories", s.handleCreateCategory)
	api.HandleFunc("GET /categories", s.handleListCategories)
	api.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/", auth.Middleware(authn)(api))

	limited := s.limiter.Middleware(security.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, security.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		MessageResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").Write(w)
	})(root)

	var handler http.Handler = limited
	handler = security.NewDetector(security.ExtractClientIP).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(security.ExtractClientIP).Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background routines and drains the HTTP server. Safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Health.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

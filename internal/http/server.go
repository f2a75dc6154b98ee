package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneta/internal/core"
	applog "moneta/internal/log"
	"moneta/internal/middleware/ratelimit"
	"moneta/internal/middleware/security"
	"moneta/internal/middleware/trace"
	"moneta/internal/services"

	"github.com/shopspring/decimal"
)

// Ledger is the write side used by the handlers.
type Ledger interface {
	EnsurePrimaryWallet(ctx context.Context, userID string) (core.Wallet, error)
	CreateWallet(ctx context.Context, in services.CreateWalletInput) (core.Wallet, error)
	UpdateWallet(ctx context.Context, in services.UpdateWalletInput) (core.Wallet, error)
	DeleteWallet(ctx context.Context, walletID, userID string) error
	ListWallets(ctx context.Context, userID string) ([]core.Wallet, error)
	GetWallet(ctx context.Context, walletID, userID string) (core.Wallet, error)

	CreateTransaction(ctx context.Context, in services.CreateTransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, in services.UpdateTransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID string) error
	TransferBetweenWallets(ctx context.Context, in services.TransferInput) (services.TransferResult, error)
}

// Reports is the read side used by the handlers.
type Reports interface {
	GetFilteredTransactions(ctx context.Context, f core.TransactionFilter) ([]core.TransactionRow, error)
	GetTransactionSummary(ctx context.Context, f core.TransactionFilter) (core.TransactionSummary, error)
	GetMonthlySummary(ctx context.Context, userID string, year, month int, walletID string) (core.MonthlySummary, error)
	GetMonthlyStats(ctx context.Context, userID string, from, to core.Period) (core.MonthlyStats, error)
	RunningBalances(ctx context.Context, userID, walletID string) ([]core.RunningBalance, error)
	Drift(ctx context.Context, userID, walletID string) (decimal.Decimal, error)
}

// Deps wires the server to the ledger. Ready may be nil.
type Deps struct {
	Ledger         Ledger
	Reports        Reports
	Ready          func(ctx context.Context) error
	Logger         *applog.Logger
	RateLimitRPM   int
	TrustedProxies []string
	Now            func() time.Time
}

type Server struct {
	http.Server
	ledger   Ledger
	reports  Reports
	ready    func(ctx context.Context) error
	logger   *applog.Logger
	mutation *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	trace    *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	ips := security.NewIPExtractor()
	for _, cidr := range deps.TrustedProxies {
		if err := ips.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		ledger:   deps.Ledger,
		reports:  deps.Reports,
		ready:    deps.Ready,
		logger:   logger,
		mutation: applog.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitRPM}),
		trace:    trace.NewMiddleware(ips.ClientIP, logger),
		now:      now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/wallets", s.handleListWallets)
	mux.HandleFunc("POST /api/wallets", s.handleCreateWallet)
	mux.HandleFunc("POST /api/wallets/primary", s.handleEnsurePrimaryWallet)
	mux.HandleFunc("GET /api/wallets/{id}", s.handleGetWallet)
	mux.HandleFunc("PATCH /api/wallets/{id}", s.handleUpdateWallet)
	mux.HandleFunc("DELETE /api/wallets/{id}", s.handleDeleteWallet)
	mux.HandleFunc("GET /api/wallets/{id}/running-balances", s.handleRunningBalances)
	mux.HandleFunc("GET /api/wallets/{id}/drift", s.handleDrift)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/summary", s.handleTransactionSummary)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transfers", s.handleTransfer)

	mux.HandleFunc("GET /api/summary/monthly", s.handleMonthlySummary)
	mux.HandleFunc("GET /api/stats", s.handleMonthlyStats)

	rateKey := func(r *http.Request) string {
		if id, err := userID(r); err == nil {
			return "user:" + id
		}
		return "ip:" + ips.ClientIP(r)
	}
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldPath, r.URL.Path, applog.FieldMethod, r.Method)
		writeJSON(w, http.StatusTooManyRequests, envelope{Message: "rate limit exceeded, try again later", Error: "rate_limited"})
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(rateKey, onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.trace.Middleware(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		m := s.trace.GetMetrics()
		s.logger.Info("HTTP server stopping",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited_clients", s.limiter.ActiveClients())
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			writeJSON(w, http.StatusServiceUnavailable, envelope{Message: "not ready", Error: "unavailable"})
			return
		}
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ready"}, "")
}

// requireUser answers 401 and returns false when the caller is unknown.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := userID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{Message: err.Error(), Error: "unauthorized"})
		return "", false
	}
	return id, true
}

// Package http exposes the JSON API: auth, personal expenses, groups, the
// shared ledger and its reports.
package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riyalmind/internal/service"
)

type Server struct {
	http.Server
	auth        *service.AuthService
	expenses    *service.ExpenseService
	ledger      *service.LedgerService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, auth *service.AuthService, expenses *service.ExpenseService, ledger *service.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:        auth,
		expenses:    expenses,
		ledger:      ledger,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /auth/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("POST /auth/login", s.withMiddleware(s.handleLogin))

	mux.HandleFunc("POST /expenses", s.withMiddleware(s.withAuth(s.handleCreateExpense)))
	mux.HandleFunc("GET /expenses", s.withMiddleware(s.withAuth(s.handleListExpenses)))
	mux.HandleFunc("GET /overview", s.withMiddleware(s.withAuth(s.handleMonthOverview)))
	mux.HandleFunc("GET /categories", s.withMiddleware(s.withAuth(s.handleListCategories)))

	mux.HandleFunc("POST /groups", s.withMiddleware(s.withAuth(s.handleCreateGroup)))
	mux.HandleFunc("POST /groups/{id}/members", s.withMiddleware(s.withAuth(s.handleAddMember)))
	mux.HandleFunc("POST /groups/{id}/expenses", s.withMiddleware(s.withAuth(s.handleAddGroupExpense)))
	mux.HandleFunc("GET /groups/{id}/report", s.withMiddleware(s.withAuth(s.handleGroupReport)))
	mux.HandleFunc("POST /groups/{id}/settlements", s.withMiddleware(s.withAuth(s.handleSettleDebt)))

	return s
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

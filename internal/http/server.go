package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"ledgerbook/internal/log"
	"ledgerbook/internal/services"
)

// Options tunes a Server. Zero values take the defaults below.
type Options struct {
	Logger *log.Logger

	// DefaultBudget is the gauge ceiling used when a request names none.
	DefaultBudget int64

	// RateLimitPerMinute caps mutating requests per client; 0 disables it.
	RateLimitPerMinute int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	http.Server
	ledgers       *services.LedgerService
	logger        *log.Logger
	defaultBudget int64
	limiter       *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledgers *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	s := &Server{
		ledgers:       ledgers,
		logger:        opts.Logger.WithComponent(log.ComponentHTTP),
		defaultBudget: opts.DefaultBudget,
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = newRateLimiter(opts.RateLimitPerMinute, time.Now)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(opts.Logger))
	r.Use(log.AccessLog)
	r.Use(securityHeaders)

	r.Get("/healthz", handleHealth)

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/ledgers", s.handleLedgers)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/calendar/days/{date}", s.handleDay)
		r.Get("/budget", s.handleBudget)
		r.Get("/book", s.handleBook)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/ledgers/toggle-all", s.handleToggleAll)
			r.Post("/ledgers/{ledgerID}/toggle", s.handleToggle)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	s.Server = http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Shutdown gracefully shuts down the server and the limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

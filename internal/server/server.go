// Package server exposes blackjack tables over HTTP, with a websocket
// stream that paces the dealer's turn for live clients.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/statistics"
)

// Config wires a Server.
type Config struct {
	Rules         game.Rules
	Clock         quartz.Clock
	Authenticator *auth.Authenticator
	Tables        *Manager
	// Statistics is optional; without it /api/stats is not found.
	Statistics *statistics.Aggregator
}

// Server is the HTTP front end.
type Server struct {
	cfg      Config
	logger   *log.Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

// New builds a server and its routes.
func New(cfg Config, logger *log.Logger) *Server {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/rules", s.handleRules)
	r.Get("/api/advice", s.handleAdvice)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Route("/api/table", func(r chi.Router) {
			r.Get("/", s.handleSnapshot)
			r.Get("/advice", s.handleTableAdvice)
			r.Get("/ws", s.handleStream)
			r.Post("/{action}", s.handleAction)
		})
		r.Get("/api/stats", s.handleStats)
		r.Post("/api/session/reset", s.handleResetProgress)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errNotFound)
	})
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.cfg.Clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", s.cfg.Clock.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.cfg.Authenticator.Authenticate(r)
		if err != nil {
			if errors.Is(err, auth.ErrUnavailable) {
				s.logger.Warn("auth service unavailable", "err", err)
			}
			s.writeError(w, r, err)
			return
		}
		if id.Guest {
			w.Header().Set(auth.GuestHeader, id.UserID)
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

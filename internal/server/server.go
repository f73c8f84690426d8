// Package server is the composition root: it builds the store, services,
// handlers and background workers, mounts the routes, and runs the HTTP
// server until it is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/socialfeed/internal/auth"
	"github.com/sakif/socialfeed/internal/cipher"
	"github.com/sakif/socialfeed/internal/clock"
	"github.com/sakif/socialfeed/internal/config"
	"github.com/sakif/socialfeed/internal/executor"
	"github.com/sakif/socialfeed/internal/feed"
	"github.com/sakif/socialfeed/internal/handler"
	"github.com/sakif/socialfeed/internal/middleware"
	"github.com/sakif/socialfeed/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns every long-lived resource and releases them in Close.
type Server struct {
	router      *chi.Mux
	config      *config.Config
	logger      *slog.Logger
	store       Store
	pool        *executor.Pool
	broadcaster *feed.Broadcaster

	clock     clock.Clock
	passwords *auth.PasswordService

	closeOnce sync.Once
	closeErr  error
}

// Option overrides a dependency New would otherwise build itself.
type Option func(*Server)

// WithStore uses an already opened store. The server takes ownership and
// closes it in Close.
func WithStore(s Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(srv *Server) { srv.clock = c }
}

// WithPasswordService replaces the production bcrypt cost, for tests.
func WithPasswordService(p *auth.PasswordService) Option {
	return func(srv *Server) { srv.passwords = p }
}

// New wires the application. cfg must already be validated.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.passwords == nil {
		s.passwords = auth.NewPasswordService()
	}

	if s.store == nil {
		store, err := OpenStore(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	if err := s.setupRoutes(); err != nil {
		s.store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes builds the dependency graph and mounts the API.
//
//	POST /auth/register            → create account
//	POST /auth/login               → form login, returns bearer token
//	GET  /posts?limit=N            → newest posts
//	POST /posts                    → create post            [auth]
//	POST /posts/{id}/like          → like a post            [auth]
//	POST /comments/{post_id}       → comment on a post      [auth]
//	GET  /comments/{post_id}       → list a post's comments
//	GET  /ws/feed                  → websocket, new_post:<id> frames
//	GET  /healthz                  → store reachability
func (s *Server) setupRoutes() error {
	contentCipher, err := cipher.FromBase64(s.config.EncryptionKey)
	if err != nil {
		return fmt.Errorf("loading encryption key: %w", err)
	}
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL(), s.clock)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	policy := s.config.Policy()

	s.broadcaster = feed.NewBroadcaster(feed.Config{
		SendTimeout: s.config.FeedSendTimeout(),
	}, s.logger)

	s.pool = executor.NewPool(executor.Config{
		Workers:   s.config.BroadcastWorkers,
		QueueSize: s.config.BroadcastQueue,
	}, s.logger)
	s.pool.Start()

	accounts := service.NewAccountService(s.store, tokens, s.passwords, s.clock, s.logger)
	posts := service.NewPostService(s.store, contentCipher, policy, s.pool, s.broadcaster, s.clock, s.logger)
	comments := service.NewCommentService(s.store, s.store, contentCipher, policy, s.clock, s.logger)

	accountHandler := handler.NewAccountHandler(accounts, s.logger)
	postHandler := handler.NewPostHandler(posts, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	feedHandler := handler.NewFeedHandler(s.broadcaster, s.config.OriginPatterns, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	requests, window := s.config.Rate()

	// Order matters: RealIP must run before the rate limiter keys on the
	// client address.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.RateLimit(requests, window))

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
	})

	s.router.Get("/posts", postHandler.HandleList)
	s.router.Get("/comments/{post_id}", commentHandler.HandleList)
	s.router.Get("/ws/feed", feedHandler.HandleFeed)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Post("/posts", postHandler.HandleCreate)
		r.Post("/posts/{id}/like", postHandler.HandleLike)
		r.Post("/comments/{post_id}", commentHandler.HandleCreate)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"no such route"}` + "\n"))
	})

	s.logger.Info("application wired",
		slog.String("encrypt_content", policy.String()),
		slog.Int("rate_limit_requests", requests),
		slog.Duration("rate_limit_window", window),
	)
	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully and releases
// every resource.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.Bool("mongodb", s.config.IsMongo()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Shutdown does not wait for hijacked websocket connections; Close
		// below disconnects those.
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops background work, disconnects feed clients and closes the store.
// Queued broadcast tasks run before the feed is torn down. Safe to call
// more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.pool != nil {
			s.pool.Stop()
		}
		if s.broadcaster != nil {
			s.broadcaster.Close()
		}
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}

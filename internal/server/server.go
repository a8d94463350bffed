// Package server is the composition root: it opens the store, builds the
// services and handlers, and mounts them on a chi router.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → Server.New()
//	  store (sqlite.DB or postgres.DB)
//	    → ArticleService, FlagService, AuthService
//	      → ArticleHandler, FlagHandler, AuthHandler
//
// Handlers never touch the store directly and services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sakif/articles-api/internal/auth"
	"github.com/sakif/articles-api/internal/config"
	"github.com/sakif/articles-api/internal/handler"
	"github.com/sakif/articles-api/internal/middleware"
	"github.com/sakif/articles-api/internal/repository"
	"github.com/sakif/articles-api/internal/repository/postgres"
	sqliteRepo "github.com/sakif/articles-api/internal/repository/sqlite"
	"github.com/sakif/articles-api/internal/service"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Server represents the HTTP server and everything it owns. The store and
// the rate limiter are released by Close, which Start calls on shutdown.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	store   repository.Store
	tokens  *auth.TokenService
	limiter *middleware.RateLimiter
}

// New opens the configured store, bootstraps the admin account when
// ADMIN_EMAIL and ADMIN_PASSWORD are set, and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		tokens:  tokens,
		limiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, metrics),
	}

	sanitizer := service.NewSanitizer()
	articles := service.NewArticleService(store, sanitizer, logger)
	flags := service.NewFlagService(store, sanitizer, logger)
	accounts := service.NewAuthService(store, tokens, auth.NewPasswordService(), logger)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := accounts.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("bootstrapping admin: %w", err)
		}
		if created {
			logger.Info("admin account created", slog.String("email", cfg.AdminEmail))
		}
	}

	s.setupRoutes(metrics,
		handler.NewArticleHandler(articles, logger),
		handler.NewFlagHandler(flags, logger),
		handler.NewAuthHandler(accounts, logger),
	)
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		return sqliteRepo.New(cfg.DBPath)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                        store ping
//	GET    /metrics                        Prometheus exposition
//	POST   /auth/signin                    token for email + password
//	GET    /auth/me                        [auth]
//	POST   /auth/create-user               [auth, admin]
//	GET    /articles                       [auth]
//	POST   /articles                       [auth, limited]
//	GET    /articles/{articleID}           [auth]
//	PATCH  /articles/{articleID}           [auth, limited]
//	DELETE /articles/{articleID}           [auth, limited]
//	POST   /articles/{articleID}/comments  [auth, limited]
//	POST   /articles/{articleID}/flags     [auth, limited]
//	POST   /comments/{commentID}/flags     [auth, limited]
//	GET    /flags                          [auth, admin]
//
// MIDDLEWARE ORDER:
// RequestID runs first so the logger can report it. Recoverer sits inside
// Logger and Instrument so a panic is still logged and counted as a 500.
func (s *Server) setupRoutes(metrics *middleware.Metrics, articles *handler.ArticleHandler, flags *handler.FlagHandler, accounts *handler.AuthHandler) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(metrics.Instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestSize(maxBodyBytes))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.NotFound(handler.NotFound(s.logger))
	r.MethodNotAllowed(handler.MethodNotAllowed(s.logger))

	r.Get("/healthz", handler.Health(s.store, s.logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.With(s.limiter.Middleware).Post("/auth/signin", accounts.HandleSignIn)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))
		r.Use(middleware.TagCaller)

		r.Get("/auth/me", accounts.HandleMe)
		r.Get("/articles", articles.HandleList)
		r.Get("/articles/{articleID}", articles.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware)

			r.Post("/articles", articles.HandleCreate)
			r.Patch("/articles/{articleID}", articles.HandleUpdate)
			r.Delete("/articles/{articleID}", articles.HandleDelete)
			r.Post("/articles/{articleID}/comments", articles.HandleCreateComment)
			r.Post("/articles/{articleID}/flags", flags.HandleFlagArticle)
			r.Post("/comments/{commentID}/flags", flags.HandleFlagComment)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)

			r.Get("/flags", flags.HandleList)
			r.Post("/auth/create-user", accounts.HandleCreateUser)
		})
	})
}

// Router exposes the mux for route documentation and tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// Close stops the rate limiter sweeper and closes the store.
func (s *Server) Close() error {
	s.limiter.Close()
	return s.store.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to ShutdownTimeout and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

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
			slog.Int("port", s.config.Port),
			slog.String("driver", s.config.DBDriver),
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

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

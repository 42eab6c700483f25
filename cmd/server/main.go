// @title           Goal Stories API
// @version         1.0
// @description     Session-based authentication for the goal and story sharing backend.
// @host            localhost:8080
// @schemes         http https
// @BasePath        /api/v1
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name session
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goal-stories/internal/api"
	"goal-stories/internal/auth"
	"goal-stories/internal/config"
	"goal-stories/internal/database"
	"goal-stories/internal/logger"
	"goal-stories/internal/session"
	"goal-stories/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "goal-stories/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.DB.Source == "" {
		return errors.New("db.source is required: users are stored in postgres")
	}

	dbpool, err := pgxpool.New(ctx, cfg.DB.Source)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info().Msg("connected to database")

	schema, err := os.ReadFile(cfg.DB.SchemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	store := database.NewStore(dbpool)
	if err := store.Migrate(ctx, string(schema)); err != nil {
		return err
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		sessions = session.NewRedisStore(client)
	case "memory":
		sessions = session.NewMemoryStore()
	default:
		sessions = database.NewSessionStore(store.Queries)
	}
	log.Info().Str("backend", cfg.Session.Backend).Msg("session store ready")

	transport, err := session.NewTransport(session.TransportOptions{
		CookieName: cfg.Session.CookieName,
		Identifier: cfg.Session.Identifier,
		Keys:       cfg.Session.Keys(),
		MaxAge:     cfg.Session.MaxAge,
		Cookie: session.CookieOptions{
			Domain:   cfg.Session.Domain,
			HttpOnly: true,
			Secure:   cfg.Session.Secure,
			SameSite: cfg.Session.SameSiteMode(),
		},
	})
	if err != nil {
		return err
	}

	metrics := api.NewMetrics(prometheus.DefaultRegisterer)

	verifier := session.NewVerifier(transport, sessions, session.VerifierOptions{
		AutoError:    true,
		StoreTimeout: cfg.Session.StoreTimeout,
		Observer:     metrics,
		Logger:       log.With().Str("component", "session").Logger(),
	})

	wsHub := websocket.NewHub(log)
	go wsHub.Run(ctx)

	authService, err := auth.NewService(sessions, transport, verifier, auth.NewUserCredentials(store), auth.Options{
		TTL:      cfg.Session.TTL(),
		Notifier: database.NewEventJournal(store.Queries, wsHub, log),
		Logger:   log.With().Str("component", "auth").Logger(),
	})
	if err != nil {
		return err
	}

	if deleter, ok := sessions.(session.ExpiredDeleter); ok && cfg.Session.SweepInterval > 0 {
		sweeper := session.NewSweeper(deleter, cfg.Session.SweepInterval, log)
		go sweeper.Run(ctx)
	}

	server := api.NewServer(cfg, api.Deps{
		Users:     store,
		Events:    store,
		Auth:      authService,
		Verifier:  verifier,
		Transport: transport,
		Hub:       wsHub,
		Metrics:   metrics,
		DB:        dbpool,
		Logger:    log,
	})

	r := chi.NewRouter()
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.HTTP.SwaggerURL),
	))
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", server.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

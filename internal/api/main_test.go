package api

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"goal-stories/internal/auth"
	"goal-stories/internal/config"
	"goal-stories/internal/database"
	"goal-stories/internal/models"
	"goal-stories/internal/session"
	"goal-stories/internal/websocket"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testStore *database.Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:14-alpine",
		postgres.WithDatabase("test_api_db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		log.Fatalf("Could not start postgres: %s", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("Could not get connection string: %s", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	schema, err := os.ReadFile("../../db/init.sql")
	if err != nil {
		log.Fatalf("Could not read schema file: %s", err)
	}

	testStore = database.NewStore(pool)
	if err := testStore.Migrate(ctx, string(schema)); err != nil {
		log.Fatalf("Could not apply schema: %s", err)
	}

	code := m.Run()

	pool.Close()
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("Could not terminate postgres: %s", err)
	}
	os.Exit(code)
}

type testEnv struct {
	server    *Server
	registry  *prometheus.Registry
	transport *session.Transport
	sessions  session.Store
	hub       *websocket.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Session: config.SessionConfig{
			SecretKey:  "api_test_secret",
			TTLMinutes: 5,
			CookieName: "session",
			Identifier: "general_verifier",
			Backend:    "postgres",
			MaxAge:     14 * 24 * time.Hour,
			SameSite:   "lax",
		},
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	transport, err := session.NewTransport(session.TransportOptions{
		CookieName: cfg.Session.CookieName,
		Identifier: cfg.Session.Identifier,
		Keys:       cfg.Session.Keys(),
		MaxAge:     cfg.Session.MaxAge,
		Cookie: session.CookieOptions{
			HttpOnly: true,
			SameSite: cfg.Session.SameSiteMode(),
		},
	})
	require.NoError(t, err)

	sessions := database.NewSessionStore(testStore.Queries)
	verifier := session.NewVerifier(transport, sessions, session.VerifierOptions{
		AutoError: true,
		Observer:  metrics,
		Logger:    zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(zerolog.Nop())
	go hub.Run(ctx)

	svc, err := auth.NewService(sessions, transport, verifier, auth.NewUserCredentials(testStore), auth.Options{
		TTL:      cfg.Session.TTL(),
		Notifier: database.NewEventJournal(testStore.Queries, hub, zerolog.Nop()),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	server := NewServer(cfg, Deps{
		Users:     testStore,
		Events:    testStore,
		Auth:      svc,
		Verifier:  verifier,
		Transport: transport,
		Hub:       hub,
		Metrics:   metrics,
		DB:        testStore.GetPool(),
		Logger:    zerolog.Nop(),
	})

	return &testEnv{
		server:    server,
		registry:  registry,
		transport: transport,
		sessions:  sessions,
		hub:       hub,
	}
}

func uniqueNickname() string {
	return "u" + strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
}

func createTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user, err := testStore.CreateUser(context.Background(), uniqueNickname(), hash)
	require.NoError(t, err)
	return user
}

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"goal-stories/internal/auth"
	"goal-stories/internal/config"
	"goal-stories/internal/models"
	"goal-stories/internal/session"
	"goal-stories/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// UserRepository is the part of the database layer the handlers need.
type UserRepository interface {
	CreateUser(ctx context.Context, nickname, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	NicknameExists(ctx context.Context, nickname string) (bool, error)
}

// Pinger is checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Users     UserRepository
	Events    EventReader
	Auth      *auth.Service
	Verifier  *session.Verifier
	Transport *session.Transport
	Hub       *websocket.Hub
	Metrics   *Metrics
	DB        Pinger
	Logger    zerolog.Logger
}

type Server struct {
	config    *config.Config
	users     UserRepository
	events    EventReader
	auth      *auth.Service
	verifier  *session.Verifier
	transport *session.Transport
	wsHub     *websocket.Hub
	metrics   *Metrics
	db        Pinger
	validate  *validator.Validate
	log       zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		config:    cfg,
		users:     deps.Users,
		events:    deps.Events,
		auth:      deps.Auth,
		verifier:  deps.Verifier,
		transport: deps.Transport,
		wsHub:     deps.Hub,
		metrics:   deps.Metrics,
		db:        deps.DB,
		validate:  validator.New(),
		log:       deps.Logger,
	}
}

// Handler returns the router serving /health, /ws and the /api/v1 routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/health", s.HealthCheckHandler)
	r.Get("/ws", s.ServeWsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.LoginHandler)
		r.Post("/auth/logout", s.LogoutHandler)
		r.Post("/users", s.RegisterHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware)
			r.Get("/me", s.GetCurrentUserHandler)
			r.Post("/users/validate_nickname", s.ValidateNicknameHandler)
			r.Get("/events", s.GetEventsHandler)
		})
	})

	return r
}

type MessageResponse struct {
	Message string `json:"message" example:"Logged out"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// @Summary      Health check
// @Description  Reports whether the server and its database are reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("health check: database unreachable")
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

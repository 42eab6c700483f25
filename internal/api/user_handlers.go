package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"goal-stories/internal/auth"
	"goal-stories/internal/database"

	"github.com/rs/zerolog/hlog"
)

type CurrentUserResponse struct {
	ID               int64     `json:"id" example:"1"`
	Nickname         string    `json:"nickname" example:"alice"`
	DisplayName      string    `json:"display_name" example:"alice"`
	CreatedAt        time.Time `json:"created_at"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

// @Summary      Get current user info
// @Description  Returns the user the session cookie belongs to.
// @Tags         users
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  CurrentUserResponse
// @Failure      401  {string}  string "Invalid session"
// @Failure      404  {string}  string "User not found"
// @Failure      500  {string}  string "Internal server error"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess == nil {
		http.Error(w, "No session provided", http.StatusUnauthorized)
		return
	}

	user, err := s.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", sess.UserID).Msg("failed to load user")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, CurrentUserResponse{
		ID:               user.ID,
		Nickname:         user.Nickname,
		DisplayName:      sess.DisplayName,
		CreatedAt:        user.CreatedAt,
		SessionExpiresAt: sess.ExpiresAt,
	})
}

type RegisterRequest struct {
	Nickname string `json:"nickname" validate:"required,alphanum,max=20" example:"alice"`
	Password string `json:"password" validate:"required,min=8,max=72" example:"password123"`
}

// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        registerRequest  body      RegisterRequest  true  "New user"
// @Success      201              {object}  models.User
// @Failure      400              {string}  string "Invalid request body"
// @Failure      409              {string}  string "Nickname is already taken"
// @Failure      500              {string}  string "Internal server error"
// @Router       /users [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "Nickname must be 1-20 letters or digits and password 8-72 characters", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to hash password")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Nickname, hash)
	if err != nil {
		if errors.Is(err, database.ErrNicknameTaken) {
			http.Error(w, "Nickname is already taken", http.StatusConflict)
			return
		}
		hlog.FromRequest(r).Error().Err(err).Str("nickname", req.Nickname).Msg("failed to create user")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	hlog.FromRequest(r).Info().Int64("user_id", user.ID).Str("nickname", user.Nickname).Msg("user registered")
	writeJSON(w, http.StatusCreated, user)
}

type ValidateNicknameRequest struct {
	Nickname string `json:"nickname" validate:"required,max=20" example:"alice"`
}

type ValidateNicknameResponse struct {
	Nickname  string `json:"nickname" example:"alice"`
	Available bool   `json:"available" example:"true"`
}

// @Summary      Check whether a nickname is free
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        validateNicknameRequest  body      ValidateNicknameRequest  true  "Nickname to check"
// @Success      200                      {object}  ValidateNicknameResponse
// @Failure      400                      {string}  string "Invalid request body"
// @Failure      401                      {string}  string "Invalid session"
// @Failure      409                      {object}  ValidateNicknameResponse
// @Failure      500                      {string}  string "Internal server error"
// @Router       /users/validate_nickname [post]
func (s *Server) ValidateNicknameHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateNicknameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "Nickname must be 1-20 characters", http.StatusBadRequest)
		return
	}

	exists, err := s.users.NicknameExists(r.Context(), req.Nickname)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to check nickname")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if exists {
		status = http.StatusConflict
	}
	writeJSON(w, status, ValidateNicknameResponse{Nickname: req.Nickname, Available: !exists})
}

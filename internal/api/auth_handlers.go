package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"goal-stories/internal/auth"
	"goal-stories/internal/session"

	"github.com/rs/zerolog/hlog"
)

type LoginRequest = auth.Credentials

type LoginResponse struct {
	Message     string    `json:"message" example:"Logged in"`
	DisplayName string    `json:"display_name" example:"alice"`
	ExpiresAt   time.Time `json:"expires_at" example:"2024-01-01T12:05:00Z"`
}

// @Summary      Logs a user in
// @Description  Checks the credentials (HTTP Basic or JSON body), creates a session and sets the signed session cookie. Requests that already carry a valid session cookie are refused.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body      LoginRequest  false  "Login credentials, when HTTP Basic is not used"
// @Success      200           {object}  LoginResponse
// @Failure      400           {string}  string "Invalid request body"
// @Failure      401           {string}  string "Invalid nickname or password"
// @Failure      409           {string}  string "Already logged in"
// @Failure      500           {string}  string "Internal server error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if nickname, password, ok := r.BasicAuth(); ok {
		req = LoginRequest{Nickname: nickname, Password: password}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		http.Error(w, "Nickname and password are required", http.StatusBadRequest)
		return
	}

	sess, _, err := s.auth.Login(w, r, req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAlreadyAuthenticated):
			http.Error(w, "Already logged in", http.StatusConflict)
		case errors.Is(err, auth.ErrInvalidCredentials):
			w.Header().Set("WWW-Authenticate", `Basic realm="goal-stories"`)
			http.Error(w, "Invalid nickname or password", http.StatusUnauthorized)
		default:
			hlog.FromRequest(r).Error().Err(err).Str("nickname", req.Nickname).Msg("login failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Message:     "Logged in",
		DisplayName: sess.DisplayName,
		ExpiresAt:   sess.ExpiresAt,
	})
}

// @Summary      Logs the current session out
// @Description  Deletes the session named by the cookie and clears the cookie. A cookie whose session is already gone still logs out successfully.
// @Tags         auth
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  MessageResponse
// @Failure      401  {string}  string "No session provided"
// @Failure      500  {string}  string "Internal server error"
// @Router       /auth/logout [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.transport.Extract(r)
	if err != nil {
		if errors.Is(err, session.ErrNoCookie) {
			http.Error(w, "No session provided", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Invalid session", http.StatusUnauthorized)
		return
	}

	if err := s.auth.Logout(r.Context(), w, id); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("session_id", id.String()).Msg("logout failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
}

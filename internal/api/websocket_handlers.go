package api

import (
	"errors"
	"net/http"

	"goal-stories/internal/session"
	"goal-stories/internal/websocket"

	"github.com/rs/zerolog/hlog"
)

// @Summary      Subscribe to session events
// @Description  Upgrades to a WebSocket that receives session_created and session_revoked events for the session's user.
// @Tags         events
// @Security     SessionCookie
// @Success      101
// @Failure      401  {string}  string "Invalid session"
// @Router       /ws [get]
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	sess, err := s.verifier.Verify(r)
	if err != nil && !errors.Is(err, session.ErrNoCookie) && !session.IsAuthError(err) {
		hlog.FromRequest(r).Error().Err(err).Msg("ws session lookup failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Error(w, "Invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := websocket.NewClient(s.wsHub, conn, sess.UserID)
	s.wsHub.Register <- client

	go client.ReadPump()
	go client.WritePump()
}

package api

import (
	"context"
	"net/http"
	"strconv"

	"goal-stories/internal/database"

	"github.com/rs/zerolog/hlog"
)

// EventReader reads the event journal.
type EventReader interface {
	GetEventsSince(ctx context.Context, userID int64, sinceID int64) ([]database.Event, error)
}

// @Summary      Get new events
// @Description  Returns session events journaled for the current user after the given event ID. Clients use it to catch up on events missed while the WebSocket was closed.
// @Tags         events
// @Produce      json
// @Security     SessionCookie
// @Param        since  query     int  false  "The ID of the last event received. Omit or use 0 to get all events."
// @Success      200    {array}   database.Event
// @Failure      400    {string}  string "Invalid 'since' parameter"
// @Failure      401    {string}  string "Invalid session"
// @Failure      500    {string}  string "Internal server error"
// @Router       /events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess == nil {
		http.Error(w, "No session provided", http.StatusUnauthorized)
		return
	}

	var sinceID int64
	if since := r.URL.Query().Get("since"); since != "" {
		var err error
		sinceID, err = strconv.ParseInt(since, 10, 64)
		if err != nil || sinceID < 0 {
			http.Error(w, "Invalid 'since' parameter", http.StatusBadRequest)
			return
		}
	}

	events, err := s.events.GetEventsSince(r.Context(), sess.UserID, sinceID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("user_id", sess.UserID).Msg("failed to read events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

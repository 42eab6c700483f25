package session

import (
	"context"
	"errors"
	"net/http"

	"goal-stories/internal/models"

	"github.com/rs/zerolog/hlog"
)

type contextKey struct{}

func NewContext(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by Middleware, or nil.
func FromContext(ctx context.Context) *models.Session {
	if s, ok := ctx.Value(contextKey{}).(*models.Session); ok {
		return s
	}
	return nil
}

// Middleware verifies the session of every request. Rejections are answered
// with one opaque 401 body whatever the internal reason was.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := v.Verify(r)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoCookie):
				http.Error(w, "No session provided", http.StatusUnauthorized)
			case IsAuthError(err):
				http.Error(w, "Invalid session", http.StatusUnauthorized)
			default:
				hlog.FromRequest(r).Error().Err(err).Msg("session lookup failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		if s != nil {
			r = r.WithContext(NewContext(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

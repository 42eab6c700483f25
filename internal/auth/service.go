package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"goal-stories/internal/models"
	"goal-stories/internal/session"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrAlreadyAuthenticated is returned by Login when the request already
// carries a valid session cookie. The check only looks at the cookie of the
// current request; the same user may hold sessions on other devices.
var ErrAlreadyAuthenticated = errors.New("already logged in")

const (
	EventSessionCreated = "session_created"
	EventSessionRevoked = "session_revoked"
)

// Notifier receives session lifecycle events for a user.
type Notifier interface {
	PublishEvent(userID int64, eventType string, payload interface{})
}

type Credentials struct {
	Nickname string `json:"nickname" validate:"required" example:"alice"`
	Password string `json:"password" validate:"required" example:"password123"`
}

type Options struct {
	TTL      time.Duration
	Notifier Notifier
	Logger   zerolog.Logger
	Now      func() time.Time
}

type Service struct {
	store     session.Store
	transport *session.Transport
	verifier  *session.Verifier
	creds     CredentialVerifier
	ttl       time.Duration
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(store session.Store, transport *session.Transport, verifier *session.Verifier, creds CredentialVerifier, opts Options) (*Service, error) {
	if opts.TTL <= 0 {
		return nil, models.ErrNonPositiveTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:     store,
		transport: transport,
		verifier:  verifier,
		creds:     creds,
		ttl:       opts.TTL,
		notifier:  opts.Notifier,
		log:       opts.Logger,
		now:       now,
	}, nil
}

// Login checks creds, stores a new session record and writes its cookie onto
// w. It returns the record and the signed cookie value.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, creds Credentials) (*models.Session, string, error) {
	ctx := r.Context()

	current, err := s.verifier.Current(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check existing session: %w", err)
	}
	if current != nil {
		return nil, "", ErrAlreadyAuthenticated
	}

	user, err := s.creds.VerifyCredentials(ctx, creds.Nickname, creds.Password)
	if err != nil {
		return nil, "", err
	}

	rec, err := models.NewSession(user.ID, user.Nickname, s.now(), s.ttl)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	value, err := s.transport.Issue(w, rec.ID)
	if err != nil {
		if delErr := s.store.Delete(ctx, rec.ID); delErr != nil {
			s.log.Error().Err(delErr).Object("session", rec).Msg("failed to remove session after cookie error")
		}
		return nil, "", err
	}

	s.log.Info().Object("session", rec).Msg("user logged in")
	s.publish(rec.UserID, EventSessionCreated, rec)

	return rec, value, nil
}

// Logout deletes the session and clears the cookie. Logging out an id that
// no longer exists is not an error.
func (s *Service) Logout(ctx context.Context, w http.ResponseWriter, id uuid.UUID) error {
	rec, err := s.store.Read(ctx, id)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("failed to read session: %w", err)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	s.transport.Clear(w)

	if rec != nil {
		s.log.Info().Object("session", rec).Msg("user logged out")
		s.publish(rec.UserID, EventSessionRevoked, rec)
	}
	return nil
}

func (s *Service) publish(userID int64, eventType string, rec *models.Session) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishEvent(userID, eventType, map[string]interface{}{
		"display_name": rec.DisplayName,
		"expires_at":   rec.ExpiresAt,
	})
}

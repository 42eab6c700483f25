package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidUserID    = errors.New("session: user_id must be positive")
	ErrEmptyDisplayName = errors.New("session: display_name must be non-empty")
	ErrNonPositiveTTL   = errors.New("session: ttl must be positive")
)

// Session is the server-held proof that a user authenticated. DisplayName is
// a snapshot of the nickname taken at login and is not kept in sync with the
// users table.
type Session struct {
	ID          uuid.UUID `json:"id" example:"a1b2c3d4-e5f6-7890-1234-567890abcdef"`
	UserID      int64     `json:"user_id" example:"42"`
	DisplayName string    `json:"display_name" example:"alice"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewSession builds a record with a fresh random id that expires ttl after now.
func NewSession(userID int64, displayName string, now time.Time, ttl time.Duration) (*Session, error) {
	s := &Session{
		ID:          uuid.New(),
		UserID:      userID,
		DisplayName: displayName,
		ExpiresAt:   now.Add(ttl),
	}
	if ttl <= 0 {
		return nil, ErrNonPositiveTTL
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Validate() error {
	if s.UserID <= 0 {
		return ErrInvalidUserID
	}
	if s.DisplayName == "" {
		return ErrEmptyDisplayName
	}
	return nil
}

// ExpiredAt reports whether the record is no longer valid at t.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

func (s *Session) MarshalZerologObject(e *zerolog.Event) {
	e.Str("session_id", s.ID.String()).
		Int64("user_id", s.UserID).
		Time("expires_at", s.ExpiresAt)
}

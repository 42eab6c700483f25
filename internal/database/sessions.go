package database

import (
	"context"
	"errors"
	"time"

	"goal-stories/internal/models"
	"goal-stories/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func (q *Queries) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, display_name, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.db.Exec(ctx, query, s.ID, s.UserID, s.DisplayName, s.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "sessions_pkey" {
			return session.ErrConflict
		}
		return err
	}
	return nil
}

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `
		SELECT id, user_id, display_name, expires_at
		FROM sessions
		WHERE id = $1
	`
	var s models.Session
	err := q.db.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.DisplayName,
		&s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := q.db.Exec(ctx, query, id)
	return err
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at <= $1`
	tag, err := q.db.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SessionStore adapts the sessions table to session.Store.
type SessionStore struct {
	q *Queries
}

func NewSessionStore(q *Queries) *SessionStore {
	return &SessionStore{q: q}
}

func (s *SessionStore) Create(ctx context.Context, rec *models.Session) error {
	return s.q.CreateSession(ctx, rec)
}

func (s *SessionStore) Read(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	rec, err := s.q.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.q.DeleteSession(ctx, id)
}

func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.q.DeleteExpiredSessions(ctx, now)
}

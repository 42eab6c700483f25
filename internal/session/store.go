package session

import (
	"context"
	"time"

	"goal-stories/internal/models"

	"github.com/google/uuid"
)

// Store persists session records keyed by id. Every method is a single
// point operation; implementations must not leave a partial record behind.
type Store interface {
	// Create fails with ErrConflict when the id is already taken.
	Create(ctx context.Context, s *models.Session) error
	// Read returns ErrNotFound for an absent id.
	Read(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// Delete is a no-op for an absent id.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExpiredDeleter is implemented by stores that can drop every record that
// expired before now in one call.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

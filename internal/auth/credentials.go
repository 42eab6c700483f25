package auth

import (
	"context"
	"errors"

	"goal-stories/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid nickname or password")

// CredentialVerifier checks a nickname/password pair and returns the user it
// belongs to, or ErrInvalidCredentials.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, nickname, password string) (*models.User, error)
}

type UserFinder interface {
	GetUserByNickname(ctx context.Context, nickname string) (*models.User, error)
}

// UserCredentials verifies passwords against bcrypt hashes in the users
// table.
type UserCredentials struct {
	users UserFinder
}

func NewUserCredentials(users UserFinder) *UserCredentials {
	return &UserCredentials{users: users}
}

func (c *UserCredentials) VerifyCredentials(ctx context.Context, nickname, password string) (*models.User, error) {
	user, err := c.users.GetUserByNickname(ctx, nickname)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

package database

import (
	"context"
	"errors"

	"goal-stories/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNicknameTaken = errors.New("nickname is already taken")

func (q *Queries) CreateUser(ctx context.Context, nickname, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (nickname, password_hash)
		VALUES ($1, $2)
		RETURNING id, nickname, password_hash, created_at
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, nickname, passwordHash).Scan(
		&user.ID,
		&user.Nickname,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrNicknameTaken
		}
		return nil, err
	}
	return &user, nil
}

func (q *Queries) GetUserByNickname(ctx context.Context, nickname string) (*models.User, error) {
	query := `
		SELECT id, nickname, password_hash, created_at
		FROM users
		WHERE nickname = $1
	`
	var user models.User

	err := q.db.QueryRow(ctx, query, nickname).Scan(
		&user.ID,
		&user.Nickname,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, nickname, password_hash, created_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := q.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Nickname, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (q *Queries) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1)`
	var exists bool
	err := q.db.QueryRow(ctx, query, nickname).Scan(&exists)
	return exists, err
}

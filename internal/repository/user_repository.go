package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dislink/connect-api/internal/models"
)

// UserRepository maintains the local mirror of auth provider accounts.
type UserRepository interface {
	UpsertUser(ctx context.Context, user models.User) (models.User, error)
	GetUserByID(ctx context.Context, userID string) (models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (u *userRepository) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO dislink.users (id, email, email_verified)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			updated_at = now()
		RETURNING id, email, email_verified, created_at, updated_at`

	var out models.User
	err := u.db.QueryRowContext(ctx, query, user.ID, strings.ToLower(strings.TrimSpace(user.Email)), user.EmailVerified).Scan(
		&out.ID,
		&out.Email,
		&out.EmailVerified,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	return out, nil
}

func (u *userRepository) GetUserByID(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, email, email_verified, created_at, updated_at
		FROM dislink.users
		WHERE id = $1`

	var user models.User
	err := u.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.Email,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type tokenRepo struct {
	db DB
}

func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepo{db: db}
}

// GetOrCreate returns the stored token of a user, minting one on first use.
func (r *tokenRepo) GetOrCreate(ctx context.Context, userID int64, mint TokenMinter) (string, error) {
	if userID <= 0 {
		return "", fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	var key string
	err := r.db.QueryRow(ctx, `SELECT key FROM auth_tokens WHERE user_id = $1`, userID).Scan(&key)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	key, err = mint(userID)
	if err != nil {
		return "", fmt.Errorf("mint token: %w", err)
	}

	// a concurrent login may have won; the stored key is returned either way
	insert := `
		INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING key
	`
	if err := r.db.QueryRow(ctx, insert, key, userID).Scan(&key); err != nil {
		return "", fmt.Errorf("failed to store token: %w", mapPgError(err))
	}

	return key, nil
}

func (r *tokenRepo) Lookup(ctx context.Context, key string) (*models.UserRole, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	sql := `
		SELECT u.id, COALESCE(p.type, ''), u.is_staff
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE t.key = $1
	`
	var ur models.UserRole
	err := r.db.QueryRow(ctx, sql, key).Scan(&ur.UserID, &ur.Role, &ur.IsStaff)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	return &ur, nil
}

func (r *tokenRepo) Delete(ctx context.Context, userID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete token of user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type userRepo struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

// CreateAccount writes the user, its profile and its token in one transaction.
func (r *userRepo) CreateAccount(ctx context.Context, acct *models.Account, mint TokenMinter) error {
	if acct == nil {
		return fmt.Errorf("%w: account cannot be nil", ErrInvalidInput)
	}
	if acct.User.Username == "" || acct.User.PasswordHash == "" {
		return fmt.Errorf("%w: username and password hash required", ErrInvalidInput)
	}
	if !acct.Profile.Type.Valid() {
		return fmt.Errorf("%w: unknown profile type %q", ErrInvalidInput, acct.Profile.Type)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertUser := `
		INSERT INTO users (username, email, password_hash, is_staff)
		VALUES ($1, $2, $3, $4)
		RETURNING id, date_joined
	`
	err = tx.QueryRow(ctx, insertUser,
		acct.User.Username,
		acct.User.Email,
		acct.User.PasswordHash,
		acct.User.IsStaff,
	).Scan(&acct.User.ID, &acct.User.DateJoined)
	if err != nil {
		return fmt.Errorf("create user: %w", mapPgError(err))
	}

	insertProfile := `
		INSERT INTO profiles (user_id, type, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		RETURNING uploaded_at
	`
	err = tx.QueryRow(ctx, insertProfile,
		acct.User.ID,
		acct.Profile.Type,
		acct.Profile.FirstName,
		acct.Profile.LastName,
	).Scan(&acct.Profile.UploadedAt)
	if err != nil {
		return fmt.Errorf("create profile: %w", mapPgError(err))
	}
	acct.Profile.UserID = acct.User.ID
	acct.Profile.Username = acct.User.Username
	acct.Profile.Email = acct.User.Email

	key, err := mint(acct.User.ID)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2)`, key, acct.User.ID); err != nil {
		return fmt.Errorf("create token: %w", mapPgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit account: %w", mapPgError(err))
	}

	acct.Token = key
	return nil
}

const selectUser = `
	SELECT id, username, email, password_hash, is_staff, date_joined
	FROM users
`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.IsStaff,
		&u.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id %d: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrInvalidInput)
	}

	u, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return u, nil
}

func (r *userRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// EmailTaken compares case-insensitively and ignores exceptUserID, so a user
// may keep their own address on update.
func (r *userRepo) EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1 AND id <> $2)`,
		strings.ToLower(email), exceptUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

func (r *userRepo) GetRole(ctx context.Context, id int64) (*models.UserRole, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `
		SELECT u.id, COALESCE(p.type, ''), u.is_staff
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE u.id = $1
	`
	var ur models.UserRole
	err := r.db.QueryRow(ctx, sql, id).Scan(&ur.UserID, &ur.Role, &ur.IsStaff)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role of user %d: %w", id, err)
	}
	return &ur, nil
}

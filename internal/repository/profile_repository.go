package repository

import (
	"context"
	"errors"
	"fmt"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type profileRepo struct {
	db DB
}

func NewProfileRepository(db DB) ProfileRepository {
	return &profileRepo{db: db}
}

const selectProfile = `
	SELECT
		p.user_id,
		u.username,
		u.email,
		p.type,
		p.first_name,
		p.last_name,
		p.bio,
		p.location,
		p.tel,
		p.description,
		p.working_hours,
		p.file,
		p.uploaded_at
	FROM profiles p
	JOIN users u ON u.id = p.user_id
`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.UserID,
		&p.Username,
		&p.Email,
		&p.Type,
		&p.FirstName,
		&p.LastName,
		&p.Bio,
		&p.Location,
		&p.Tel,
		&p.Description,
		&p.WorkingHours,
		&p.File,
		&p.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	p, err := scanProfile(r.db.QueryRow(ctx, selectProfile+` WHERE p.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile %d: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown profile type %q", ErrInvalidInput, role)
	}

	rows, err := r.db.Query(ctx, selectProfile+` WHERE p.type = $1 ORDER BY p.user_id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s profiles: %w", role, err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return profiles, nil
}

// Update applies the set fields of patch; email lives on the users row and
// is changed in the same transaction.
func (r *profileRepo) Update(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql := `
		UPDATE profiles
		SET
			first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			bio = COALESCE($3, bio),
			location = COALESCE($4, location),
			tel = COALESCE($5, tel),
			description = COALESCE($6, description),
			working_hours = COALESCE($7, working_hours),
			file = COALESCE($8, file),
			uploaded_at = CASE WHEN $8::text IS NULL THEN uploaded_at ELSE NOW() END
		WHERE user_id = $9
	`
	result, err := tx.Exec(ctx, sql,
		patch.FirstName,
		patch.LastName,
		patch.Bio,
		patch.Location,
		patch.Tel,
		patch.Description,
		patch.WorkingHours,
		patch.File,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile %d: %w", userID, mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if patch.Email != nil {
		if _, err := tx.Exec(ctx, `UPDATE users SET email = $1 WHERE id = $2`, *patch.Email, userID); err != nil {
			return nil, fmt.Errorf("failed to update email of user %d: %w", userID, mapPgError(err))
		}
	}

	p, err := scanProfile(tx.QueryRow(ctx, selectProfile+` WHERE p.user_id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload profile %d: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit profile: %w", mapPgError(err))
	}

	return p, nil
}

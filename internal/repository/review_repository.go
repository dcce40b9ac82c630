package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type reviewRepo struct {
	db DB
}

func NewReviewRepository(db DB) ReviewRepository {
	return &reviewRepo{db: db}
}

const reviewColumns = `id, business_user_id, reviewer_id, rating, description, created_at, updated_at`

func scanReview(row pgx.Row) (*models.Review, error) {
	var rv models.Review
	err := row.Scan(
		&rv.ID,
		&rv.BusinessUserID,
		&rv.ReviewerID,
		&rv.Rating,
		&rv.Description,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *reviewRepo) Create(ctx context.Context, rv *models.Review) error {
	if rv == nil {
		return fmt.Errorf("%w: review cannot be nil", ErrInvalidInput)
	}
	if rv.Rating < 1 || rv.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	insert := `
		INSERT INTO reviews (business_user_id, reviewer_id, rating, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, insert,
		rv.BusinessUserID,
		rv.ReviewerID,
		rv.Rating,
		rv.Description,
	).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", mapPgError(err))
	}

	return nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	rv, err := scanReview(r.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review by id %d: %w", id, err)
	}
	return rv, nil
}

var reviewOrderings = map[string]string{
	ReviewUpdatedAsc:  "updated_at ASC, id ASC",
	ReviewUpdatedDesc: "updated_at DESC, id DESC",
	ReviewRatingAsc:   "rating ASC, id ASC",
	ReviewRatingDesc:  "rating DESC, id DESC",
}

// ValidReviewOrdering reports whether s names a supported ordering.
func ValidReviewOrdering(s string) bool {
	_, ok := reviewOrderings[s]
	return ok
}

func buildReviewListSQL(f ReviewFilter) (string, []any) {
	args := []any{f.ParticipantID}
	conds := []string{"(reviewer_id = $1 OR business_user_id = $1)"}

	if f.BusinessUserID != nil {
		args = append(args, *f.BusinessUserID)
		conds = append(conds, "business_user_id = $"+strconv.Itoa(len(args)))
	}
	if f.ReviewerID != nil {
		args = append(args, *f.ReviewerID)
		conds = append(conds, "reviewer_id = $"+strconv.Itoa(len(args)))
	}

	order, ok := reviewOrderings[f.Ordering]
	if !ok {
		order = reviewOrderings[ReviewUpdatedDesc]
	}

	sql := `SELECT ` + reviewColumns + ` FROM reviews WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY ` + order
	return sql, args
}

func (r *reviewRepo) List(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	if f.ParticipantID <= 0 {
		return nil, fmt.Errorf("%w: participant ID cannot be empty", ErrInvalidInput)
	}

	sql, args := buildReviewListSQL(f)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return reviews, nil
}

func (r *reviewRepo) Exists(ctx context.Context, businessUserID, reviewerID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE business_user_id = $1 AND reviewer_id = $2)`,
		businessUserID, reviewerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return exists, nil
}

func (r *reviewRepo) Update(ctx context.Context, id int64, patch models.ReviewPatch) (*models.Review, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if patch.Rating != nil && (*patch.Rating < 1 || *patch.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}

	sql := `
		UPDATE reviews
		SET
			rating = COALESCE($1, rating),
			description = COALESCE($2, description),
			updated_at = NOW()
		WHERE id = $3
		RETURNING ` + reviewColumns

	rv, err := scanReview(r.db.QueryRow(ctx, sql, patch.Rating, patch.Description, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update review %d: %w", id, mapPgError(err))
	}
	return rv, nil
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

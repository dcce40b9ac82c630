package repository

import (
	"context"
	"testing"
	"time"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReviewListSQL(t *testing.T) {
	business := int64(2)
	sql, args := buildReviewListSQL(ReviewFilter{ParticipantID: 9, BusinessUserID: &business, Ordering: ReviewRatingDesc})

	assert.Contains(t, sql, "(reviewer_id = $1 OR business_user_id = $1) AND business_user_id = $2")
	assert.Contains(t, sql, "ORDER BY rating DESC, id DESC")
	assert.Equal(t, []any{int64(9), int64(2)}, args)

	sql, _ = buildReviewListSQL(ReviewFilter{ParticipantID: 9})
	assert.Contains(t, sql, "ORDER BY updated_at DESC, id DESC")
}

func TestCreateReviewDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(int64(2), int64(9), 4, "great").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_business_user_reviewer_key"})

	err := repo.Create(context.Background(), &models.Review{BusinessUserID: 2, ReviewerID: 9, Rating: 4, Description: "great"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateReviewRatingBounds(t *testing.T) {
	repo := NewReviewRepository(newMock(t))
	for _, rating := range []int{0, 6} {
		err := repo.Create(context.Background(), &models.Review{BusinessUserID: 2, ReviewerID: 9, Rating: rating})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestUpdateReview(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)
	now := time.Now()
	rating := 5

	mock.ExpectQuery("UPDATE reviews").WithArgs(&rating, pgxmock.AnyArg(), int64(1)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "business_user_id", "reviewer_id", "rating", "description", "created_at", "updated_at"}).
			AddRow(int64(1), int64(2), int64(9), 5, "great", now, now),
	)

	rv, err := repo.Update(context.Background(), 1, models.ReviewPatch{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 5, rv.Rating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsReview(t *testing.T) {
	mock := newMock(t)
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").WithArgs(int64(2), int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.Exists(context.Background(), 2, 9)
	require.NoError(t, err)
	assert.False(t, exists)
}

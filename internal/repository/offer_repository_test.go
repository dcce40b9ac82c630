package repository

import (
	"context"
	"testing"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOfferListSQLNoFilters(t *testing.T) {
	countSQL, pageSQL, countArgs, pageArgs := buildOfferListSQL(OfferFilter{Limit: 6, Offset: 0})

	assert.NotContains(t, countSQL, "WHERE o.")
	assert.Empty(t, countArgs)
	assert.Equal(t, []any{6, 0}, pageArgs)
	assert.Contains(t, pageSQL, "ORDER BY o.updated_at DESC, o.id DESC")
	assert.Contains(t, pageSQL, "LIMIT $1 OFFSET $2")
}

func TestBuildOfferListSQLAllFilters(t *testing.T) {
	creator := int64(3)
	minPrice := decimal.NewFromInt(50)
	maxDays := 7

	_, pageSQL, countArgs, pageArgs := buildOfferListSQL(OfferFilter{
		CreatorID:       &creator,
		MinPrice:        &minPrice,
		MaxDeliveryTime: &maxDays,
		Search:          " 50%_off ",
		Ordering:        OrderPriceAsc,
		Limit:           10,
		Offset:          20,
	})

	assert.Contains(t, pageSQL, "o.user_id = $1")
	assert.Contains(t, pageSQL, "a.min_price >= $2")
	assert.Contains(t, pageSQL, "a.min_delivery_time <= $3")
	assert.Contains(t, pageSQL, "(o.title ILIKE $4 OR o.description ILIKE $4)")
	assert.Contains(t, pageSQL, "ORDER BY a.min_price ASC NULLS LAST, o.id ASC")
	assert.Contains(t, pageSQL, "LIMIT $5 OFFSET $6")

	require.Len(t, countArgs, 4)
	assert.Equal(t, `%50\%\_off%`, countArgs[3])
	assert.Equal(t, 10, pageArgs[4])
	assert.Equal(t, 20, pageArgs[5])
}

func TestBuildOfferListSQLUnknownOrderingFallsBack(t *testing.T) {
	_, pageSQL, _, _ := buildOfferListSQL(OfferFilter{Ordering: "title; DROP TABLE offers", Limit: 1})
	assert.Contains(t, pageSQL, "ORDER BY o.updated_at DESC, o.id DESC")
	assert.NotContains(t, pageSQL, "DROP")
}

func TestValidOfferOrdering(t *testing.T) {
	for _, o := range []string{"updated_at", "-updated_at", "min_price", "-min_price"} {
		assert.True(t, ValidOfferOrdering(o), o)
	}
	assert.False(t, ValidOfferOrdering("title"))
}

func TestListRejectsEmptyWindow(t *testing.T) {
	repo := NewOfferRepository(newMock(t))
	_, _, err := repo.List(context.Background(), OfferFilter{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteOfferNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOfferRepository(mock)

	mock.ExpectExec("DELETE FROM offers").WithArgs(int64(8)).WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOwnerID(t *testing.T) {
	mock := newMock(t)
	repo := NewOfferRepository(mock)

	mock.ExpectQuery("SELECT user_id FROM offers").WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
	mock.ExpectQuery("SELECT user_id FROM offers").WithArgs(int64(2)).WillReturnError(pgx.ErrNoRows)

	owner, err := repo.GetOwnerID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), owner)

	_, err = repo.GetOwnerID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateOfferMissingRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewOfferRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE offers").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 5, offerPatchTitle("x"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func offerPatchTitle(title string) models.OfferPatch {
	return models.OfferPatch{Title: &title}
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func newAccount() *models.Account {
	return &models.Account{
		User:    models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"},
		Profile: models.Profile{Type: models.RoleCustomer},
	}
}

func TestCreateAccountCommitsUserProfileAndToken(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date_joined"}).AddRow(int64(7), now))
	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs(int64(7), models.RoleCustomer, "", "").
		WillReturnRows(pgxmock.NewRows([]string{"uploaded_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO auth_tokens").
		WithArgs("tok-7", int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	acct := newAccount()
	err := repo.CreateAccount(context.Background(), acct, func(id int64) (string, error) {
		assert.Equal(t, int64(7), id)
		return "tok-7", nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), acct.User.ID)
	assert.Equal(t, int64(7), acct.Profile.UserID)
	assert.Equal(t, "tok-7", acct.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicateEmailRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", false).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	err := repo.CreateAccount(context.Background(), newAccount(), func(int64) (string, error) {
		t.Fatal("token must not be minted")
		return "", nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "email", conflict.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountTokenFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", false).
		WillReturnRows(pgxmock.NewRows([]string{"id", "date_joined"}).AddRow(int64(3), now))
	mock.ExpectQuery("INSERT INTO profiles").
		WithArgs(int64(3), models.RoleCustomer, "", "").
		WillReturnRows(pgxmock.NewRows([]string{"uploaded_at"}).AddRow(now))
	mock.ExpectRollback()

	err := repo.CreateAccount(context.Background(), newAccount(), func(int64) (string, error) {
		return "", errors.New("signer down")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountRejectsUnknownType(t *testing.T) {
	repo := NewUserRepository(newMock(t))
	acct := newAccount()
	acct.Profile.Type = "admin"

	err := repo.CreateAccount(context.Background(), acct, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetByUsernameNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users").WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsername(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("FROM users").WithArgs("bob").WillReturnRows(
		pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "is_staff", "date_joined"}).
			AddRow(int64(2), "bob", "bob@example.com", "hash", true, now),
	)

	u, err := repo.GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), u.ID)
	assert.True(t, u.IsStaff)
}

func TestEmailTakenIsCaseInsensitive(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = $1 AND id <> $2)")).
		WithArgs("alice@example.com", int64(0)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.EmailTaken(context.Background(), "Alice@Example.com", 0)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestGetRole(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("LEFT JOIN profiles").WithArgs(int64(4)).WillReturnRows(
		pgxmock.NewRows([]string{"id", "type", "is_staff"}).AddRow(int64(4), models.RoleBusiness, false),
	)

	ur, err := repo.GetRole(context.Background(), int64(4))
	require.NoError(t, err)
	assert.Equal(t, models.RoleBusiness, ur.Role)
}

func TestMapPgError(t *testing.T) {
	assert.ErrorIs(t, mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "something_else"}), ErrDuplicate)
	assert.ErrorIs(t, mapPgError(&pgconn.PgError{Code: "23503"}), ErrNotFound)
	assert.ErrorIs(t, mapPgError(&pgconn.PgError{Code: "23514"}), ErrInvalidInput)

	plain := errors.New("boom")
	assert.Equal(t, plain, mapPgError(plain))

	var conflict *ConflictError
	require.True(t, errors.As(mapPgError(&pgconn.PgError{Code: "23505", ConstraintName: "offer_details_offer_type_key"}), &conflict))
	assert.Equal(t, "offer_type", conflict.Field)
}

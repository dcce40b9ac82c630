package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate resource")
	ErrInvalidInput = errors.New("invalid input data")
)

// ConflictError reports a unique constraint hit on a single client field.
// It matches ErrDuplicate under errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return e.Field + " already exists"
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicate
}

var constraintFields = map[string]string{
	"users_username_key":                 "username",
	"users_email_key":                    "email",
	"auth_tokens_user_id_key":            "token",
	"offer_details_offer_type_key":       "offer_type",
	"reviews_business_user_reviewer_key": "business_user",
}

// mapPgError translates constraint violations into repository sentinels and
// returns any other error unchanged.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505":
		if field, ok := constraintFields[pgErr.ConstraintName]; ok {
			return &ConflictError{Field: field}
		}
		return ErrDuplicate
	case "23503":
		return ErrNotFound
	case "23514", "22P02", "22003":
		return ErrInvalidInput
	}

	return err
}

package service

import (
	"errors"
	"fmt"

	"coderr-service/internal/access"
	"coderr-service/internal/repository"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindUnauthenticated
	KindPermission
	KindNotFound
	KindMethodNotAllowed
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "authentication"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "internal"
	}
}

// Error is the typed failure every service operation returns. Fields holds
// per-field messages for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func ValidationFailed(message string, fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func FieldError(field, message string) *Error {
	return ValidationFailed(message, map[string][]string{field: {message}})
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func AuthFailed(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

func MethodNotAllowed(message string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// IsKind reports whether err is a service error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// fromPolicy converts an access decision into a service error.
func fromPolicy(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, access.ErrUnauthenticated) {
		return &Error{Kind: KindUnauthenticated, Message: "Authentication credentials were not provided."}
	}
	var denied *access.DeniedError
	if errors.As(err, &denied) {
		return PermissionDenied(denied.Message)
	}
	return Internal(err)
}

// fromRepo converts repository failures; notFound is the message used for
// ErrNotFound.
func fromRepo(err error, notFound string) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &conflict):
		return FieldError(conflict.Field, duplicateMessage(conflict.Field))
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(notFound)
	case errors.Is(err, repository.ErrDuplicate):
		return ValidationFailed("Resource already exists.", nil)
	case errors.Is(err, repository.ErrInvalidInput):
		return &Error{Kind: KindValidation, Message: "Invalid input.", Err: err}
	}
	return Internal(err)
}

func duplicateMessage(field string) string {
	switch field {
	case "username":
		return "A user with that username already exists."
	case "email":
		return "A user with that email already exists."
	case "offer_type":
		return "Each offer_type may appear only once per offer."
	case "business_user":
		return "You have already reviewed this business."
	}
	return field + " already exists."
}

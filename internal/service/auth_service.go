package service

import (
	"context"
	"errors"
	"strings"

	"coderr-service/internal/access"
	"coderr-service/internal/auth"
	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/rs/zerolog"
)

const invalidCredentials = "Invalid credentials."

type RegisterInput struct {
	Username         string      `json:"username" validate:"required,max=150,username"`
	Email            string      `json:"email" validate:"required,email,max=254"`
	Password         string      `json:"password" validate:"required,max=128"`
	RepeatedPassword string      `json:"repeated_password" validate:"required"`
	Type             models.Role `json:"type" validate:"required,oneof=business customer"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by registration and login.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserID   int64  `json:"user_id"`
}

type AuthService struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	minter *auth.Tokens
	logger zerolog.Logger
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, minter *auth.Tokens, logger zerolog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, minter: minter, logger: logger}
}

// Register creates the user, its profile and its token in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	err := validateStruct(in)
	extra := map[string][]string{}
	if in.Password != "" && in.Password != in.RepeatedPassword {
		extra["password"] = []string{"Passwords do not match."}
	}

	if in.Username != "" {
		taken, terr := s.users.UsernameTaken(ctx, in.Username)
		if terr != nil {
			return nil, Internal(terr)
		}
		if taken {
			extra["username"] = []string{duplicateMessage("username")}
		}
	}
	if in.Email != "" {
		taken, terr := s.users.EmailTaken(ctx, in.Email, 0)
		if terr != nil {
			return nil, Internal(terr)
		}
		if taken {
			extra["email"] = []string{duplicateMessage("email")}
		}
	}
	if err = mergeFields(err, extra); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, Internal(err)
	}

	acct := &models.Account{
		User: models.User{
			Username:     in.Username,
			Email:        in.Email,
			PasswordHash: hash,
		},
		Profile: models.Profile{Type: in.Type},
	}
	if err := s.users.CreateAccount(ctx, acct, s.minter.Mint); err != nil {
		// a concurrent registration can still win the unique constraint
		return nil, fromRepo(err, "User not found.")
	}

	metrics.RecordRegistration()
	s.logger.Info().
		Int64("user_id", acct.User.ID).
		Str("type", string(in.Type)).
		Msg("account registered")

	return &Session{
		Token:    acct.Token,
		Username: acct.User.Username,
		Email:    acct.User.Email,
		UserID:   acct.User.ID,
	}, nil
}

// Login checks the credentials and returns the user's token, reusing the
// stored one when present.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordLogin(false)
		return nil, AuthFailed(invalidCredentials)
	}
	if err != nil {
		return nil, Internal(err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, Internal(err)
	}
	if !ok {
		metrics.RecordLogin(false)
		return nil, AuthFailed(invalidCredentials)
	}

	token, err := s.tokens.GetOrCreate(ctx, user.ID, s.minter.Mint)
	if err != nil {
		return nil, Internal(err)
	}

	metrics.RecordLogin(true)
	return &Session{
		Token:    token,
		Username: user.Username,
		Email:    user.Email,
		UserID:   user.ID,
	}, nil
}

// Logout revokes the caller's token.
func (s *AuthService) Logout(ctx context.Context, actor access.Actor) error {
	if !actor.Authenticated() {
		return fromPolicy(access.ErrUnauthenticated)
	}
	if err := s.tokens.Delete(ctx, actor.UserID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Internal(err)
	}
	return nil
}

// Authenticate resolves a raw token into the actor it belongs to. The
// signature must verify and the token must still be the one on record.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (access.Actor, error) {
	userID, err := s.minter.Parse(raw)
	if err != nil {
		return access.Actor{}, &Error{Kind: KindUnauthenticated, Message: "Invalid token.", Err: err}
	}

	role, err := s.tokens.Lookup(ctx, raw)
	if errors.Is(err, repository.ErrNotFound) {
		return access.Actor{}, &Error{Kind: KindUnauthenticated, Message: "Invalid token."}
	}
	if err != nil {
		return access.Actor{}, Internal(err)
	}
	if role.UserID != userID {
		return access.Actor{}, &Error{Kind: KindUnauthenticated, Message: "Invalid token."}
	}

	return access.Actor{UserID: role.UserID, Role: role.Role, IsStaff: role.IsStaff}, nil
}

package service

import (
	"context"
	"strings"

	"coderr-service/internal/access"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/rs/zerolog"
)

const profileNotFound = "Profile not found."

type UpdateProfileInput struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=150"`
	LastName     *string `json:"last_name" validate:"omitempty,max=150"`
	Bio          *string `json:"bio"`
	Location     *string `json:"location" validate:"omitempty,max=100"`
	Tel          *string `json:"tel" validate:"omitempty,max=20,phone"`
	Description  *string `json:"description"`
	WorkingHours *string `json:"working_hours" validate:"omitempty,max=50"`
	File         *string `json:"file" validate:"omitempty,max=2048"`
	Email        *string `json:"email" validate:"omitempty,email,max=254"`
	// Accepted only to reject it with a field error.
	Type *string `json:"type"`
}

func (in UpdateProfileInput) patch() models.ProfilePatch {
	return models.ProfilePatch{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Bio:          in.Bio,
		Location:     in.Location,
		Tel:          in.Tel,
		Description:  in.Description,
		WorkingHours: in.WorkingHours,
		File:         in.File,
		Email:        in.Email,
	}
}

type ProfileService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

func NewProfileService(users repository.UserRepository, profiles repository.ProfileRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, profiles: profiles, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, actor access.Actor, userID int64) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, profileNotFound)
	}
	return p, nil
}

func (s *ProfileService) Update(ctx context.Context, actor access.Actor, userID int64, in UpdateProfileInput) (*models.Profile, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}

	current, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, profileNotFound)
	}
	if err := fromPolicy(access.Can(actor, access.ModifyProfile, access.Resource{OwnerID: current.UserID})); err != nil {
		return nil, err
	}

	if in.Email != nil {
		trimmed := strings.TrimSpace(*in.Email)
		in.Email = &trimmed
	}

	verr := validateStruct(in)
	extra := map[string][]string{}
	if in.Type != nil && *in.Type != string(current.Type) {
		extra["type"] = []string{"The profile type cannot be changed."}
	}
	if in.Email != nil && *in.Email != "" && *in.Email != current.Email {
		taken, err := s.users.EmailTaken(ctx, *in.Email, userID)
		if err != nil {
			return nil, Internal(err)
		}
		if taken {
			extra["email"] = []string{duplicateMessage("email")}
		}
	}
	if in.Email != nil && *in.Email == "" {
		extra["email"] = []string{"This field may not be blank."}
	}
	if err := mergeFields(verr, extra); err != nil {
		return nil, err
	}

	updated, err := s.profiles.Update(ctx, userID, in.patch())
	if err != nil {
		return nil, fromRepo(err, profileNotFound)
	}

	s.logger.Debug().Int64("user_id", userID).Int64("actor_id", actor.UserID).Msg("profile updated")
	return updated, nil
}

// List returns every profile of the given role.
func (s *ProfileService) List(ctx context.Context, role models.Role) ([]models.Profile, error) {
	if !role.Valid() {
		return nil, NotFound("Unknown profile type.")
	}
	profiles, err := s.profiles.ListByRole(ctx, role)
	if err != nil {
		return nil, Internal(err)
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}
	return profiles, nil
}

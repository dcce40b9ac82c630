package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"coderr-service/internal/access"
	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/rs/zerolog"
)

const reviewNotFound = "Review not found."

type CreateReviewInput struct {
	BusinessUser *int64 `json:"business_user" validate:"required,gt=0"`
	Rating       *int   `json:"rating" validate:"required,min=1,max=5"`
	Description  string `json:"description" validate:"max=2000"`
}

type UpdateReviewInput struct {
	Rating      *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type ReviewService struct {
	reviews repository.ReviewRepository
	users   repository.UserRepository
	logger  zerolog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, users repository.UserRepository, logger zerolog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, users: users, logger: logger}
}

// Create records a customer's review of a business user. Each customer may
// review a business once.
func (s *ReviewService) Create(ctx context.Context, actor access.Actor, in CreateReviewInput) (*models.Review, error) {
	if err := fromPolicy(access.Can(actor, access.CreateReview, access.Resource{})); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	target, err := s.users.GetRole(ctx, *in.BusinessUser)
	if err != nil {
		return nil, fromRepo(err, businessUserNotFound)
	}
	if target.Role != models.RoleBusiness {
		return nil, FieldError("business_user", notBusinessProvider)
	}

	exists, err := s.reviews.Exists(ctx, target.UserID, actor.UserID)
	if err != nil {
		return nil, Internal(err)
	}
	if exists {
		return nil, FieldError("business_user", duplicateMessage("business_user"))
	}

	review := &models.Review{
		BusinessUserID: target.UserID,
		ReviewerID:     actor.UserID,
		Rating:         *in.Rating,
		Description:    in.Description,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fromRepo(err, reviewNotFound)
	}

	metrics.RecordEvent(metrics.EventReviewCreated)
	s.logger.Info().
		Int64("review_id", review.ID).
		Int64("business_user", review.BusinessUserID).
		Int("rating", review.Rating).
		Msg("review created")
	return review, nil
}

// ParseQuery reads the optional review filters from values.
func (s *ReviewService) ParseQuery(values url.Values) (repository.ReviewFilter, error) {
	f := repository.ReviewFilter{Ordering: repository.ReviewUpdatedDesc}
	fields := map[string][]string{}

	parseID := func(key string) *int64 {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			return nil
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fields[key] = []string{"A valid integer is required."}
			return nil
		}
		return &id
	}
	f.BusinessUserID = parseID("business_user_id")
	f.ReviewerID = parseID("reviewer_id")

	if v := strings.TrimSpace(values.Get("ordering")); v != "" {
		if !repository.ValidReviewOrdering(v) {
			fields["ordering"] = []string{fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)}
		} else {
			f.Ordering = v
		}
	}

	if len(fields) > 0 {
		return f, ValidationFailed("Invalid query parameters.", fields)
	}
	return f, nil
}

// List returns the reviews the actor wrote or received.
func (s *ReviewService) List(ctx context.Context, actor access.Actor, f repository.ReviewFilter) ([]models.Review, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	f.ParticipantID = actor.UserID

	reviews, err := s.reviews.List(ctx, f)
	if err != nil {
		return nil, Internal(err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

func (s *ReviewService) Get(ctx context.Context, actor access.Actor, id int64) (*models.Review, error) {
	review, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := fromPolicy(access.Can(actor, access.ViewReview, reviewResource(review))); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, actor access.Actor, id int64, in UpdateReviewInput) (*models.Review, error) {
	review, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := fromPolicy(access.Can(actor, access.ModifyReview, access.Resource{OwnerID: review.ReviewerID})); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updated, err := s.reviews.Update(ctx, id, models.ReviewPatch{Rating: in.Rating, Description: in.Description})
	if err != nil {
		return nil, fromRepo(err, reviewNotFound)
	}

	metrics.RecordEvent(metrics.EventReviewUpdated)
	return updated, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor access.Actor, id int64) error {
	review, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := fromPolicy(access.Can(actor, access.ModifyReview, access.Resource{OwnerID: review.ReviewerID})); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return fromRepo(err, reviewNotFound)
	}

	metrics.RecordEvent(metrics.EventReviewDeleted)
	s.logger.Info().Int64("review_id", id).Int64("actor_id", actor.UserID).Msg("review deleted")
	return nil
}

func (s *ReviewService) load(ctx context.Context, actor access.Actor, id int64) (*models.Review, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, reviewNotFound)
	}
	return review, nil
}

func reviewResource(r *models.Review) access.Resource {
	return access.Resource{OwnerID: r.ReviewerID, Participants: []int64{r.BusinessUserID}}
}

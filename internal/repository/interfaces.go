package repository

import (
	"context"

	"coderr-service/internal/models"

	"github.com/shopspring/decimal"
)

// TokenMinter issues the auth token for a freshly created user id.
type TokenMinter func(userID int64) (string, error)

type UserRepository interface {
	CreateAccount(ctx context.Context, acct *models.Account, mint TokenMinter) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string, exceptUserID int64) (bool, error)
	GetRole(ctx context.Context, id int64) (*models.UserRole, error)
}

type TokenRepository interface {
	GetOrCreate(ctx context.Context, userID int64, mint TokenMinter) (string, error)
	Lookup(ctx context.Context, key string) (*models.UserRole, error)
	Delete(ctx context.Context, userID int64) error
}

type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.Profile, error)
	Update(ctx context.Context, userID int64, patch models.ProfilePatch) (*models.Profile, error)
}

// OfferOrdering values accepted by OfferFilter.
const (
	OrderUpdatedAsc  = "updated_at"
	OrderUpdatedDesc = "-updated_at"
	OrderPriceAsc    = "min_price"
	OrderPriceDesc   = "-min_price"
)

type OfferFilter struct {
	CreatorID       *int64
	MinPrice        *decimal.Decimal
	MaxDeliveryTime *int
	Search          string
	Ordering        string
	Limit           int
	Offset          int
}

// DetailCheck validates the detail set an update would leave behind.
// created holds the patches that matched no stored detail and become new rows.
type DetailCheck func(details []models.OfferDetail, created []models.DetailPatch) error

type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id int64) (*models.Offer, error)
	List(ctx context.Context, f OfferFilter) ([]models.Offer, int, error)
	Update(ctx context.Context, id int64, patch models.OfferPatch, check DetailCheck) (*models.Offer, error)
	Delete(ctx context.Context, id int64) error
	GetOwnerID(ctx context.Context, id int64) (int64, error)

	GetDetail(ctx context.Context, id int64) (*models.OfferDetail, error)
	GetDetailSource(ctx context.Context, id int64) (*models.DetailSource, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	ListForUser(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id int64) error
	CountByBusiness(ctx context.Context, businessUserID int64, status models.OrderStatus) (int64, error)
}

// ReviewOrdering values accepted by ReviewFilter.
const (
	ReviewUpdatedAsc  = "updated_at"
	ReviewUpdatedDesc = "-updated_at"
	ReviewRatingAsc   = "rating"
	ReviewRatingDesc  = "-rating"
)

type ReviewFilter struct {
	// ParticipantID restricts to reviews written by or about this user.
	ParticipantID  int64
	BusinessUserID *int64
	ReviewerID     *int64
	Ordering       string
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id int64) (*models.Review, error)
	List(ctx context.Context, f ReviewFilter) ([]models.Review, error)
	Exists(ctx context.Context, businessUserID, reviewerID int64) (bool, error)
	Update(ctx context.Context, id int64, patch models.ReviewPatch) (*models.Review, error)
	Delete(ctx context.Context, id int64) error
}

type StatsRepository interface {
	BaseInfo(ctx context.Context) (*models.BaseInfo, error)
}

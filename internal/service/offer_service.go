package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"coderr-service/internal/access"
	"coderr-service/internal/config"
	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	offerNotFound  = "Offer not found."
	detailNotFound = "Offer detail not found."
	invalidPage    = "Invalid page."
	tierSetMessage = "An offer must have exactly three details: basic, standard and premium."
)

type DetailInput struct {
	Title              string           `json:"title" validate:"required,max=255"`
	Revisions          *int             `json:"revisions" validate:"required,gte=-1"`
	DeliveryTimeInDays *int             `json:"delivery_time_in_days" validate:"required,gt=0"`
	Price              *decimal.Decimal `json:"price" validate:"required"`
	Features           []string         `json:"features" validate:"required,min=1,dive,required"`
	OfferType          models.OfferType `json:"offer_type" validate:"required,oneof=basic standard premium"`
}

func (in DetailInput) detail() models.OfferDetail {
	d := models.OfferDetail{
		Title:     in.Title,
		Features:  append([]string{}, in.Features...),
		OfferType: in.OfferType,
	}
	if in.Revisions != nil {
		d.Revisions = *in.Revisions
	}
	if in.DeliveryTimeInDays != nil {
		d.DeliveryTimeInDays = *in.DeliveryTimeInDays
	}
	if in.Price != nil {
		d.Price = *in.Price
	}
	return d
}

type CreateOfferInput struct {
	Title       string        `json:"title" validate:"required,max=255"`
	Image       string        `json:"image" validate:"max=2048"`
	Description string        `json:"description"`
	Details     []DetailInput `json:"details" validate:"required,dive"`
}

// DetailPatchInput updates the detail with ID, or creates a detail when ID
// is absent.
type DetailPatchInput struct {
	ID                 *int64            `json:"id" validate:"omitempty,gt=0"`
	Title              *string           `json:"title" validate:"omitempty,max=255"`
	Revisions          *int              `json:"revisions" validate:"omitempty,gte=-1"`
	DeliveryTimeInDays *int              `json:"delivery_time_in_days" validate:"omitempty,gt=0"`
	Price              *decimal.Decimal  `json:"price"`
	Features           []string          `json:"features" validate:"omitempty,dive,required"`
	OfferType          *models.OfferType `json:"offer_type" validate:"omitempty,oneof=basic standard premium"`
}

func (in DetailPatchInput) patch() models.DetailPatch {
	p := models.DetailPatch{
		Title:              in.Title,
		Revisions:          in.Revisions,
		DeliveryTimeInDays: in.DeliveryTimeInDays,
		Price:              in.Price,
		Features:           in.Features,
		OfferType:          in.OfferType,
	}
	if in.ID != nil {
		p.ID = *in.ID
	}
	return p
}

// missing lists the fields a new detail must carry but in leaves out.
func (in DetailPatchInput) missing() []string {
	return in.patch().Missing()
}

type UpdateOfferInput struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Image       *string `json:"image" validate:"omitempty,max=2048"`
	Description *string `json:"description"`
	// nil leaves the detail set untouched; an empty list removes every detail.
	Details []DetailPatchInput `json:"details" validate:"dive"`
}

// OfferQuery is a parsed offer list request.
type OfferQuery struct {
	Filter   repository.OfferFilter
	Page     int
	PageSize int
}

// OfferList is one page of offers.
type OfferList struct {
	Offers   []models.Offer
	Count    int
	Page     int
	PageSize int
}

func (l OfferList) HasNext() bool {
	return l.Page*l.PageSize < l.Count
}

func (l OfferList) HasPrevious() bool {
	return l.Page > 1
}

type OfferService struct {
	offers      repository.OfferRepository
	pageSize    int
	maxPageSize int
	// enforceTiers re-checks the full basic/standard/premium set on update.
	enforceTiers bool
	logger       zerolog.Logger
}

func NewOfferService(offers repository.OfferRepository, cfg config.CatalogConfig, logger zerolog.Logger) *OfferService {
	return &OfferService{
		offers:       offers,
		pageSize:     cfg.PageSize,
		maxPageSize:  cfg.MaxPageSize,
		enforceTiers: cfg.EnforceTiersOnUpdate,
		logger:       logger,
	}
}

func (s *OfferService) Create(ctx context.Context, actor access.Actor, in CreateOfferInput) (*models.Offer, error) {
	if err := fromPolicy(access.Can(actor, access.CreateOffer, access.Resource{})); err != nil {
		return nil, err
	}

	err := validateStruct(in)
	extra := map[string][]string{}
	types := make([]models.OfferType, 0, len(in.Details))
	for i, d := range in.Details {
		if d.Price != nil && d.Price.IsNegative() {
			extra[fmt.Sprintf("details[%d].price", i)] = []string{"Must be greater than or equal to 0."}
		}
		types = append(types, d.OfferType)
	}
	if in.Details != nil && !isTierSet(types) {
		extra["details"] = []string{tierSetMessage}
	}
	if err = mergeFields(err, extra); err != nil {
		return nil, err
	}

	offer := &models.Offer{
		UserID:      actor.UserID,
		Title:       strings.TrimSpace(in.Title),
		Image:       in.Image,
		Description: in.Description,
		Details:     make([]models.OfferDetail, 0, len(in.Details)),
	}
	for _, d := range in.Details {
		offer.Details = append(offer.Details, d.detail())
	}

	if err := s.offers.Create(ctx, offer); err != nil {
		return nil, fromRepo(err, offerNotFound)
	}

	metrics.RecordEvent(metrics.EventOfferCreated)
	s.logger.Info().Int64("offer_id", offer.ID).Int64("user_id", actor.UserID).Msg("offer created")

	created, err := s.offers.GetByID(ctx, offer.ID)
	if err != nil {
		return nil, fromRepo(err, offerNotFound)
	}
	return created, nil
}

// ParseQuery reads the list filters, ordering and page window from values.
func (s *OfferService) ParseQuery(values url.Values) (OfferQuery, error) {
	q := OfferQuery{Page: 1, PageSize: s.pageSize}
	q.Filter.Ordering = repository.OrderUpdatedDesc
	fields := map[string][]string{}

	if v := strings.TrimSpace(values.Get("creator_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fields["creator_id"] = []string{"A valid integer is required."}
		} else {
			q.Filter.CreatorID = &id
		}
	}
	if v := strings.TrimSpace(values.Get("min_price")); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			fields["min_price"] = []string{"A valid number is required."}
		} else {
			q.Filter.MinPrice = &price
		}
	}
	if v := strings.TrimSpace(values.Get("max_delivery_time")); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			fields["max_delivery_time"] = []string{"A valid integer is required."}
		} else {
			q.Filter.MaxDeliveryTime = &days
		}
	}
	if v := strings.TrimSpace(values.Get("ordering")); v != "" {
		if !repository.ValidOfferOrdering(v) {
			fields["ordering"] = []string{fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", v)}
		} else {
			q.Filter.Ordering = v
		}
	}
	q.Filter.Search = strings.TrimSpace(values.Get("search"))

	if len(fields) > 0 {
		return q, ValidationFailed("Invalid query parameters.", fields)
	}

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return q, NotFound(invalidPage)
		}
		q.Page = page
	}
	if v := strings.TrimSpace(values.Get("page_size")); v != "" {
		// unusable sizes fall back to the default
		if size, err := strconv.Atoi(v); err == nil && size > 0 {
			q.PageSize = min(size, s.maxPageSize)
		}
	}

	return q, nil
}

// List returns the requested page. A page past the last one is NotFound,
// except the first page of an empty result.
func (s *OfferService) List(ctx context.Context, q OfferQuery) (*OfferList, error) {
	f := q.Filter
	f.Limit = q.PageSize
	f.Offset = (q.Page - 1) * q.PageSize

	offers, total, err := s.offers.List(ctx, f)
	if err != nil {
		return nil, Internal(err)
	}
	if q.Page > 1 && f.Offset >= total {
		return nil, NotFound(invalidPage)
	}
	if offers == nil {
		offers = []models.Offer{}
	}

	return &OfferList{Offers: offers, Count: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *OfferService) Get(ctx context.Context, id int64) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, offerNotFound)
	}
	return offer, nil
}

func (s *OfferService) GetDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	d, err := s.offers.GetDetail(ctx, id)
	if err != nil {
		return nil, fromRepo(err, detailNotFound)
	}
	return d, nil
}

func (s *OfferService) Update(ctx context.Context, actor access.Actor, id int64, in UpdateOfferInput) (*models.Offer, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}

	ownerID, err := s.offers.GetOwnerID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, offerNotFound)
	}
	if err := fromPolicy(access.Can(actor, access.ModifyOffer, access.Resource{OwnerID: ownerID})); err != nil {
		return nil, err
	}

	verr := validateStruct(in)
	extra := map[string][]string{}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		extra["title"] = []string{"This field may not be blank."}
	}
	seen := make(map[int64]struct{}, len(in.Details))
	for i, d := range in.Details {
		if d.Price != nil && d.Price.IsNegative() {
			extra[fmt.Sprintf("details[%d].price", i)] = []string{"Must be greater than or equal to 0."}
		}
		if d.ID == nil {
			for _, f := range d.missing() {
				extra[fmt.Sprintf("details[%d].%s", i, f)] = []string{"This field is required."}
			}
			continue
		}
		if _, dup := seen[*d.ID]; dup {
			extra["details"] = append(extra["details"], fmt.Sprintf("Detail %d appears more than once.", *d.ID))
		}
		seen[*d.ID] = struct{}{}
	}
	if err := mergeFields(verr, extra); err != nil {
		return nil, err
	}

	patch := models.OfferPatch{
		Title:       in.Title,
		Image:       in.Image,
		Description: in.Description,
	}
	if in.Details != nil {
		patch.Details = make([]models.DetailPatch, 0, len(in.Details))
		for _, d := range in.Details {
			patch.Details = append(patch.Details, d.patch())
		}
	}

	updated, err := s.offers.Update(ctx, id, patch, s.checkDetails)
	if err != nil {
		return nil, fromRepo(err, offerNotFound)
	}

	metrics.RecordEvent(metrics.EventOfferUpdated)
	s.logger.Info().Int64("offer_id", id).Int64("actor_id", actor.UserID).Msg("offer updated")
	return updated, nil
}

// checkDetails validates the detail set an update would leave behind.
// A patch whose id matched nothing is created, so it must be complete.
func (s *OfferService) checkDetails(details []models.OfferDetail, created []models.DetailPatch) error {
	var problems []string
	for _, p := range created {
		if p.ID == 0 {
			continue
		}
		for _, f := range p.Missing() {
			problems = append(problems, fmt.Sprintf("detail %d does not exist, %s is required to create it.", p.ID, f))
		}
	}
	if len(problems) > 0 {
		return ValidationFailed("Invalid offer details.", map[string][]string{"details": problems})
	}

	seen := make(map[models.OfferType]struct{}, len(details))
	types := make([]models.OfferType, 0, len(details))

	for _, d := range details {
		for _, p := range detailProblems(d) {
			problems = append(problems, fmt.Sprintf("%s: %s", d.OfferType, p))
		}
		if _, dup := seen[d.OfferType]; dup {
			problems = append(problems, fmt.Sprintf("%s: offer_type appears more than once.", d.OfferType))
		}
		seen[d.OfferType] = struct{}{}
		types = append(types, d.OfferType)
	}
	if s.enforceTiers && !isTierSet(types) {
		problems = append(problems, tierSetMessage)
	}

	if len(problems) == 0 {
		return nil
	}
	return ValidationFailed("Invalid offer details.", map[string][]string{"details": problems})
}

func (s *OfferService) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if !actor.Authenticated() {
		return fromPolicy(access.ErrUnauthenticated)
	}

	ownerID, err := s.offers.GetOwnerID(ctx, id)
	if err != nil {
		return fromRepo(err, offerNotFound)
	}
	if err := fromPolicy(access.Can(actor, access.ModifyOffer, access.Resource{OwnerID: ownerID})); err != nil {
		return err
	}

	if err := s.offers.Delete(ctx, id); err != nil {
		return fromRepo(err, offerNotFound)
	}

	metrics.RecordEvent(metrics.EventOfferDeleted)
	s.logger.Info().Int64("offer_id", id).Int64("actor_id", actor.UserID).Msg("offer deleted")
	return nil
}

// isTierSet reports whether types is exactly basic, standard and premium.
func isTierSet(types []models.OfferType) bool {
	if len(types) != len(models.OfferTypes) {
		return false
	}
	seen := make(map[models.OfferType]struct{}, len(types))
	for _, t := range types {
		if !t.Valid() {
			return false
		}
		seen[t] = struct{}{}
	}
	return len(seen) == len(models.OfferTypes)
}

func detailProblems(d models.OfferDetail) []string {
	var out []string
	if strings.TrimSpace(d.Title) == "" {
		out = append(out, "title is required.")
	}
	if d.Revisions < -1 {
		out = append(out, "revisions must be -1 or greater.")
	}
	if d.DeliveryTimeInDays <= 0 {
		out = append(out, "delivery_time_in_days must be greater than 0.")
	}
	if d.Price.IsNegative() {
		out = append(out, "price must not be negative.")
	}
	if len(d.Features) == 0 {
		out = append(out, "features must not be empty.")
	}
	if !d.OfferType.Valid() {
		out = append(out, "offer_type is invalid.")
	}
	return out
}

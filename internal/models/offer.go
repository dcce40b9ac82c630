package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OfferType string

const (
	OfferBasic    OfferType = "basic"
	OfferStandard OfferType = "standard"
	OfferPremium  OfferType = "premium"
)

// OfferTypes lists every tier an offer must carry.
var OfferTypes = []OfferType{OfferBasic, OfferStandard, OfferPremium}

func (t OfferType) Valid() bool {
	switch t {
	case OfferBasic, OfferStandard, OfferPremium:
		return true
	}
	return false
}

type OfferDetail struct {
	ID                 int64           `json:"id"`
	OfferID            int64           `json:"-"`
	Title              string          `json:"title"`
	Revisions          int             `json:"revisions"`
	DeliveryTimeInDays int             `json:"delivery_time_in_days"`
	Price              decimal.Decimal `json:"price"`
	Features           []string        `json:"features"`
	OfferType          OfferType       `json:"offer_type"`
}

// DetailPatch is a partial offer detail. ID == 0 marks a detail to create.
type DetailPatch struct {
	ID                 int64
	Title              *string
	Revisions          *int
	DeliveryTimeInDays *int
	Price              *decimal.Decimal
	Features           []string
	OfferType          *OfferType
}

// Missing lists the json names of the fields a new detail needs but p
// leaves unset.
func (p DetailPatch) Missing() []string {
	var out []string
	if p.Title == nil {
		out = append(out, "title")
	}
	if p.Revisions == nil {
		out = append(out, "revisions")
	}
	if p.DeliveryTimeInDays == nil {
		out = append(out, "delivery_time_in_days")
	}
	if p.Price == nil {
		out = append(out, "price")
	}
	if p.Features == nil {
		out = append(out, "features")
	}
	if p.OfferType == nil {
		out = append(out, "offer_type")
	}
	return out
}

// Apply copies the set fields of p onto d.
func (p DetailPatch) Apply(d *OfferDetail) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Revisions != nil {
		d.Revisions = *p.Revisions
	}
	if p.DeliveryTimeInDays != nil {
		d.DeliveryTimeInDays = *p.DeliveryTimeInDays
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Features != nil {
		d.Features = append([]string(nil), p.Features...)
	}
	if p.OfferType != nil {
		d.OfferType = *p.OfferType
	}
}

type UserDetails struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type Offer struct {
	ID          int64
	UserID      int64
	Title       string
	Image       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Details     []OfferDetail
	Owner       UserDetails

	// Set by list queries, which aggregate in SQL and load no detail bodies.
	MinPrice        decimal.Decimal
	MinDeliveryTime int
	DetailIDs       []int64
}

type OfferPatch struct {
	Title       *string
	Image       *string
	Description *string
	// Details is nil when the request left the detail set alone.
	Details []DetailPatch
}

// Minimums returns the lowest price and delivery time across the offer's
// details, or zero values when it has none.
func (o *Offer) Minimums() (decimal.Decimal, int) {
	if len(o.Details) == 0 {
		return decimal.Zero, 0
	}
	minPrice := o.Details[0].Price
	minDelivery := o.Details[0].DeliveryTimeInDays
	for _, d := range o.Details[1:] {
		if d.Price.LessThan(minPrice) {
			minPrice = d.Price
		}
		if d.DeliveryTimeInDays < minDelivery {
			minDelivery = d.DeliveryTimeInDays
		}
	}
	return minPrice, minDelivery
}

type DetailLink struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

func NewDetailLink(id int64) DetailLink {
	return DetailLink{ID: id, URL: fmt.Sprintf("/offerdetails/%d/", id)}
}

// OfferSummary is the list representation: details are links only.
type OfferSummary struct {
	ID              int64           `json:"id"`
	User            int64           `json:"user"`
	Title           string          `json:"title"`
	Image           string          `json:"image"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Details         []DetailLink    `json:"details"`
	MinPrice        decimal.Decimal `json:"min_price"`
	MinDeliveryTime int             `json:"min_delivery_time"`
	UserDetails     UserDetails     `json:"user_details"`
}

// OfferView is the retrieve representation with nested details.
type OfferView struct {
	ID              int64           `json:"id"`
	User            int64           `json:"user"`
	Title           string          `json:"title"`
	Image           string          `json:"image"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Details         []OfferDetail   `json:"details"`
	MinPrice        decimal.Decimal `json:"min_price"`
	MinDeliveryTime int             `json:"min_delivery_time"`
	UserDetails     UserDetails     `json:"user_details"`
}

func (o *Offer) Summary() OfferSummary {
	links := make([]DetailLink, 0, len(o.DetailIDs))
	for _, id := range o.DetailIDs {
		links = append(links, NewDetailLink(id))
	}
	return OfferSummary{
		ID:              o.ID,
		User:            o.UserID,
		Title:           o.Title,
		Image:           o.Image,
		Description:     o.Description,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Details:         links,
		MinPrice:        o.MinPrice,
		MinDeliveryTime: o.MinDeliveryTime,
		UserDetails:     o.Owner,
	}
}

func (o *Offer) View() OfferView {
	minPrice, minDelivery := o.Minimums()
	details := o.Details
	if details == nil {
		details = []OfferDetail{}
	}
	return OfferView{
		ID:              o.ID,
		User:            o.UserID,
		Title:           o.Title,
		Image:           o.Image,
		Description:     o.Description,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
		Details:         details,
		MinPrice:        minPrice,
		MinDeliveryTime: minDelivery,
		UserDetails:     o.Owner,
	}
}

// Page is a page-number paginated result set.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

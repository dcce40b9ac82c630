package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderInProgress OrderStatus = "in_progress"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	ID                 int64           `json:"id"`
	CustomerUserID     int64           `json:"customer_user"`
	BusinessUserID     int64           `json:"business_user"`
	Title              string          `json:"title"`
	Revisions          int             `json:"revisions"`
	DeliveryTimeInDays int             `json:"delivery_time_in_days"`
	Price              decimal.Decimal `json:"price"`
	Features           []string        `json:"features"`
	OfferType          OfferType       `json:"offer_type"`
	Status             OrderStatus     `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// NewOrderFromDetail snapshots the terms of d into a fresh in-progress order.
func NewOrderFromDetail(d OfferDetail, businessUserID, customerUserID int64) Order {
	return Order{
		CustomerUserID:     customerUserID,
		BusinessUserID:     businessUserID,
		Title:              d.Title,
		Revisions:          d.Revisions,
		DeliveryTimeInDays: d.DeliveryTimeInDays,
		Price:              d.Price,
		Features:           append([]string{}, d.Features...),
		OfferType:          d.OfferType,
		Status:             OrderInProgress,
	}
}

// DetailSource is an offer detail together with the user that owns its offer.
type DetailSource struct {
	Detail      OfferDetail
	OwnerUserID int64
}

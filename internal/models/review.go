package models

import "time"

type Review struct {
	ID             int64     `json:"id"`
	BusinessUserID int64     `json:"business_user"`
	ReviewerID     int64     `json:"reviewer"`
	Rating         int       `json:"rating"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ReviewPatch struct {
	Rating      *int
	Description *string
}

type BaseInfo struct {
	ReviewCount          int64   `json:"review_count"`
	AverageRating        float64 `json:"average_rating"`
	BusinessProfileCount int64   `json:"business_profile_count"`
	OfferCount           int64   `json:"offer_count"`
}

// Package access holds the single permission policy of the marketplace.
package access

import (
	"errors"
	"slices"

	"coderr-service/internal/models"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID  int64
	Role    models.Role
	IsStaff bool
}

func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

type Action string

const (
	CreateOffer   Action = "offer:create"
	ModifyOffer   Action = "offer:modify"
	ModifyProfile Action = "profile:modify"
	CreateOrder   Action = "order:create"
	ViewOrder     Action = "order:view"
	UpdateOrder   Action = "order:update"
	DeleteOrder   Action = "order:delete"
	CreateReview  Action = "review:create"
	ViewReview    Action = "review:view"
	ModifyReview  Action = "review:modify"
)

// Resource describes who owns, or takes part in, the object acted upon.
// Creation actions ignore it.
type Resource struct {
	OwnerID      int64
	Participants []int64
}

var ErrUnauthenticated = errors.New("authentication credentials were not provided")

// DeniedError is returned when an authenticated actor may not perform an action.
type DeniedError struct {
	Action  Action
	Message string
}

func (e *DeniedError) Error() string {
	return e.Message
}

var denyMessages = map[Action]string{
	CreateOffer:   "Only business users can create offers.",
	ModifyOffer:   "Only the owner or an admin can change this offer.",
	ModifyProfile: "You can only edit your own profile.",
	CreateOrder:   "Only customers can create orders.",
	ViewOrder:     "You are not a participant of this order.",
	UpdateOrder:   "You are not a participant of this order.",
	DeleteOrder:   "Only admins can delete orders.",
	CreateReview:  "Only customers can create reviews.",
	ViewReview:    "You are not a participant of this review.",
	ModifyReview:  "Only the reviewer or an admin can change this review.",
}

// Can decides whether actor may perform action on res.
func Can(actor Actor, action Action, res Resource) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	if allowed(actor, action, res) {
		return nil
	}
	return &DeniedError{Action: action, Message: denyMessages[action]}
}

func allowed(actor Actor, action Action, res Resource) bool {
	owner := res.OwnerID != 0 && res.OwnerID == actor.UserID
	participant := owner || slices.Contains(res.Participants, actor.UserID)

	switch action {
	case CreateOffer:
		return actor.IsStaff || actor.Role == models.RoleBusiness
	case ModifyOffer, ModifyProfile, ModifyReview:
		return actor.IsStaff || owner
	case CreateOrder, CreateReview:
		return actor.Role == models.RoleCustomer
	case ViewOrder, UpdateOrder, ViewReview:
		return actor.IsStaff || participant
	case DeleteOrder:
		return actor.IsStaff
	}
	return false
}

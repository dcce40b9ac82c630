package service

import (
	"context"

	"coderr-service/internal/access"
	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/rs/zerolog"
)

const (
	orderNotFound        = "Order not found."
	businessUserNotFound = "Business user not found."
	notBusinessProvider  = "User is not a business provider."
	// FullUpdateRejected is returned for PUT on an order.
	FullUpdateRejected = "Full updates are not allowed. Use PATCH to update specific fields."
)

type CreateOrderInput struct {
	OfferDetailID *int64 `json:"offer_detail_id" validate:"required,gt=0"`
}

type UpdateOrderInput struct {
	Status *models.OrderStatus `json:"status" validate:"required,oneof=in_progress completed cancelled"`
}

type OrderService struct {
	orders repository.OrderRepository
	offers repository.OfferRepository
	users  repository.UserRepository
	logger zerolog.Logger
}

func NewOrderService(orders repository.OrderRepository, offers repository.OfferRepository, users repository.UserRepository, logger zerolog.Logger) *OrderService {
	return &OrderService{orders: orders, offers: offers, users: users, logger: logger}
}

// Create places an order for the detail, snapshotting its terms.
func (s *OrderService) Create(ctx context.Context, actor access.Actor, in CreateOrderInput) (*models.Order, error) {
	if err := fromPolicy(access.Can(actor, access.CreateOrder, access.Resource{})); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	src, err := s.offers.GetDetailSource(ctx, *in.OfferDetailID)
	if err != nil {
		return nil, fromRepo(err, detailNotFound)
	}

	order := models.NewOrderFromDetail(src.Detail, src.OwnerUserID, actor.UserID)
	if err := s.orders.Create(ctx, &order); err != nil {
		return nil, fromRepo(err, orderNotFound)
	}

	metrics.RecordEvent(metrics.EventOrderCreated)
	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("customer_user", order.CustomerUserID).
		Int64("business_user", order.BusinessUserID).
		Msg("order created")
	return &order, nil
}

// List returns the orders the actor takes part in, newest first.
func (s *OrderService) List(ctx context.Context, actor access.Actor) ([]models.Order, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	orders, err := s.orders.ListForUser(ctx, actor.UserID)
	if err != nil {
		return nil, Internal(err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, actor access.Actor, id int64) (*models.Order, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, orderNotFound)
	}
	if err := fromPolicy(access.Can(actor, access.ViewOrder, orderResource(order))); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus moves the order to any status.
func (s *OrderService) UpdateStatus(ctx context.Context, actor access.Actor, id int64, in UpdateOrderInput) (*models.Order, error) {
	if !actor.Authenticated() {
		return nil, fromPolicy(access.ErrUnauthenticated)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, orderNotFound)
	}
	if err := fromPolicy(access.Can(actor, access.UpdateOrder, orderResource(order))); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updated, err := s.orders.UpdateStatus(ctx, id, *in.Status)
	if err != nil {
		return nil, fromRepo(err, orderNotFound)
	}

	metrics.RecordEvent(metrics.EventOrderUpdated)
	s.logger.Info().
		Int64("order_id", id).
		Str("from", string(order.Status)).
		Str("to", string(updated.Status)).
		Msg("order status changed")
	return updated, nil
}

// Delete removes an order. Only staff may delete, and the check runs before
// the order is looked up.
func (s *OrderService) Delete(ctx context.Context, actor access.Actor, id int64) error {
	if err := fromPolicy(access.Can(actor, access.DeleteOrder, access.Resource{})); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fromRepo(err, orderNotFound)
	}

	metrics.RecordEvent(metrics.EventOrderDeleted)
	s.logger.Info().Int64("order_id", id).Int64("actor_id", actor.UserID).Msg("order deleted")
	return nil
}

func (s *OrderService) CountInProgress(ctx context.Context, businessUserID int64) (int64, error) {
	return s.count(ctx, businessUserID, models.OrderInProgress)
}

func (s *OrderService) CountCompleted(ctx context.Context, businessUserID int64) (int64, error) {
	return s.count(ctx, businessUserID, models.OrderCompleted)
}

func (s *OrderService) count(ctx context.Context, businessUserID int64, status models.OrderStatus) (int64, error) {
	role, err := s.users.GetRole(ctx, businessUserID)
	if err != nil {
		return 0, fromRepo(err, businessUserNotFound)
	}
	if role.Role != models.RoleBusiness {
		return 0, ValidationFailed(notBusinessProvider, nil)
	}

	n, err := s.orders.CountByBusiness(ctx, businessUserID, status)
	if err != nil {
		return 0, Internal(err)
	}
	return n, nil
}

func orderResource(o *models.Order) access.Resource {
	return access.Resource{Participants: []int64{o.CustomerUserID, o.BusinessUserID}}
}

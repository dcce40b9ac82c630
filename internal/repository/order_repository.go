package repository

import (
	"context"
	"errors"
	"fmt"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type orderRepo struct {
	db DB
}

func NewOrderRepository(db DB) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `
	id,
	customer_user_id,
	business_user_id,
	title,
	revisions,
	delivery_time_in_days,
	price,
	features,
	offer_type,
	status,
	created_at,
	updated_at
`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerUserID,
		&o.BusinessUserID,
		&o.Title,
		&o.Revisions,
		&o.DeliveryTimeInDays,
		&o.Price,
		&o.Features,
		&o.OfferType,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.Features == nil {
		o.Features = []string{}
	}
	return &o, nil
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	if o == nil {
		return fmt.Errorf("%w: order cannot be nil", ErrInvalidInput)
	}
	if o.CustomerUserID <= 0 || o.BusinessUserID <= 0 {
		return fmt.Errorf("%w: order parties cannot be empty", ErrInvalidInput)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, o.Status)
	}

	insert := `
		INSERT INTO orders (
			customer_user_id,
			business_user_id,
			title,
			revisions,
			delivery_time_in_days,
			price,
			features,
			offer_type,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	features := o.Features
	if features == nil {
		features = []string{}
	}

	err := r.db.QueryRow(ctx, insert,
		o.CustomerUserID,
		o.BusinessUserID,
		o.Title,
		o.Revisions,
		o.DeliveryTimeInDays,
		o.Price,
		features,
		o.OfferType,
		o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", mapPgError(err))
	}

	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by id %d: %w", id, err)
	}
	return o, nil
}

// ListForUser returns orders where userID is the customer or the business.
func (r *orderRepo) ListForUser(ctx context.Context, userID int64) ([]models.Order, error) {
	sql := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_user_id = $1 OR business_user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders of user %d: %w", userID, err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return orders, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}

	sql := `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + orderColumns

	o, err := scanOrder(r.db.QueryRow(ctx, sql, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update order status %d: %w", id, mapPgError(err))
	}
	return o, nil
}

func (r *orderRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepo) CountByBusiness(ctx context.Context, businessUserID int64, status models.OrderStatus) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE business_user_id = $1 AND status = $2`,
		businessUserID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders of user %d: %w", businessUserID, err)
	}
	return count, nil
}

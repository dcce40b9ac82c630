package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coderr-service/internal/models"

	"github.com/jackc/pgx/v5"
)

type offerRepo struct {
	db DB
}

func NewOfferRepository(db DB) OfferRepository {
	return &offerRepo{db: db}
}

func (r *offerRepo) Create(ctx context.Context, o *models.Offer) error {
	if o == nil {
		return fmt.Errorf("%w: offer cannot be nil", ErrInvalidInput)
	}
	if o.UserID <= 0 {
		return fmt.Errorf("%w: owner ID cannot be empty", ErrInvalidInput)
	}
	if o.Title == "" {
		return fmt.Errorf("%w: offer title required", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO offers (user_id, title, image, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, insert,
		o.UserID,
		o.Title,
		o.Image,
		o.Description,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", mapPgError(err))
	}

	for i := range o.Details {
		if err := insertDetail(ctx, tx, o.ID, &o.Details[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit offer: %w", mapPgError(err))
	}

	return nil
}

func insertDetail(ctx context.Context, q DB, offerID int64, d *models.OfferDetail) error {
	sql := `
		INSERT INTO offer_details (
			offer_id,
			title,
			revisions,
			delivery_time_in_days,
			price,
			features,
			offer_type
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	features := d.Features
	if features == nil {
		features = []string{}
	}
	err := q.QueryRow(ctx, sql,
		offerID,
		d.Title,
		d.Revisions,
		d.DeliveryTimeInDays,
		d.Price,
		features,
		d.OfferType,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create offer detail: %w", mapPgError(err))
	}
	d.OfferID = offerID
	return nil
}

func updateDetail(ctx context.Context, q DB, d models.OfferDetail) error {
	sql := `
		UPDATE offer_details
		SET
			title = $1,
			revisions = $2,
			delivery_time_in_days = $3,
			price = $4,
			features = $5,
			offer_type = $6
		WHERE id = $7 AND offer_id = $8
	`
	result, err := q.Exec(ctx, sql,
		d.Title,
		d.Revisions,
		d.DeliveryTimeInDays,
		d.Price,
		d.Features,
		d.OfferType,
		d.ID,
		d.OfferID,
	)
	if err != nil {
		return fmt.Errorf("failed to update offer detail %d: %w", d.ID, mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectDetail = `
	SELECT id, offer_id, title, revisions, delivery_time_in_days, price, features, offer_type
	FROM offer_details
`

func scanDetail(row pgx.Row) (*models.OfferDetail, error) {
	var d models.OfferDetail
	err := row.Scan(
		&d.ID,
		&d.OfferID,
		&d.Title,
		&d.Revisions,
		&d.DeliveryTimeInDays,
		&d.Price,
		&d.Features,
		&d.OfferType,
	)
	if err != nil {
		return nil, err
	}
	if d.Features == nil {
		d.Features = []string{}
	}
	return &d, nil
}

func loadDetails(ctx context.Context, q DB, offerID int64, lock bool) ([]models.OfferDetail, error) {
	sql := selectDetail + ` WHERE offer_id = $1 ORDER BY id`
	if lock {
		sql += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, sql, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get details of offer %d: %w", offerID, err)
	}
	defer rows.Close()

	details := []models.OfferDetail{}
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer detail: %w", err)
		}
		details = append(details, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return details, nil
}

func (r *offerRepo) GetByID(ctx context.Context, id int64) (*models.Offer, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `
		SELECT
			o.id,
			o.user_id,
			o.title,
			o.image,
			o.description,
			o.created_at,
			o.updated_at,
			COALESCE(p.first_name, ''),
			COALESCE(p.last_name, ''),
			u.username
		FROM offers o
		JOIN users u ON u.id = o.user_id
		LEFT JOIN profiles p ON p.user_id = o.user_id
		WHERE o.id = $1
	`

	var o models.Offer
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Title,
		&o.Image,
		&o.Description,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Owner.FirstName,
		&o.Owner.LastName,
		&o.Owner.Username,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer by id %d: %w", id, err)
	}

	o.Details, err = loadDetails(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	o.MinPrice, o.MinDeliveryTime = o.Minimums()
	for _, d := range o.Details {
		o.DetailIDs = append(o.DetailIDs, d.ID)
	}

	return &o, nil
}

// offerAggregates computes per-offer minimums over the current details.
// The raw minimums stay NULL for offers without details so that range
// filters never match them.
const offerAggregates = `
	WITH agg AS (
		SELECT
			o.id,
			MIN(d.price) AS min_price,
			MIN(d.delivery_time_in_days) AS min_delivery_time,
			COALESCE(array_agg(d.id ORDER BY d.id) FILTER (WHERE d.id IS NOT NULL), '{}'::bigint[]) AS detail_ids
		FROM offers o
		LEFT JOIN offer_details d ON d.offer_id = o.id
		GROUP BY o.id
	)
`

var offerOrderings = map[string]string{
	OrderUpdatedAsc:  "o.updated_at ASC, o.id ASC",
	OrderUpdatedDesc: "o.updated_at DESC, o.id DESC",
	OrderPriceAsc:    "a.min_price ASC NULLS LAST, o.id ASC",
	OrderPriceDesc:   "a.min_price DESC NULLS LAST, o.id DESC",
}

// ValidOfferOrdering reports whether s names a supported ordering.
func ValidOfferOrdering(s string) bool {
	_, ok := offerOrderings[s]
	return ok
}

// escapeLike quotes the LIKE wildcards of a user-supplied search term.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildOfferWhere renders the filter as a WHERE clause over offers o and agg a.
func buildOfferWhere(f OfferFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CreatorID != nil {
		conds = append(conds, "o.user_id = "+arg(*f.CreatorID))
	}
	if f.MinPrice != nil {
		conds = append(conds, "a.min_price >= "+arg(*f.MinPrice))
	}
	if f.MaxDeliveryTime != nil {
		conds = append(conds, "a.min_delivery_time <= "+arg(*f.MaxDeliveryTime))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		conds = append(conds, "(o.title ILIKE "+p+" OR o.description ILIKE "+p+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildOfferListSQL(f OfferFilter) (countSQL, pageSQL string, countArgs, pageArgs []any) {
	where, args := buildOfferWhere(f)

	countSQL = offerAggregates + `SELECT COUNT(*) FROM offers o JOIN agg a ON a.id = o.id` + where

	order, ok := offerOrderings[f.Ordering]
	if !ok {
		order = offerOrderings[OrderUpdatedDesc]
	}

	pageArgs = append(append([]any{}, args...), f.Limit, f.Offset)
	pageSQL = offerAggregates + `
		SELECT
			o.id,
			o.user_id,
			o.title,
			o.image,
			o.description,
			o.created_at,
			o.updated_at,
			COALESCE(a.min_price, 0),
			COALESCE(a.min_delivery_time, 0),
			a.detail_ids,
			COALESCE(p.first_name, ''),
			COALESCE(p.last_name, ''),
			u.username
		FROM offers o
		JOIN agg a ON a.id = o.id
		JOIN users u ON u.id = o.user_id
		LEFT JOIN profiles p ON p.user_id = o.user_id` + where +
		` ORDER BY ` + order +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)

	return countSQL, pageSQL, args, pageArgs
}

// List returns one page of offers and the total number matching the filter.
func (r *offerRepo) List(ctx context.Context, f OfferFilter) ([]models.Offer, int, error) {
	if f.Limit <= 0 || f.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: invalid page window", ErrInvalidInput)
	}

	countSQL, pageSQL, countArgs, pageArgs := buildOfferListSQL(f)

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count offers: %w", mapPgError(err))
	}

	rows, err := r.db.Query(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list offers: %w", mapPgError(err))
	}
	defer rows.Close()

	offers := []models.Offer{}
	for rows.Next() {
		var o models.Offer
		err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Title,
			&o.Image,
			&o.Description,
			&o.CreatedAt,
			&o.UpdatedAt,
			&o.MinPrice,
			&o.MinDeliveryTime,
			&o.DetailIDs,
			&o.Owner.FirstName,
			&o.Owner.LastName,
			&o.Owner.Username,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return offers, total, nil
}

// Update patches the offer and, when patch.Details is set, reconciles its
// detail set by id. check sees the resulting set before anything is written.
func (r *offerRepo) Update(ctx context.Context, id int64, patch models.OfferPatch, check DetailCheck) (*models.Offer, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql := `
		UPDATE offers
		SET
			title = COALESCE($1, title),
			image = COALESCE($2, image),
			description = COALESCE($3, description),
			updated_at = NOW()
		WHERE id = $4
	`
	result, err := tx.Exec(ctx, sql, patch.Title, patch.Image, patch.Description, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update offer %d: %w", id, mapPgError(err))
	}
	if result.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if patch.Details != nil {
		if err := r.reconcileDetails(ctx, tx, id, patch.Details, check); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit offer %d: %w", id, mapPgError(err))
	}

	return r.GetByID(ctx, id)
}

func (r *offerRepo) reconcileDetails(ctx context.Context, tx pgx.Tx, offerID int64, incoming []models.DetailPatch, check DetailCheck) error {
	existing, err := loadDetails(ctx, tx, offerID, true)
	if err != nil {
		return err
	}

	plan := ReconcileByID(existing, incoming,
		func(d models.OfferDetail) int64 { return d.ID },
		func(p models.DetailPatch) (int64, bool) { return p.ID, p.ID > 0 },
	)

	updated := make([]models.OfferDetail, 0, len(plan.Matched))
	for _, m := range plan.Matched {
		d := m.Existing
		m.Incoming.Apply(&d)
		updated = append(updated, d)
	}

	created := make([]models.OfferDetail, 0, len(plan.Created))
	for _, p := range plan.Created {
		var d models.OfferDetail
		p.Apply(&d)
		created = append(created, d)
	}

	if check != nil {
		result := append(append([]models.OfferDetail{}, updated...), created...)
		if err := check(result, plan.Created); err != nil {
			return err
		}
	}

	if len(plan.Orphans) > 0 {
		ids := make([]int64, 0, len(plan.Orphans))
		for _, d := range plan.Orphans {
			ids = append(ids, d.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM offer_details WHERE offer_id = $1 AND id = ANY($2)`, offerID, ids); err != nil {
			return fmt.Errorf("failed to delete orphaned details: %w", err)
		}
	}

	for _, d := range updated {
		if err := updateDetail(ctx, tx, d); err != nil {
			return err
		}
	}

	for i := range created {
		if err := insertDetail(ctx, tx, offerID, &created[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *offerRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *offerRepo) GetOwnerID(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	var ownerID int64
	err := r.db.QueryRow(ctx, `SELECT user_id FROM offers WHERE id = $1`, id).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get owner of offer %d: %w", id, err)
	}
	return ownerID, nil
}

func (r *offerRepo) GetDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	d, err := scanDetail(r.db.QueryRow(ctx, selectDetail+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer detail %d: %w", id, err)
	}
	return d, nil
}

func (r *offerRepo) GetDetailSource(ctx context.Context, id int64) (*models.DetailSource, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `
		SELECT
			d.id,
			d.offer_id,
			d.title,
			d.revisions,
			d.delivery_time_in_days,
			d.price,
			d.features,
			d.offer_type,
			o.user_id
		FROM offer_details d
		JOIN offers o ON o.id = d.offer_id
		WHERE d.id = $1
	`

	var src models.DetailSource
	d := &src.Detail
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&d.ID,
		&d.OfferID,
		&d.Title,
		&d.Revisions,
		&d.DeliveryTimeInDays,
		&d.Price,
		&d.Features,
		&d.OfferType,
		&src.OwnerUserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get offer detail %d: %w", id, err)
	}
	if d.Features == nil {
		d.Features = []string{}
	}
	return &src, nil
}

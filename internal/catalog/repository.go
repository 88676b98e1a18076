package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

var ErrSlugExists = fmt.Errorf("%w: slug already in use", apperror.ErrConflict)

type Repository interface {
	CreateCampaign(ctx context.Context, c *Campaign) error
	GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error)
	ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error)
	UpdateCampaign(ctx context.Context, c *Campaign) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error

	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	CreatePremiumCampaign(ctx context.Context, c *PremiumCampaign) error
	GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*PremiumCampaign, error)
	ListPremiumCampaigns(ctx context.Context, activeOnly bool) ([]PremiumCampaign, error)
	UpdatePremiumCampaign(ctx context.Context, c *PremiumCampaign) error
	DeletePremiumCampaign(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func mapWriteError(err error, what string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return ErrSlugExists
		case pgerrcode.CheckViolation:
			return fmt.Errorf("%w: %s violates %s", apperror.ErrValidation, what, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing row", apperror.ErrNotFound, what)
		}
	}
	return fmt.Errorf("repository: failed to write %s: %w", what, err)
}

func expectOne(tag pgconn.CommandTag, err error, what string, id uuid.UUID) error {
	if err != nil {
		return mapWriteError(err, what)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", apperror.ErrNotFound, what, id)
	}
	return nil
}

func newIdentity() (uuid.UUID, time.Time, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("repository: failed to generate id: %w", err)
	}
	return id, time.Now().UTC(), nil
}

const campaignColumns = `id, title, slug, description, image, deadline, active, created_at, updated_at`

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	if err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Image, &c.Deadline, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) CreateCampaign(ctx context.Context, c *Campaign) error {
	id, now, err := newIdentity()
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now

	_, err = r.db.Exec(ctx, `INSERT INTO campaigns (`+campaignColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Title, c.Slug, c.Description, c.Image, c.Deadline, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "campaign")
	}
	return nil
}

func (r *postgresRepository) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: campaign %s", apperror.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository: failed to select campaign %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) ListCampaigns(ctx context.Context, activeOnly bool) ([]Campaign, error) {
	rows, err := r.db.Query(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE ($1 = FALSE OR active) ORDER BY created_at DESC`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *postgresRepository) UpdateCampaign(ctx context.Context, c *Campaign) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns
		SET title = $2, slug = $3, description = $4, image = $5, deadline = $6, active = $7, updated_at = $8
		WHERE id = $1
	`, c.ID, c.Title, c.Slug, c.Description, c.Image, c.Deadline, c.Active, c.UpdatedAt)
	return expectOne(tag, err, "campaign", c.ID)
}

func (r *postgresRepository) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	return expectOne(tag, err, "campaign", id)
}

const productColumns = `id, campaign_id, title, category, description, image, price, total_quantity, ordered_quantity,
	deadline, shipping_deadline, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CampaignID, &p.Title, &p.Category, &p.Description, &p.Image, &p.Price,
		&p.TotalQuantity, &p.OrderedQuantity, &p.Deadline, &p.ShippingDeadline, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	id, now, err := newIdentity()
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	p.OrderedQuantity = 0

	_, err = r.db.Exec(ctx, `INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.CampaignID, p.Title, p.Category, p.Description, p.Image, p.Price, p.TotalQuantity, p.OrderedQuantity,
		p.Deadline, p.ShippingDeadline, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "product")
	}
	return nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %s", apperror.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE ($1::uuid IS NULL OR campaign_id = $1) AND ($2 = FALSE OR active)
		ORDER BY created_at DESC
	`, filter.CampaignID, filter.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

// UpdateProduct never writes ordered_quantity; that column belongs to the
// payment review flow.
func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE products
		SET campaign_id = $2, title = $3, category = $4, description = $5, image = $6, price = $7,
		    total_quantity = $8, deadline = $9, shipping_deadline = $10, active = $11, updated_at = $12
		WHERE id = $1
	`, p.ID, p.CampaignID, p.Title, p.Category, p.Description, p.Image, p.Price,
		p.TotalQuantity, p.Deadline, p.ShippingDeadline, p.Active, p.UpdatedAt)
	return expectOne(tag, err, "product", p.ID)
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return expectOne(tag, err, "product", id)
}

const premiumColumns = `id, title, slug, description, image, price, air_cargo_cost, total_quantity, ordered_quantity,
	current_participants, deadline, estimated_delivery, active, created_at, updated_at`

func scanPremium(row pgx.Row) (*PremiumCampaign, error) {
	var c PremiumCampaign
	err := row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Image, &c.Price, &c.AirCargoCost,
		&c.TotalQuantity, &c.OrderedQuantity, &c.CurrentParticipants, &c.Deadline, &c.EstimatedDelivery,
		&c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) CreatePremiumCampaign(ctx context.Context, c *PremiumCampaign) error {
	id, now, err := newIdentity()
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, now, now
	c.OrderedQuantity, c.CurrentParticipants = 0, 0

	_, err = r.db.Exec(ctx, `INSERT INTO premium_campaigns (`+premiumColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		c.ID, c.Title, c.Slug, c.Description, c.Image, c.Price, c.AirCargoCost, c.TotalQuantity, c.OrderedQuantity,
		c.CurrentParticipants, c.Deadline, c.EstimatedDelivery, c.Active, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return mapWriteError(err, "premium campaign")
	}
	return nil
}

func (r *postgresRepository) GetPremiumCampaign(ctx context.Context, id uuid.UUID) (*PremiumCampaign, error) {
	c, err := scanPremium(r.db.QueryRow(ctx, `SELECT `+premiumColumns+` FROM premium_campaigns WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: premium campaign %s", apperror.ErrNotFound, id)
		}
		return nil, fmt.Errorf("repository: failed to select premium campaign %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresRepository) ListPremiumCampaigns(ctx context.Context, activeOnly bool) ([]PremiumCampaign, error) {
	rows, err := r.db.Query(ctx, `SELECT `+premiumColumns+` FROM premium_campaigns WHERE ($1 = FALSE OR active) ORDER BY created_at DESC`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query premium campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]PremiumCampaign, 0)
	for rows.Next() {
		c, err := scanPremium(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan premium campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating premium campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *postgresRepository) UpdatePremiumCampaign(ctx context.Context, c *PremiumCampaign) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE premium_campaigns
		SET title = $2, slug = $3, description = $4, image = $5, price = $6, air_cargo_cost = $7,
		    total_quantity = $8, deadline = $9, estimated_delivery = $10, active = $11, updated_at = $12
		WHERE id = $1
	`, c.ID, c.Title, c.Slug, c.Description, c.Image, c.Price, c.AirCargoCost,
		c.TotalQuantity, c.Deadline, c.EstimatedDelivery, c.Active, c.UpdatedAt)
	return expectOne(tag, err, "premium campaign", c.ID)
}

func (r *postgresRepository) DeletePremiumCampaign(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM premium_campaigns WHERE id = $1`, id)
	return expectOne(tag, err, "premium campaign", id)
}

package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Campaign groups products for display.
type Campaign struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Product struct {
	ID               uuid.UUID       `json:"id"`
	CampaignID       *uuid.UUID      `json:"campaign_id,omitempty"`
	Title            string          `json:"title"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	Image            string          `json:"image"`
	Price            decimal.Decimal `json:"price"`
	TotalQuantity    int             `json:"total_quantity"`
	OrderedQuantity  int             `json:"ordered_quantity"`
	Deadline         *time.Time      `json:"deadline,omitempty"`
	ShippingDeadline *time.Time      `json:"shipping_deadline,omitempty"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Available is the stock left for new orders.
func (p *Product) Available() int {
	return max(p.TotalQuantity-p.OrderedQuantity, 0)
}

type PremiumCampaign struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	Slug                string          `json:"slug"`
	Description         string          `json:"description"`
	Image               string          `json:"image"`
	Price               decimal.Decimal `json:"price"`
	AirCargoCost        decimal.Decimal `json:"air_cargo_cost"`
	TotalQuantity       int             `json:"total_quantity"`
	OrderedQuantity     int             `json:"ordered_quantity"`
	CurrentParticipants int             `json:"current_participants"`
	Deadline            *time.Time      `json:"deadline,omitempty"`
	EstimatedDelivery   *time.Time      `json:"estimated_delivery,omitempty"`
	Active              bool            `json:"active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (c *PremiumCampaign) Available() int {
	return max(c.TotalQuantity-c.OrderedQuantity, 0)
}

type ProductFilter struct {
	CampaignID *uuid.UUID
	ActiveOnly bool
}

type CampaignInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Image       *string    `json:"image" validate:"omitempty,url"`
	Deadline    *time.Time `json:"deadline"`
	Active      *bool      `json:"active"`
}

type ProductInput struct {
	CampaignID       *uuid.UUID       `json:"campaign_id"`
	Title            *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Category         *string          `json:"category"`
	Description      *string          `json:"description"`
	Image            *string          `json:"image" validate:"omitempty,url"`
	Price            *decimal.Decimal `json:"price"`
	TotalQuantity    *int             `json:"total_quantity" validate:"omitempty,min=0"`
	Deadline         *time.Time       `json:"deadline"`
	ShippingDeadline *time.Time       `json:"shipping_deadline"`
	Active           *bool            `json:"active"`
}

type PremiumCampaignInput struct {
	Title             *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description"`
	Image             *string          `json:"image" validate:"omitempty,url"`
	Price             *decimal.Decimal `json:"price"`
	AirCargoCost      *decimal.Decimal `json:"air_cargo_cost"`
	TotalQuantity     *int             `json:"total_quantity" validate:"omitempty,min=0"`
	Deadline          *time.Time       `json:"deadline"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery"`
	Active            *bool            `json:"active"`
}

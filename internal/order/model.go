package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

type Kind string

const (
	KindRegular Kind = "regular"
	KindPremium Kind = "premium"
)

func (k Kind) String() string {
	return string(k)
}

// Status is the fulfillment status of an order, independent of payment.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPaymentPending  Status = "payment_pending"
	StatusPaymentRejected Status = "payment_rejected"
	StatusConfirmed       Status = "confirmed"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := allowedTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", apperror.ErrValidation, s)
	}
	return st, nil
}

type Order struct {
	ID                   uuid.UUID             `json:"id"`
	Kind                 Kind                  `json:"kind"`
	UserID               uuid.UUID             `json:"user_id"`
	ProductID            *uuid.UUID            `json:"product_id,omitempty"`
	PremiumCampaignID    *uuid.UUID            `json:"premium_campaign_id,omitempty"`
	Quantity             int                   `json:"quantity"`
	UnitPrice            decimal.Decimal       `json:"unit_price"`
	TotalPrice           decimal.Decimal       `json:"total_price"`
	Status               Status                `json:"status"`
	PaymentPlan          payment.PlanKind      `json:"payment_plan"`
	Legacy               bool                  `json:"legacy"`
	OverallPaymentStatus payment.OverallStatus `json:"overall_payment_status"`
	FirstPayment         payment.Round         `json:"first_payment"`
	SecondPayment        payment.Round         `json:"second_payment"`
	// Payment is set only for legacy orders.
	Payment *Payment `json:"payment,omitempty"`

	AirCargoCost      decimal.Decimal `json:"air_cargo_cost"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payment is the single payment document of a legacy order.
type Payment struct {
	ID        uuid.UUID           `json:"id"`
	OrderID   uuid.UUID           `json:"order_id"`
	Amount    decimal.Decimal     `json:"amount"`
	Status    payment.RoundStatus `json:"status"`
	Details   payment.Details     `json:"payment_details"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (o *Order) Ledger() payment.Ledger {
	return payment.Ledger{Plan: o.PaymentPlan, First: o.FirstPayment.Status, Second: o.SecondPayment.Status}
}

// Record returns the payable unit addressed by round.
func (o *Order) Record(round payment.RoundName) (payment.Record, error) {
	if o.Legacy {
		if round != payment.FirstRound {
			return nil, fmt.Errorf("%w: legacy orders have a single payment", apperror.ErrNotFound)
		}
		if o.Payment == nil {
			return nil, fmt.Errorf("%w: payment for legacy order %s", apperror.ErrNotFound, o.ID)
		}
		return &payment.LegacyRecord{Current: o.Payment.Status}, nil
	}
	return payment.NewRoundRecord(o.Ledger(), round)
}

// Details returns the stored proof of the addressed round.
func (o *Order) Details(round payment.RoundName) payment.Details {
	switch {
	case o.Legacy && o.Payment != nil:
		return o.Payment.Details
	case round == payment.SecondRound:
		return o.SecondPayment.Details
	}
	return o.FirstPayment.Details
}

// AmountDue returns what the buyer still has to transfer for round: the
// round amount while the round accepts a submission, zero otherwise (no such
// round, already paid or verified, or closed by a rejection).
func (o *Order) AmountDue(round payment.RoundName) decimal.Decimal {
	if o.Legacy {
		if round != payment.FirstRound || o.Payment == nil || o.Payment.Status != payment.RoundPending {
			return decimal.Zero
		}
		return o.Payment.Amount
	}
	if round == payment.SecondRound {
		if !o.PaymentPlan.HasSecondRound() {
			return decimal.Zero
		}
		if s := o.SecondPayment.Status; s != payment.RoundPending && s != payment.RoundRejected {
			return decimal.Zero
		}
		return o.SecondPayment.Amount
	}
	if o.FirstPayment.Status != payment.RoundPending {
		return decimal.Zero
	}
	return o.FirstPayment.Amount
}

// Project replaces the cached overall status with the one derived at now.
func (o *Order) Project(now time.Time) {
	if o.Legacy {
		status := payment.RoundPending
		if o.Payment != nil {
			status = o.Payment.Status
		}
		o.OverallPaymentStatus = payment.Overall(payment.PlanFull, status, payment.RoundPending)
		return
	}
	o.OverallPaymentStatus = payment.OverallAt(o.PaymentPlan, o.FirstPayment, o.SecondPayment, now)
}

// Inventory is the counter an order's verification moves.
type Inventory struct {
	Kind Kind
	// ID is nil when the product or campaign was deleted.
	ID       *uuid.UUID
	Quantity int
}

func (o *Order) Inventory() Inventory {
	if o.Kind == KindPremium {
		return Inventory{Kind: KindPremium, ID: o.PremiumCampaignID, Quantity: o.Quantity}
	}
	return Inventory{Kind: KindRegular, ID: o.ProductID, Quantity: o.Quantity}
}

type Filter struct {
	Kind    Kind
	Status  Status
	Overall payment.OverallStatus
	UserID  *uuid.UUID
}

type Shipment struct {
	TrackingNumber    *string          `json:"tracking_number"`
	ShippingCost      *decimal.Decimal `json:"shipping_cost"`
	EstimatedDelivery *time.Time       `json:"estimated_delivery"`
	ActualDelivery    *time.Time       `json:"actual_delivery"`
}

// StatusChange moves the order status to To when it is currently one of From.
// It is applied inside the same write as the payment change.
type StatusChange struct {
	From []Status
	To   Status
}

// PaymentWrite persists a decided payment outcome.
type PaymentWrite struct {
	OrderID   uuid.UUID
	Legacy    bool
	Outcome   payment.Outcome
	Details   payment.Details
	Inventory Inventory
	// Ref is the canonical transaction reference to claim; submissions only.
	Ref    string
	Status *StatusChange
}

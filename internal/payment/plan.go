package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type PlanKind string

const (
	PlanFull        PlanKind = "full"
	PlanInstallment PlanKind = "installment"
)

func (p PlanKind) String() string {
	return string(p)
}

// HasSecondRound reports whether the plan schedules a second payment.
func (p PlanKind) HasSecondRound() bool {
	return p == PlanInstallment
}

func ParsePlan(s string) (PlanKind, error) {
	switch PlanKind(s) {
	case PlanFull, PlanInstallment:
		return PlanKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown payment plan %q", apperror.ErrValidation, s)
}

const day = 24 * time.Hour

// Terms describe how an order kind splits its price into rounds.
type Terms struct {
	// Surcharge is added to the first round only, on top of the goods total.
	Surcharge decimal.Decimal
	// RoundUpHalf rounds the first installment up to a whole currency unit.
	RoundUpHalf    bool
	FirstDueAfter  time.Duration
	SecondDueAfter time.Duration
}

// RegularTerms apply to campaign (group import) orders.
func RegularTerms() Terms {
	return Terms{
		RoundUpHalf:    true,
		SecondDueAfter: 30 * day,
	}
}

// PremiumTerms apply to premium air-cargo orders.
func PremiumTerms(airCargoCost decimal.Decimal) Terms {
	return Terms{
		Surcharge:      airCargoCost,
		FirstDueAfter:  day,
		SecondDueAfter: 7 * day,
	}
}

type Quote struct {
	UnitPrice decimal.Decimal
	Quantity  int
	// Available is the unsold remainder of the linked product or campaign.
	Available int
	Plan      PlanKind
	Terms     Terms
}

type Schedule struct {
	Plan PlanKind
	// Subtotal is unit price times quantity; Total adds the surcharge.
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	First    Round
	Second   Round
}

// Calculate prices a new order. The two rounds always sum to Total.
func Calculate(q Quote, now time.Time) (Schedule, error) {
	if _, err := ParsePlan(string(q.Plan)); err != nil {
		return Schedule{}, err
	}
	if q.Quantity <= 0 {
		return Schedule{}, fmt.Errorf("%w: quantity must be positive, got %d", apperror.ErrValidation, q.Quantity)
	}
	if q.Quantity > q.Available {
		return Schedule{}, fmt.Errorf("%w: quantity %d exceeds available %d", apperror.ErrValidation, q.Quantity, q.Available)
	}
	if q.UnitPrice.IsNegative() || q.Terms.Surcharge.IsNegative() {
		return Schedule{}, fmt.Errorf("%w: price and surcharge must be non-negative", apperror.ErrValidation)
	}

	subtotal := q.UnitPrice.Mul(decimal.NewFromInt(int64(q.Quantity)))
	s := Schedule{
		Plan:     q.Plan,
		Subtotal: subtotal,
		Total:    subtotal.Add(q.Terms.Surcharge),
		First:    Round{Status: RoundPending},
		Second:   Round{Status: RoundPending, Amount: decimal.Zero},
	}
	if q.Terms.FirstDueAfter > 0 {
		due := now.Add(q.Terms.FirstDueAfter)
		s.First.DueDate = &due
	}

	switch q.Plan {
	case PlanFull:
		s.First.Amount = s.Total
	case PlanInstallment:
		base := subtotal.Div(decimal.NewFromInt(2))
		if q.Terms.RoundUpHalf {
			base = decimal.Min(base.Ceil(), subtotal)
		}
		s.First.Amount = base.Add(q.Terms.Surcharge)
		s.Second.Amount = subtotal.Sub(base)
		due := now.Add(q.Terms.SecondDueAfter)
		s.Second.DueDate = &due
	}

	return s, nil
}

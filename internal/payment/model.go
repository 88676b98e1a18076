package payment

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

type RoundStatus string

const (
	RoundPending  RoundStatus = "pending"
	RoundPaid     RoundStatus = "paid"
	RoundVerified RoundStatus = "verified"
	RoundRejected RoundStatus = "rejected"
)

func (s RoundStatus) String() string {
	return string(s)
}

type OverallStatus string

const (
	OverallPending   OverallStatus = "pending"
	OverallPartial   OverallStatus = "partial"
	OverallCompleted OverallStatus = "completed"
	OverallOverdue   OverallStatus = "overdue"
)

func (s OverallStatus) String() string {
	return string(s)
}

// RoundName selects one of the two scheduled payments of an order.
type RoundName string

const (
	FirstRound  RoundName = "first"
	SecondRound RoundName = "second"
)

func (r RoundName) String() string {
	return string(r)
}

func ParseRoundName(s string) (RoundName, error) {
	switch RoundName(s) {
	case FirstRound, SecondRound:
		return RoundName(s), nil
	}
	return "", fmt.Errorf("%w: unknown payment round %q", apperror.ErrValidation, s)
}

// Details is the proof a buyer submits for a round, plus the admin review stamp.
type Details struct {
	SenderName     string     `json:"sender_name,omitempty"`
	Method         string     `json:"method,omitempty"`
	TransactionRef string     `json:"transaction_ref,omitempty"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`
	Screenshot     string     `json:"screenshot,omitempty"`
	VerifiedBy     *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

type Round struct {
	Amount  decimal.Decimal `json:"amount"`
	Status  RoundStatus     `json:"status"`
	DueDate *time.Time      `json:"due_date,omitempty"`
	Details Details         `json:"payment_details"`
}

// Outstanding reports whether the round still expects money from the buyer.
func (r Round) Outstanding() bool {
	return r.Amount.IsPositive() && r.Status != RoundVerified
}

// Submission is what the buyer sends when paying a round.
type Submission struct {
	SenderName     string
	Method         string
	TransactionRef string
	PaymentDate    time.Time
	Screenshot     string
}

func (s Submission) Validate() error {
	var missing []string
	if s.SenderName == "" {
		missing = append(missing, "sender_name")
	}
	if s.Method == "" {
		missing = append(missing, "method")
	}
	if s.TransactionRef == "" {
		missing = append(missing, "transaction_ref")
	}
	if s.PaymentDate.IsZero() {
		missing = append(missing, "payment_date")
	}
	if s.Screenshot == "" {
		missing = append(missing, "screenshot")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields %v", apperror.ErrValidation, missing)
	}
	return nil
}

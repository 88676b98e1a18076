package payment

import (
	"fmt"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

// Record is one payable unit: a round embedded in an order, or a legacy
// single-round payment document. Both go through the same operations.
type Record interface {
	Status() RoundStatus
	Submit() (Outcome, error)
	Review(target RoundStatus) (Outcome, error)
	Revoke() (Outcome, error)
}

// RoundRecord is a round of a two-round order.
type RoundRecord struct {
	Ledger Ledger
	Round  RoundName
}

func NewRoundRecord(l Ledger, round RoundName) (*RoundRecord, error) {
	if _, err := l.Status(round); err != nil {
		return nil, err
	}
	return &RoundRecord{Ledger: l, Round: round}, nil
}

func (r *RoundRecord) Status() RoundStatus {
	s, _ := r.Ledger.Status(r.Round)
	return s
}

func (r *RoundRecord) Submit() (Outcome, error) {
	return Submit(r.Ledger, r.Round)
}

func (r *RoundRecord) Review(target RoundStatus) (Outcome, error) {
	return Review(r.Ledger, r.Round, target)
}

func (r *RoundRecord) Revoke() (Outcome, error) {
	if r.Round != FirstRound {
		return Outcome{}, fmt.Errorf("%w: only the first payment can be revoked", apperror.ErrInvalidTransition)
	}
	return Revoke(r.Ledger)
}

// LegacyRecord is a pre-split payment: pending goes straight to verified or
// rejected, and both are terminal. It always commits inventory on verify.
type LegacyRecord struct {
	Current RoundStatus
}

func (r *LegacyRecord) Status() RoundStatus {
	return r.Current
}

func (r *LegacyRecord) outcome(to RoundStatus, effect Effect) Outcome {
	return Outcome{
		Round:   FirstRound,
		From:    r.Current,
		To:      to,
		Changed: r.Current != to,
		Effect:  effect,
		Overall: Overall(PlanFull, to, RoundPending),
	}
}

// Submit attaches proof to a pending legacy payment; the status stays pending.
func (r *LegacyRecord) Submit() (Outcome, error) {
	if r.Current != RoundPending {
		return Outcome{}, fmt.Errorf("%w: legacy payment is already %s", apperror.ErrInvalidTransition, r.Current)
	}
	return r.outcome(RoundPending, EffectNone), nil
}

func (r *LegacyRecord) Review(target RoundStatus) (Outcome, error) {
	if target != RoundVerified && target != RoundRejected {
		return Outcome{}, fmt.Errorf("%w: review target must be verified or rejected, got %q", apperror.ErrValidation, target)
	}
	if r.Current == target {
		return r.outcome(target, EffectNone), nil
	}
	if r.Current != RoundPending {
		return Outcome{}, fmt.Errorf("%w: legacy payment is already %s", apperror.ErrInvalidTransition, r.Current)
	}
	effect := EffectNone
	if target == RoundVerified {
		effect = EffectCommit
	}
	return r.outcome(target, effect), nil
}

func (r *LegacyRecord) Revoke() (Outcome, error) {
	if r.Current != RoundVerified {
		return Outcome{}, fmt.Errorf("%w: only a verified payment can be revoked (status %s)", apperror.ErrInvalidTransition, r.Current)
	}
	return r.outcome(RoundRejected, EffectRelease), nil
}

package payment

import (
	"fmt"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
)

// Effect is what a transition does to the linked inventory counter.
type Effect int

const (
	EffectNone Effect = iota
	// EffectCommit adds the order quantity (and one participant) to the counter.
	EffectCommit
	// EffectRelease takes them back out, clamped at zero.
	EffectRelease
)

// Ledger is the payment state of an order that transitions are decided on.
type Ledger struct {
	Plan   PlanKind
	First  RoundStatus
	Second RoundStatus
}

func (l Ledger) Status(round RoundName) (RoundStatus, error) {
	switch {
	case round == FirstRound:
		return l.First, nil
	case round == SecondRound && l.Plan.HasSecondRound():
		return l.Second, nil
	}
	return "", fmt.Errorf("%w: payment round %q does not exist on a %s plan", apperror.ErrNotFound, round, l.Plan)
}

func (l Ledger) with(round RoundName, status RoundStatus) Ledger {
	if round == FirstRound {
		l.First = status
	} else {
		l.Second = status
	}
	return l
}

// Guard is a condition on the other round that the decision relied on. The
// write must fail if it no longer holds.
type Guard struct {
	Round  RoundName
	Status RoundStatus
	// Not inverts the check: the round must not be in Status.
	Not bool
}

func (g Guard) Holds(l Ledger) bool {
	current, _ := l.Status(g.Round)
	return (current == g.Status) != g.Not
}

// Outcome is a decided transition, ready to be persisted with a conditional
// write keyed on From and Guard.
type Outcome struct {
	Round   RoundName
	From    RoundStatus
	To      RoundStatus
	Changed bool
	Effect  Effect
	Overall OverallStatus
	Guard   *Guard
}

func (l Ledger) outcome(round RoundName, from, to RoundStatus, effect Effect) Outcome {
	next := l.with(round, to)
	out := Outcome{
		Round:   round,
		From:    from,
		To:      to,
		Changed: from != to,
		Effect:  effect,
		Overall: Overall(next.Plan, next.First, next.Second),
	}
	if round == SecondRound {
		out.Guard = &Guard{Round: FirstRound, Status: RoundVerified}
	}
	return out
}

func (l Ledger) checkSequence(round RoundName) error {
	if round == SecondRound && l.First != RoundVerified {
		return fmt.Errorf("%w: first payment must be verified before the second (first is %s)", apperror.ErrSequence, l.First)
	}
	return nil
}

// Submit decides a buyer's payment-proof submission for a round.
func Submit(l Ledger, round RoundName) (Outcome, error) {
	current, err := l.Status(round)
	if err != nil {
		return Outcome{}, err
	}
	if err := l.checkSequence(round); err != nil {
		return Outcome{}, err
	}

	switch {
	case current == RoundPending:
	case current == RoundRejected && round == SecondRound:
	default:
		return Outcome{}, fmt.Errorf("%w: cannot submit %s payment in status %s", apperror.ErrInvalidTransition, round, current)
	}

	return l.outcome(round, current, RoundPaid, EffectNone), nil
}

// Review decides an admin verify/reject of a round.
//
// Verified is terminal. A rejected first round is terminal; a rejected
// second round may still be verified. Verifying the first round commits
// inventory, exactly once since a verified round never transitions again.
func Review(l Ledger, round RoundName, target RoundStatus) (Outcome, error) {
	if target != RoundVerified && target != RoundRejected {
		return Outcome{}, fmt.Errorf("%w: review target must be verified or rejected, got %q", apperror.ErrValidation, target)
	}
	current, err := l.Status(round)
	if err != nil {
		return Outcome{}, err
	}
	if err := l.checkSequence(round); err != nil {
		return Outcome{}, err
	}

	if current == target {
		return l.outcome(round, current, current, EffectNone), nil
	}
	if current == RoundVerified {
		return Outcome{}, fmt.Errorf("%w: %s payment is already verified", apperror.ErrInvalidTransition, round)
	}
	if current == RoundRejected && round == FirstRound {
		return Outcome{}, fmt.Errorf("%w: rejected first payment cannot be changed", apperror.ErrInvalidTransition)
	}

	effect := EffectNone
	if round == FirstRound && target == RoundVerified {
		effect = EffectCommit
	}
	return l.outcome(round, current, target, effect), nil
}

// Revoke is the admin override that rejects an already verified first round
// and releases the inventory its verification committed.
func Revoke(l Ledger) (Outcome, error) {
	if l.First != RoundVerified {
		return Outcome{}, fmt.Errorf("%w: only a verified first payment can be revoked (status %s)", apperror.ErrInvalidTransition, l.First)
	}
	if l.Plan.HasSecondRound() && l.Second == RoundVerified {
		return Outcome{}, fmt.Errorf("%w: second payment is verified, order is settled", apperror.ErrInvalidTransition)
	}
	out := l.outcome(FirstRound, RoundVerified, RoundRejected, EffectRelease)
	if l.Plan.HasSecondRound() {
		out.Guard = &Guard{Round: SecondRound, Status: RoundVerified, Not: true}
	}
	return out, nil
}

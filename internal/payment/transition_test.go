package payment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/groupbuy-service/internal/apperror"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
)

func ledger(plan payment.PlanKind, first, second payment.RoundStatus) payment.Ledger {
	return payment.Ledger{Plan: plan, First: first, Second: second}
}

func TestReview(t *testing.T) {
	tests := []struct {
		name        string
		ledger      payment.Ledger
		round       payment.RoundName
		target      payment.RoundStatus
		wantErr     error
		wantEffect  payment.Effect
		wantOverall payment.OverallStatus
		wantChanged bool
	}{
		{
			name:        "verify_full_commits",
			ledger:      ledger(payment.PlanFull, payment.RoundPaid, payment.RoundPending),
			round:       payment.FirstRound,
			target:      payment.RoundVerified,
			wantEffect:  payment.EffectCommit,
			wantOverall: payment.OverallCompleted,
			wantChanged: true,
		},
		{
			name:        "verify_pending_first_commits",
			ledger:      ledger(payment.PlanInstallment, payment.RoundPending, payment.RoundPending),
			round:       payment.FirstRound,
			target:      payment.RoundVerified,
			wantEffect:  payment.EffectCommit,
			wantOverall: payment.OverallPartial,
			wantChanged: true,
		},
		{
			name:        "verify_twice_is_noop",
			ledger:      ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending),
			round:       payment.FirstRound,
			target:      payment.RoundVerified,
			wantEffect:  payment.EffectNone,
			wantOverall: payment.OverallCompleted,
		},
		{
			name:    "reject_verified_first",
			ledger:  ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending),
			round:   payment.FirstRound,
			target:  payment.RoundRejected,
			wantErr: apperror.ErrInvalidTransition,
		},
		{
			name:    "reject_verified_second",
			ledger:  ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundVerified),
			round:   payment.SecondRound,
			target:  payment.RoundRejected,
			wantErr: apperror.ErrInvalidTransition,
		},
		{
			name:    "verify_rejected_first",
			ledger:  ledger(payment.PlanInstallment, payment.RoundRejected, payment.RoundPending),
			round:   payment.FirstRound,
			target:  payment.RoundVerified,
			wantErr: apperror.ErrInvalidTransition,
		},
		{
			name:        "verify_rejected_second_allowed",
			ledger:      ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundRejected),
			round:       payment.SecondRound,
			target:      payment.RoundVerified,
			wantEffect:  payment.EffectNone,
			wantOverall: payment.OverallCompleted,
			wantChanged: true,
		},
		{
			name:        "reject_second_never_touches_inventory",
			ledger:      ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundPaid),
			round:       payment.SecondRound,
			target:      payment.RoundRejected,
			wantEffect:  payment.EffectNone,
			wantOverall: payment.OverallPartial,
			wantChanged: true,
		},
		{
			name:        "reject_paid_first",
			ledger:      ledger(payment.PlanInstallment, payment.RoundPaid, payment.RoundPending),
			round:       payment.FirstRound,
			target:      payment.RoundRejected,
			wantEffect:  payment.EffectNone,
			wantOverall: payment.OverallPending,
			wantChanged: true,
		},
		{
			name:    "second_before_first_verified",
			ledger:  ledger(payment.PlanInstallment, payment.RoundPaid, payment.RoundPaid),
			round:   payment.SecondRound,
			target:  payment.RoundVerified,
			wantErr: apperror.ErrSequence,
		},
		{
			name:    "second_round_on_full_plan",
			ledger:  ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending),
			round:   payment.SecondRound,
			target:  payment.RoundVerified,
			wantErr: apperror.ErrNotFound,
		},
		{
			name:    "bad_target",
			ledger:  ledger(payment.PlanFull, payment.RoundPaid, payment.RoundPending),
			round:   payment.FirstRound,
			target:  payment.RoundPaid,
			wantErr: apperror.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := payment.Review(tt.ledger, tt.round, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEffect, out.Effect)
			assert.Equal(t, tt.wantOverall, out.Overall)
			assert.Equal(t, tt.wantChanged, out.Changed)
			assert.Equal(t, tt.target, out.To)
		})
	}
}

func TestReview_VerifiedIsTerminal(t *testing.T) {
	plans := []payment.PlanKind{payment.PlanFull, payment.PlanInstallment}
	targets := []payment.RoundStatus{payment.RoundPending, payment.RoundPaid, payment.RoundRejected}

	for _, plan := range plans {
		rounds := []payment.RoundName{payment.FirstRound}
		if plan.HasSecondRound() {
			rounds = append(rounds, payment.SecondRound)
		}
		for _, round := range rounds {
			l := ledger(plan, payment.RoundVerified, payment.RoundVerified)
			for _, target := range targets {
				out, err := payment.Review(l, round, target)
				assert.Error(t, err, "%s/%s -> %s", plan, round, target)
				assert.Equal(t, payment.Outcome{}, out)

				_, err = payment.Submit(l, round)
				assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
			}
		}
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name    string
		ledger  payment.Ledger
		round   payment.RoundName
		wantErr error
	}{
		{name: "first_pending", ledger: ledger(payment.PlanFull, payment.RoundPending, payment.RoundPending), round: payment.FirstRound},
		{name: "first_already_paid", ledger: ledger(payment.PlanFull, payment.RoundPaid, payment.RoundPending), round: payment.FirstRound, wantErr: apperror.ErrInvalidTransition},
		{name: "first_rejected", ledger: ledger(payment.PlanFull, payment.RoundRejected, payment.RoundPending), round: payment.FirstRound, wantErr: apperror.ErrInvalidTransition},
		{name: "second_before_first", ledger: ledger(payment.PlanInstallment, payment.RoundPaid, payment.RoundPending), round: payment.SecondRound, wantErr: apperror.ErrSequence},
		{name: "second_pending", ledger: ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundPending), round: payment.SecondRound},
		{name: "second_resubmit_after_reject", ledger: ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundRejected), round: payment.SecondRound},
		{name: "second_on_full", ledger: ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending), round: payment.SecondRound, wantErr: apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := payment.Submit(tt.ledger, tt.round)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payment.RoundPaid, out.To)
			assert.Equal(t, payment.EffectNone, out.Effect)
		})
	}
}

func TestRevoke(t *testing.T) {
	out, err := payment.Revoke(ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending))
	require.NoError(t, err)
	assert.Equal(t, payment.EffectRelease, out.Effect)
	assert.Equal(t, payment.RoundRejected, out.To)
	assert.Equal(t, payment.OverallPending, out.Overall)

	_, err = payment.Revoke(ledger(payment.PlanFull, payment.RoundPaid, payment.RoundPending))
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	_, err = payment.Revoke(ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundVerified))
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestOutcomeGuards(t *testing.T) {
	settled := ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundVerified)
	partial := ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundPaid)
	revoked := ledger(payment.PlanInstallment, payment.RoundRejected, payment.RoundPaid)

	out, err := payment.Revoke(partial)
	require.NoError(t, err)
	require.NotNil(t, out.Guard)
	assert.True(t, out.Guard.Holds(partial))
	assert.False(t, out.Guard.Holds(settled), "revoke must not land once the second round is verified")

	out, err = payment.Review(partial, payment.SecondRound, payment.RoundVerified)
	require.NoError(t, err)
	require.NotNil(t, out.Guard)
	assert.True(t, out.Guard.Holds(partial))
	assert.False(t, out.Guard.Holds(revoked), "second round needs a verified first round at write time")

	out, err = payment.Submit(ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundPending), payment.SecondRound)
	require.NoError(t, err)
	require.NotNil(t, out.Guard)

	out, err = payment.Revoke(ledger(payment.PlanFull, payment.RoundVerified, payment.RoundPending))
	require.NoError(t, err)
	assert.Nil(t, out.Guard)

	out, err = payment.Review(ledger(payment.PlanFull, payment.RoundPaid, payment.RoundPending), payment.FirstRound, payment.RoundVerified)
	require.NoError(t, err)
	assert.Nil(t, out.Guard)
}

func TestLegacyRecord(t *testing.T) {
	var rec payment.Record = &payment.LegacyRecord{Current: payment.RoundPending}

	out, err := rec.Submit()
	require.NoError(t, err)
	assert.Equal(t, payment.RoundPending, out.To)

	out, err = rec.Review(payment.RoundVerified)
	require.NoError(t, err)
	assert.Equal(t, payment.EffectCommit, out.Effect)
	assert.Equal(t, payment.OverallCompleted, out.Overall)

	rec = &payment.LegacyRecord{Current: payment.RoundRejected}
	_, err = rec.Review(payment.RoundVerified)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	rec = &payment.LegacyRecord{Current: payment.RoundVerified}
	_, err = rec.Review(payment.RoundRejected)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	out, err = rec.Revoke()
	require.NoError(t, err)
	assert.Equal(t, payment.EffectRelease, out.Effect)
}

func TestRoundRecord(t *testing.T) {
	_, err := payment.NewRoundRecord(ledger(payment.PlanFull, payment.RoundPending, payment.RoundPending), payment.SecondRound)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	rec, err := payment.NewRoundRecord(ledger(payment.PlanInstallment, payment.RoundVerified, payment.RoundPaid), payment.SecondRound)
	require.NoError(t, err)
	assert.Equal(t, payment.RoundPaid, rec.Status())

	_, err = rec.Revoke()
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

package payment

import "time"

// Overall derives the order-level payment status from the round statuses.
// It is never patched incrementally; every write recomputes it.
func Overall(plan PlanKind, first, second RoundStatus) OverallStatus {
	if first != RoundVerified {
		return OverallPending
	}
	if !plan.HasSecondRound() || second == RoundVerified {
		return OverallCompleted
	}
	return OverallPartial
}

// OverallAt is Overall plus the informational overdue flag: an incomplete
// order with an outstanding round past its due date is overdue.
func OverallAt(plan PlanKind, first, second Round, now time.Time) OverallStatus {
	status := Overall(plan, first.Status, second.Status)
	if status == OverallCompleted {
		return status
	}
	rounds := []Round{first}
	if plan.HasSecondRound() {
		rounds = append(rounds, second)
	}
	for _, r := range rounds {
		if r.Outstanding() && r.DueDate != nil && r.DueDate.Before(now) {
			return OverallOverdue
		}
	}
	return status
}

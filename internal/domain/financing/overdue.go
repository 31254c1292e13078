package financing

import "time"

// OverduePolicy decides when an unpaid financing is in default. The engine
// only evaluates it; running it periodically is up to an external process.
type OverduePolicy interface {
	IsOverdue(f *Financing, now time.Time) bool
}

// CycleOverduePolicy treats a financing as overdue once every expected
// harvest cycle plus a grace period has elapsed without full repayment.
type CycleOverduePolicy struct {
	CycleLength time.Duration
	GracePeriod time.Duration
}

// DueDate returns the end of the last expected harvest cycle
func (p CycleOverduePolicy) DueDate(f *Financing) time.Time {
	return f.CreatedAt.Add(time.Duration(f.NumberOfHarvestCycles) * p.CycleLength)
}

// IsOverdue implements OverduePolicy
func (p CycleOverduePolicy) IsOverdue(f *Financing, now time.Time) bool {
	if p.CycleLength <= 0 || !f.State.AcceptsPayments() || f.IsFullyRepaid() {
		return false
	}
	return now.After(p.DueDate(f).Add(p.GracePeriod))
}

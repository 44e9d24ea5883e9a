package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/clock"
)

// DeriveStatus computes the status implied by the due's amounts and due
// date. A carried_forward due keeps its marker; only carry-forward sets it.
func DeriveStatus(due *FeeDue, now time.Time) Status {
	if due.IsCarriedForward() {
		return StatusCarriedForward
	}
	if !due.BalanceAmount.IsPositive() {
		return StatusPaid
	}
	if IsPastDue(due, now) {
		return StatusOverdue
	}
	if due.PaidAmount.IsPositive() {
		return StatusPartiallyPaid
	}
	return StatusPending
}

// IsPastDue is true when an open due's date lies before today.
func IsPastDue(due *FeeDue, now time.Time) bool {
	if due.DueDate == nil || !due.IsOpen() {
		return false
	}
	return clock.StartOfDay(*due.DueDate).Before(clock.StartOfDay(now))
}

// OverdueDaysAt counts days past the due date while a balance remains.
func OverdueDaysAt(due *FeeDue, now time.Time) int {
	if due.DueDate == nil || !due.IsOpen() {
		return 0
	}
	return clock.DaysPast(*due.DueDate, now)
}

// Refresh recomputes overdue days and status, reporting whether either
// changed.
func (d *FeeDue) Refresh(now time.Time) bool {
	days := OverdueDaysAt(d, now)
	status := string(DeriveStatus(d, now))
	changed := days != d.OverdueDays || status != d.Status
	d.OverdueDays = days
	d.Status = status
	return changed
}

// ApplyPayment settles up to amount against the due. Excess is dropped:
// paid never exceeds the original amount. It returns the amount actually
// allocated and whether the request was capped.
func (d *FeeDue) ApplyPayment(amount decimal.Decimal, now time.Time) (decimal.Decimal, bool) {
	oldPaid := d.PaidAmount
	newPaid := decimal.Min(d.OriginalAmount, oldPaid.Add(amount))
	if newPaid.LessThan(oldPaid) {
		newPaid = oldPaid
	}
	d.PaidAmount = newPaid
	d.BalanceAmount = d.OriginalAmount.Sub(newPaid)
	d.UpdatedAt = now
	d.Refresh(now)

	allocated := newPaid.Sub(oldPaid)
	return allocated, allocated.LessThan(amount)
}

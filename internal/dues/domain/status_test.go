package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func dueOn(t time.Time, original, paid int64) *FeeDue {
	o := decimal.NewFromInt(original)
	p := decimal.NewFromInt(paid)
	return &FeeDue{OriginalAmount: o, PaidAmount: p, BalanceAmount: o.Sub(p), DueDate: &t, Status: string(StatusPending)}
}

func TestDeriveStatus(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	tomorrow := testNow.AddDate(0, 0, 1)

	cases := []struct {
		name string
		due  *FeeDue
		want Status
	}{
		{name: "unpaid future", due: dueOn(tomorrow, 500, 0), want: StatusPending},
		{name: "partial future", due: dueOn(tomorrow, 500, 100), want: StatusPartiallyPaid},
		{name: "settled", due: dueOn(yesterday, 500, 500), want: StatusPaid},
		{name: "unpaid yesterday", due: dueOn(yesterday, 500, 0), want: StatusOverdue},
		{name: "partial yesterday", due: dueOn(yesterday, 500, 200), want: StatusOverdue},
		{name: "due today", due: dueOn(testNow, 500, 0), want: StatusPending},
		{name: "no due date", due: &FeeDue{OriginalAmount: decimal.NewFromInt(5), PaidAmount: decimal.Zero, BalanceAmount: decimal.NewFromInt(5)}, want: StatusPending},
	}
	for _, tc := range cases {
		if got := DeriveStatus(tc.due, testNow); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestDeriveStatusKeepsCarriedForward(t *testing.T) {
	due := dueOn(testNow.AddDate(0, 0, -40), 500, 500)
	due.Status = string(StatusCarriedForward)

	if got := DeriveStatus(due, testNow); got != StatusCarriedForward {
		t.Fatalf("expected carried_forward, got %s", got)
	}
	due.Refresh(testNow)
	if due.Status != string(StatusCarriedForward) {
		t.Fatalf("expected refresh to keep carried_forward, got %s", due.Status)
	}
}

func TestApplyPaymentCapsAtOriginal(t *testing.T) {
	// 1000 original, 400 paid, 600 open; paying 700 settles exactly 600.
	due := dueOn(testNow.AddDate(0, 0, 10), 1000, 400)

	allocated, capped := due.ApplyPayment(decimal.NewFromInt(700), testNow)
	if !capped {
		t.Fatalf("expected allocation to be capped")
	}
	if !allocated.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected 600 allocated, got %s", allocated)
	}
	if !due.PaidAmount.Equal(decimal.NewFromInt(1000)) || !due.BalanceAmount.IsZero() {
		t.Fatalf("expected paid 1000 balance 0, got %s/%s", due.PaidAmount, due.BalanceAmount)
	}
	if due.Status != string(StatusPaid) {
		t.Fatalf("expected paid, got %s", due.Status)
	}
}

func TestApplyPaymentKeepsBalanceInvariant(t *testing.T) {
	due := dueOn(testNow.AddDate(0, 0, -3), 900, 0)
	for _, amount := range []int64{100, 250, 1000, 5} {
		due.ApplyPayment(decimal.NewFromInt(amount), testNow)
		if !due.BalanceAmount.Equal(due.OriginalAmount.Sub(due.PaidAmount)) {
			t.Fatalf("balance invariant broken: %s != %s - %s", due.BalanceAmount, due.OriginalAmount, due.PaidAmount)
		}
		if due.BalanceAmount.IsNegative() {
			t.Fatalf("negative balance %s", due.BalanceAmount)
		}
	}
}

func TestRefreshCountsOverdueDays(t *testing.T) {
	due := dueOn(testNow.AddDate(0, 0, -12), 300, 0)
	if !due.Refresh(testNow) {
		t.Fatalf("expected refresh to report a change")
	}
	if due.OverdueDays != 12 || due.Status != string(StatusOverdue) {
		t.Fatalf("expected 12 days overdue, got %d %s", due.OverdueDays, due.Status)
	}
	if due.Refresh(testNow) {
		t.Fatalf("expected second refresh to be a no-op")
	}
}

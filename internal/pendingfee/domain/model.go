package domain

import (
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// DefaultFeeCategory labels structures without a category.
const DefaultFeeCategory = "General Fee"

type ItemStatus string

const (
	ItemUnpaid        ItemStatus = "unpaid"
	ItemPartiallyPaid ItemStatus = "partially_paid"
)

type CategoryStatus string

const (
	CategoryOverdue       CategoryStatus = "overdue"
	CategoryPartiallyPaid CategoryStatus = "partially_paid"
	CategoryPending       CategoryStatus = "pending"
)

// LineItem is what remains unpaid on one fee structure.
type LineItem struct {
	FeeStructureID snowflake.ID    `json:"fee_structure_id"`
	FeeCategory    string          `json:"fee_category"`
	Description    string          `json:"description,omitempty"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	OverdueDays    int             `json:"overdue_days"`
	Status         ItemStatus      `json:"status"`
}

func (i LineItem) IsOverdue() bool { return i.OverdueDays > 0 }

// PendingFees maps fee category to its line items in due-date order.
type PendingFees map[string][]LineItem

func (p PendingFees) Total() decimal.Decimal {
	total := decimal.Zero
	for _, items := range p {
		for _, item := range items {
			total = total.Add(item.BalanceAmount)
		}
	}
	return total
}

func (p PendingFees) ItemCount() int {
	n := 0
	for _, items := range p {
		n += len(items)
	}
	return n
}

type CategorySummary struct {
	FeeCategory    string          `json:"fee_category"`
	Items          []LineItem      `json:"items"`
	ItemCount      int             `json:"item_count"`
	TotalOriginal  decimal.Decimal `json:"total_original"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalBalance   decimal.Decimal `json:"total_balance"`
	LatestDueDate  *time.Time      `json:"latest_due_date,omitempty"`
	MaxOverdueDays int             `json:"max_overdue_days"`
	Status         CategoryStatus  `json:"status"`
}

type Breakdown struct {
	StudentID     snowflake.ID      `json:"student_id"`
	Grade         string            `json:"grade"`
	AcademicYear  string            `json:"academic_year"`
	Categories    []CategorySummary `json:"categories"`
	FeeTypesCount int               `json:"fee_types_count"`
	TotalOriginal decimal.Decimal   `json:"total_original"`
	TotalPaid     decimal.Decimal   `json:"total_paid"`
	TotalBalance  decimal.Decimal   `json:"total_balance"`
}

// Summarize folds each category into one summary, sorted by category.
func Summarize(pending PendingFees) []CategorySummary {
	out := make([]CategorySummary, 0, len(pending))
	for category, items := range pending {
		summary := CategorySummary{
			FeeCategory:   category,
			Items:         items,
			ItemCount:     len(items),
			TotalOriginal: decimal.Zero,
			TotalPaid:     decimal.Zero,
			TotalBalance:  decimal.Zero,
			Status:        CategoryPending,
		}
		anyOverdue, anyPartial := false, false
		for _, item := range items {
			summary.TotalOriginal = summary.TotalOriginal.Add(item.OriginalAmount)
			summary.TotalPaid = summary.TotalPaid.Add(item.PaidAmount)
			summary.TotalBalance = summary.TotalBalance.Add(item.BalanceAmount)
			if item.DueDate != nil && (summary.LatestDueDate == nil || item.DueDate.After(*summary.LatestDueDate)) {
				due := *item.DueDate
				summary.LatestDueDate = &due
			}
			if item.OverdueDays > summary.MaxOverdueDays {
				summary.MaxOverdueDays = item.OverdueDays
			}
			anyOverdue = anyOverdue || item.IsOverdue()
			anyPartial = anyPartial || item.PaidAmount.IsPositive()
		}
		switch {
		case anyOverdue:
			summary.Status = CategoryOverdue
		case anyPartial:
			summary.Status = CategoryPartiallyPaid
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FeeCategory < out[j].FeeCategory })
	return out
}

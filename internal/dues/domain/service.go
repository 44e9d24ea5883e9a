package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"gorm.io/gorm"
)

var (
	ErrDueNotFound          = feeerrors.New(feeerrors.ErrNotFound, "fee_due_not_found")
	ErrAllocationMismatch   = feeerrors.New(feeerrors.ErrValidation, "allocation_length_mismatch")
	ErrInvalidStatusFilter  = feeerrors.New(feeerrors.ErrValidation, "invalid_status_filter")
	ErrInvalidDueSoonWindow = feeerrors.New(feeerrors.ErrValidation, "invalid_due_soon_window")
)

// ApplyPaymentRequest allocates one payment across dues. DueIDs and Amounts
// are parallel.
type ApplyPaymentRequest struct {
	PaymentID snowflake.ID      `json:"payment_id" validate:"required"`
	DueIDs    []snowflake.ID    `json:"due_ids" validate:"required,min=1,dive,required"`
	Amounts   []decimal.Decimal `json:"amounts" validate:"required,min=1,dive,gt=0"`
	ActorID   string            `json:"actor_id"`
}

type ReportFilter struct {
	StudentID    snowflake.ID `form:"student_id"`
	BranchID     snowflake.ID `form:"branch_id"`
	Grade        string       `form:"grade"`
	FeeCategory  string       `form:"fee_category"`
	Status       Status       `form:"status"`
	AcademicYear string       `form:"academic_year"`
}

type CategoryGroup struct {
	FeeCategory   string          `json:"fee_category"`
	Dues          []FeeDue        `json:"dues"`
	Count         int             `json:"count"`
	TotalOriginal decimal.Decimal `json:"total_original"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

type Report struct {
	Categories    []CategoryGroup        `json:"categories"`
	DueCount      int                    `json:"due_count"`
	TotalOriginal decimal.Decimal        `json:"total_original"`
	TotalPaid     decimal.Decimal        `json:"total_paid"`
	TotalBalance  decimal.Decimal        `json:"total_balance"`
	Aging         map[Bucket]BucketTotal `json:"aging"`
	GeneratedAt   time.Time              `json:"generated_at"`
}

type Service interface {
	ApplyPaymentToDues(ctx context.Context, req ApplyPaymentRequest) error
	ApplyPaymentToDuesTx(ctx context.Context, tx *gorm.DB, req ApplyPaymentRequest) error

	GetStudentDues(ctx context.Context, studentID snowflake.ID, filter ReportFilter) (*Report, error)
	GetOverdueFees(ctx context.Context, filter ReportFilter) (*Report, error)
	GenerateDuesReport(ctx context.Context, filter ReportFilter) (*Report, error)

	// RefreshAging re-derives overdue days and status for every open due
	// and returns how many rows changed.
	RefreshAging(ctx context.Context) (int, error)
	// ListDueSoon returns open dues whose due date falls within the next
	// `within` days, today included.
	ListDueSoon(ctx context.Context, within int) ([]FeeDue, error)
}

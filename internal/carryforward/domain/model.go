package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	pendingdomain "github.com/smallbiznis/feeledger/internal/pendingfee/domain"
	"gorm.io/gorm"
)

var (
	ErrStudentNotFound       = feeerrors.New(feeerrors.ErrNotFound, "student_not_found")
	ErrAlreadyCarriedForward = feeerrors.New(feeerrors.ErrAlreadyCarriedForward, "fees_already_carried_forward")
)

// Request moves the departing grade/year balances onto the arriving
// grade/year.
type Request struct {
	StudentID snowflake.ID `json:"student_id" validate:"required"`
	FromGrade string       `json:"from_grade" validate:"required,grade"`
	ToGrade   string       `json:"to_grade" validate:"required,grade"`
	FromYear  string       `json:"from_year" validate:"required,academic_year"`
	ToYear    string       `json:"to_year" validate:"required,academic_year"`
	ActorID   string       `json:"actor_id"`
}

type CarriedFee struct {
	FeeDueID       snowflake.ID    `json:"fee_due_id"`
	FeeStructureID snowflake.ID    `json:"fee_structure_id"`
	FeeCategory    string          `json:"fee_category"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	OverdueDays    int             `json:"overdue_days"`
	InitialStatus  string          `json:"initial_status"`
}

type Result struct {
	Success       bool            `json:"success"`
	CarriedFees   []CarriedFee    `json:"carried_fees"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FeeTypesCount int             `json:"fee_types_count"`
}

// Summary previews a carry-forward without writing anything.
type Summary struct {
	StudentID             snowflake.ID             `json:"student_id"`
	FromGrade             string                   `json:"from_grade"`
	ToGrade               string                   `json:"to_grade"`
	FromYear              string                   `json:"from_year"`
	ToYear                string                   `json:"to_year"`
	Breakdown             *pendingdomain.Breakdown `json:"breakdown"`
	TotalAmount           decimal.Decimal          `json:"total_amount"`
	FeeTypesCount         int                      `json:"fee_types_count"`
	AlreadyCarriedForward bool                     `json:"already_carried_forward"`
}

type Service interface {
	CarryForwardFees(ctx context.Context, req Request) (*Result, error)
	// CarryForwardFeesTx runs inside the caller's transaction under a
	// savepoint; on error nothing it wrote survives but tx stays usable.
	CarryForwardFeesTx(ctx context.Context, tx *gorm.DB, req Request) (*Result, error)
	GetCarryForwardSummary(ctx context.Context, req Request) (*Summary, error)
}

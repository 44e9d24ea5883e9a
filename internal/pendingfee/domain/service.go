package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Request selects whose fees to inspect. Grade and AcademicYear default to
// the student's current placement.
type Request struct {
	StudentID    snowflake.ID `json:"student_id" validate:"required"`
	Grade        string       `json:"grade,omitempty" validate:"omitempty,grade"`
	AcademicYear string       `json:"academic_year,omitempty" validate:"omitempty,academic_year"`
}

type Service interface {
	// IdentifyPendingFees returns an empty result when the student does
	// not exist.
	IdentifyPendingFees(ctx context.Context, req Request) (PendingFees, error)
	IdentifyPendingFeesTx(ctx context.Context, tx *gorm.DB, req Request) (PendingFees, error)
	GetPendingFeesBreakdown(ctx context.Context, req Request) (*Breakdown, error)
	GetPendingFeesBreakdownTx(ctx context.Context, tx *gorm.DB, req Request) (*Breakdown, error)
}

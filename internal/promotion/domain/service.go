package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Outcome string

const (
	ResultPromoted Outcome = "promoted"
	ResultSkipped  Outcome = "skipped"
	ResultFailed   Outcome = "failed"
)

// PromoteRequest moves a batch of students. FromAcademicYear must match
// each student's recorded year; a mismatch fails that student.
type PromoteRequest struct {
	StudentIDs       []snowflake.ID `json:"student_ids" validate:"required,min=1,dive,required"`
	FromGrade        string         `json:"from_grade" validate:"required,grade"`
	ToGrade          string         `json:"to_grade" validate:"required,grade"`
	FromAcademicYear string         `json:"from_academic_year" validate:"required,academic_year"`
	ToAcademicYear   string         `json:"to_academic_year" validate:"required,academic_year"`
	ActorID          string         `json:"actor_id"`
	CheckEligibility bool           `json:"check_eligibility"`
	Notes            string         `json:"notes"`
}

type StudentResult struct {
	StudentID         snowflake.ID    `json:"student_id"`
	Outcome           Outcome         `json:"outcome"`
	Reason            string          `json:"reason,omitempty"`
	CarriedAmount     decimal.Decimal `json:"carried_amount"`
	FeeTypesCount     int             `json:"fee_types_count"`
	PromotionRecordID *snowflake.ID   `json:"promotion_record_id,omitempty"`
}

type PromoteResult struct {
	Results       []StudentResult `json:"results"`
	PromotedCount int             `json:"promoted_count"`
	SkippedCount  int             `json:"skipped_count"`
	FailedCount   int             `json:"failed_count"`
	TotalCarried  decimal.Decimal `json:"total_carried"`
}

type Service interface {
	PromoteStudentsWithFeeHandling(ctx context.Context, req PromoteRequest) (*PromoteResult, error)
	GetPromotionHistory(ctx context.Context, studentID snowflake.ID) ([]PromotionRecord, error)
}

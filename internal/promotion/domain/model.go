package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	"gorm.io/gorm"
)

type FeeCarryForwardStatus string

const (
	FeeCarriedForward FeeCarryForwardStatus = "carried_forward"
	FeeNone           FeeCarryForwardStatus = "none"
)

// PromotionRecord is written once per executed promotion.
type PromotionRecord struct {
	ID                    snowflake.ID    `gorm:"primaryKey"`
	StudentID             snowflake.ID    `gorm:"not null;index"`
	FromAcademicYear      string          `gorm:"type:text;not null"`
	ToAcademicYear        string          `gorm:"type:text;not null"`
	FromGrade             string          `gorm:"type:text;not null"`
	ToGrade               string          `gorm:"type:text;not null"`
	Outcome               string          `gorm:"type:text;not null"`
	ApprovedBy            *string         `gorm:"type:text"`
	FeeCarryForwardStatus string          `gorm:"type:text;not null"`
	FeeCarryForwardAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Notes                 *string         `gorm:"type:text"`
	CreatedAt             time.Time       `gorm:"not null;index"`
}

func (PromotionRecord) TableName() string { return "promotion_records" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PromotionRecord) error
	ListByStudent(ctx context.Context, db *gorm.DB, studentID snowflake.ID) ([]PromotionRecord, error)
}

// EligibilityPolicy decides whether a student may be promoted. A false
// verdict carries a human-readable reason.
type EligibilityPolicy interface {
	Evaluate(ctx context.Context, student *schooldomain.Student) (bool, string, error)
}

// AlwaysEligible is the policy used until the academic rules service
// provides one.
type AlwaysEligible struct{}

func (AlwaysEligible) Evaluate(context.Context, *schooldomain.Student) (bool, string, error) {
	return true, "", nil
}

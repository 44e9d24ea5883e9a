package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Student is owned by the student directory; the fee engine reads it and
// only writes placement (grade, year, section) during promotion.
type Student struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	UserID       *snowflake.ID `gorm:"index"`
	BranchID     snowflake.ID  `gorm:"not null;index"`
	Name         string        `gorm:"type:text;not null"`
	Grade        string        `gorm:"type:text;not null"`
	AcademicYear string        `gorm:"type:text;not null"`
	Section      *string       `gorm:"type:text"`
	IsActive     bool          `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Student) TableName() string { return "students" }

// CanonicalGrade normalizes the stored label; an unparseable label yields "".
func (s *Student) CanonicalGrade() Grade {
	g, _ := ParseGrade(s.Grade)
	return g
}

type FeeStructure struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	BranchID     snowflake.ID    `gorm:"not null;index"`
	Grade        string          `gorm:"type:text;not null"`
	FeeCategory  *string         `gorm:"type:text"`
	AcademicYear string          `gorm:"type:text;not null;index"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate      *time.Time      `gorm:"type:date"`
	Description  *string         `gorm:"type:text"`
	IsActive     bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
}

func (FeeStructure) TableName() string { return "fee_structures" }

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPartial   PaymentStatus = "partial"
	PaymentPending   PaymentStatus = "pending"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type FeePayment struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	StudentID      snowflake.ID    `gorm:"not null;index:idx_fee_payments_student_structure"`
	FeeStructureID snowflake.ID    `gorm:"not null;index:idx_fee_payments_student_structure"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Status         string          `gorm:"type:text;not null"`
	PaidAt         *time.Time
	CreatedAt      time.Time
}

func (FeePayment) TableName() string { return "fee_payments" }

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lookups return (nil, nil) when a singular record does not exist; callers
// decide whether absence is an error.

type StudentDirectory interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Student, error)
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Student, error)
	// UpdatePlacement moves the student and clears the grade-scoped section.
	UpdatePlacement(ctx context.Context, db *gorm.DB, id snowflake.ID, grade Grade, academicYear string) error
}

type FeeStructureCatalog interface {
	ListActive(ctx context.Context, db *gorm.DB, branchID snowflake.ID, grade Grade, academicYear string) ([]FeeStructure, error)
}

type PaymentLookup interface {
	// SettledAmount sums completed and partial payments.
	SettledAmount(ctx context.Context, db *gorm.DB, studentID, feeStructureID snowflake.ID) (decimal.Decimal, error)
	HasCompletedPayment(ctx context.Context, db *gorm.DB, studentID, feeStructureID snowflake.ID) (bool, error)
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	StudentID    snowflake.ID
	BranchID     snowflake.ID
	Grade        string
	FeeCategory  string
	AcademicYear string
	OpenOnly     bool
	DueFrom      *time.Time
	DueBefore    *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, due *FeeDue) error
	// FindByIDForUpdate row-locks the due; (nil, nil) when absent.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeDue, error)
	// UpdateState persists paid, balance, overdue days and status.
	UpdateState(ctx context.Context, db *gorm.DB, due *FeeDue) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]FeeDue, error)
	// ListOpenBatch returns up to limit open dues with id > afterID, locking
	// them and skipping rows another sweep holds.
	ListOpenBatch(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]FeeDue, error)
	FindRecentCarryForward(ctx context.Context, db *gorm.DB, studentID snowflake.ID, academicYear, originalGrade string, since time.Time) (*FeeDue, error)
	CarriedForwardStructureIDs(ctx context.Context, db *gorm.DB, studentID snowflake.ID, academicYear string) ([]snowflake.ID, error)
}

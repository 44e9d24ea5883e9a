package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPartiallyPaid  Status = "partially_paid"
	StatusPaid           Status = "paid"
	StatusOverdue        Status = "overdue"
	StatusCarriedForward Status = "carried_forward"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCarriedForward:
		return true
	}
	return false
}

// FeeDue is a student's obligation for one fee category in one academic
// year. BalanceAmount always equals OriginalAmount - PaidAmount.
//
// Only one carried_forward due may exist per (student, year, original
// grade, structure); the partial unique index enforces it even when two
// promotions race past the read guard.
type FeeDue struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	StudentID          snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_fee_dues_carry_forward,priority:1,where:status = 'carried_forward'"`
	BranchID           snowflake.ID      `gorm:"not null;index"`
	FeeStructureID     *snowflake.ID     `gorm:"uniqueIndex:ux_fee_dues_carry_forward,priority:4"`
	AcademicYear       string            `gorm:"type:text;not null;uniqueIndex:ux_fee_dues_carry_forward,priority:2"`
	OriginalGrade      string            `gorm:"type:text;not null;uniqueIndex:ux_fee_dues_carry_forward,priority:3"`
	CurrentGrade       string            `gorm:"type:text;not null"`
	OriginalAmount     decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	PaidAmount         decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	BalanceAmount      decimal.Decimal   `gorm:"type:numeric(12,2);not null"`
	DueDate            *time.Time        `gorm:"type:date;index"`
	OverdueDays        int               `gorm:"not null;default:0"`
	Status             string            `gorm:"type:text;not null;index"`
	FeeCategory        string            `gorm:"type:text;not null"`
	CarryForwardDate   *time.Time        `gorm:"index"`
	CarryForwardReason *string           `gorm:"type:text"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt          time.Time         `gorm:"not null"`
	UpdatedAt          time.Time         `gorm:"not null"`
	DeletedAt          gorm.DeletedAt    `gorm:"index"`
}

func (FeeDue) TableName() string { return "fee_dues" }

func (d *FeeDue) IsCarriedForward() bool {
	return Status(d.Status) == StatusCarriedForward
}

// IsOpen reports whether anything remains to be paid.
func (d *FeeDue) IsOpen() bool {
	return d.BalanceAmount.IsPositive()
}

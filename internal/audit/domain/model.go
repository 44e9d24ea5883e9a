package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Action identifies the kind of balance-affecting change being recorded.
type Action string

const (
	ActionPayment      Action = "payment"
	ActionRefund       Action = "refund"
	ActionDiscount     Action = "discount"
	ActionCarryForward Action = "carry_forward"
	ActionWaiver       Action = "waiver"
	ActionAdjustment   Action = "adjustment"
)

func (a Action) Valid() bool {
	switch a {
	case ActionPayment, ActionRefund, ActionDiscount, ActionCarryForward, ActionWaiver, ActionAdjustment:
		return true
	}
	return false
}

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// AuditLog is an immutable fact about one balance-affecting action.
type AuditLog struct {
	ID           snowflake.ID      `gorm:"primaryKey"`
	Action       string            `gorm:"type:text;not null;index"`
	StudentID    snowflake.ID      `gorm:"not null;index"`
	PaymentID    *snowflake.ID     `gorm:"index"`
	FeeDueID     *snowflake.ID     `gorm:"index"`
	AmountBefore decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	AmountAfter  decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	ActionAmount decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"`
	Reason       string            `gorm:"type:text;not null;default:''"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	ActorType    string            `gorm:"type:text;not null"`
	ActorID      *string           `gorm:"type:text"`
	IPAddress    *string           `gorm:"type:text"`
	UserAgent    *string           `gorm:"type:text"`
	SessionID    *string           `gorm:"type:text"`
	Endpoint     *string           `gorm:"type:text"`
	RequestID    *string           `gorm:"type:text"`
	CreatedAt    time.Time         `gorm:"not null;index"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "fee_audit_logs" }

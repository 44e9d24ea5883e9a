package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var (
	ErrInvalidAction    = feeerrors.New(feeerrors.ErrValidation, "invalid_audit_action")
	ErrInvalidStudentID = feeerrors.New(feeerrors.ErrValidation, "invalid_student_id")
	ErrInvalidTimeRange = feeerrors.New(feeerrors.ErrValidation, "invalid_time_range")
	ErrAuditUnavailable = errors.New("audit_unavailable")
)

// Entry is the caller-supplied part of an audit record. Request context
// (ip, agent, session, endpoint, request id) is taken from ctx.
type Entry struct {
	Action       Action
	StudentID    snowflake.ID
	PaymentID    *snowflake.ID
	FeeDueID     *snowflake.ID
	AmountBefore decimal.Decimal
	AmountAfter  decimal.Decimal
	ActionAmount decimal.Decimal
	Reason       string
	Metadata     map[string]any

	// ActorID overrides the actor carried by ctx.
	ActorID string
}

type ListRequest struct {
	StudentID snowflake.ID
	Action    Action
	StartAt   *time.Time
	EndAt     *time.Time
	Limit     int
}

type Service interface {
	// Log persists one entry through db, which may be a transaction. The
	// write runs in a nested transaction so a failure leaves db usable.
	Log(ctx context.Context, db *gorm.DB, entry Entry) error
	GetStudentAuditLogs(ctx context.Context, req ListRequest) ([]*AuditLog, error)
	GetAuditLogsByAction(ctx context.Context, req ListRequest) ([]*AuditLog, error)
}

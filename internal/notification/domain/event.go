package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Category string

const (
	CategoryFeePromotion Category = "fee_promotion"
	CategoryFeeReminder  Category = "fee_reminder"
	CategoryFeeOverdue   Category = "fee_overdue"
)

var (
	ErrMissingRecipient = errors.New("missing_recipient")
	ErrMissingTitle     = errors.New("missing_title")
	ErrInvalidCategory  = errors.New("invalid_category")
)

// Event is a request to tell a student (or their guardian account) about
// their fees. Delivery channels are outside this service.
type Event struct {
	RecipientStudentID snowflake.ID
	RecipientUserID    *snowflake.ID
	Title              string
	Message            string
	Severity           Severity
	Category           Category
	ActionURL          string
	Metadata           map[string]any
	// DedupeKey makes repeated requests for the same fact a no-op.
	DedupeKey string
}

type Sink interface {
	Notify(ctx context.Context, event Event) error
}

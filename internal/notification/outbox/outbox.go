package outbox

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/notification/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one pending hand-off in notification_outbox. A delivery relay
// outside this service reads unpublished rows and flips Published.
type Record struct {
	ID                 snowflake.ID      `gorm:"primaryKey"`
	RecipientStudentID snowflake.ID      `gorm:"not null;index"`
	RecipientUserID    *snowflake.ID     `gorm:"index"`
	Title              string            `gorm:"type:text;not null"`
	Message            string            `gorm:"type:text;not null"`
	Severity           string            `gorm:"type:text;not null"`
	Category           string            `gorm:"type:text;not null;index"`
	ActionURL          *string           `gorm:"type:text"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	DedupeKey          *string           `gorm:"type:text;uniqueIndex"`
	Published          bool              `gorm:"not null;default:false;index"`
	CreatedAt          time.Time         `gorm:"not null"`
}

func (Record) TableName() string { return "notification_outbox" }

// Outbox implements domain.Sink by writing to the notification_outbox table.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{db: db, genID: genID, clock: clk}
}

// Provide exposes the outbox as the notification sink.
func Provide(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) domain.Sink {
	return NewOutbox(db, genID, clk)
}

// Notify stores an event using the default database connection.
func (o *Outbox) Notify(ctx context.Context, event domain.Event) error {
	return o.publish(ctx, o.db, event)
}

// NotifyTx stores an event using an existing transaction.
func (o *Outbox) NotifyTx(ctx context.Context, tx *gorm.DB, event domain.Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event domain.Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	if event.RecipientStudentID == 0 {
		return domain.ErrMissingRecipient
	}
	title := strings.TrimSpace(event.Title)
	if title == "" {
		return domain.ErrMissingTitle
	}
	switch event.Category {
	case domain.CategoryFeePromotion, domain.CategoryFeeReminder, domain.CategoryFeeOverdue:
	default:
		return domain.ErrInvalidCategory
	}
	severity := event.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}

	metadata := datatypes.JSONMap{}
	for key, value := range event.Metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		metadata[key] = value
	}

	now := time.Now().UTC()
	if o.clock != nil {
		now = o.clock.Now()
	}
	record := &Record{
		ID:                 o.genID.Generate(),
		RecipientStudentID: event.RecipientStudentID,
		RecipientUserID:    event.RecipientUserID,
		Title:              title,
		Message:            strings.TrimSpace(event.Message),
		Severity:           string(severity),
		Category:           string(event.Category),
		ActionURL:          optional(event.ActionURL),
		Metadata:           metadata,
		DedupeKey:          optional(event.DedupeKey),
		CreatedAt:          now,
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedupe_key"}}, DoNothing: true}).
		Create(record).Error
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

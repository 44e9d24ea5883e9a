package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	StudentID snowflake.ID
	Action    Action
	StartAt   *time.Time
	EndAt     *time.Time
	Limit     int
}

// Repository is append-only: there is no update or delete.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

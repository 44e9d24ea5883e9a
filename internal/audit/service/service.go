package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/feeledger/internal/audit/domain"
	"github.com/smallbiznis/feeledger/internal/auditcontext"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Log(ctx context.Context, db *gorm.DB, entry domain.Entry) error {
	if s == nil || s.repo == nil || s.genID == nil {
		return domain.ErrAuditUnavailable
	}
	if !entry.Action.Valid() {
		return domain.ErrInvalidAction
	}
	if entry.StudentID == 0 {
		return domain.ErrInvalidStudentID
	}
	if db == nil {
		db = s.db
	}

	reqCtx := auditcontext.FromContext(ctx)
	actorType := string(domain.ActorTypeSystem)
	var actorID *string
	if id := strings.TrimSpace(entry.ActorID); id != "" {
		actorType = string(domain.ActorTypeUser)
		actorID = &id
	} else if reqCtx.ActorID != "" {
		actorType = reqCtx.ActorType
		if actorType == "" {
			actorType = string(domain.ActorTypeUser)
		}
		actorID = stringPtr(reqCtx.ActorID)
	}

	metadata := datatypes.JSONMap{}
	for key, value := range logger.MaskJSON(entry.Metadata) {
		if strings.TrimSpace(key) == "" {
			continue
		}
		metadata[key] = value
	}

	record := &domain.AuditLog{
		ID:           s.genID.Generate(),
		Action:       string(entry.Action),
		StudentID:    entry.StudentID,
		PaymentID:    entry.PaymentID,
		FeeDueID:     entry.FeeDueID,
		AmountBefore: entry.AmountBefore,
		AmountAfter:  entry.AmountAfter,
		ActionAmount: entry.ActionAmount,
		Reason:       strings.TrimSpace(entry.Reason),
		Metadata:     metadata,
		ActorType:    actorType,
		ActorID:      actorID,
		IPAddress:    stringPtr(reqCtx.IPAddress),
		UserAgent:    stringPtr(reqCtx.UserAgent),
		SessionID:    stringPtr(reqCtx.SessionID),
		Endpoint:     stringPtr(reqCtx.Endpoint),
		RequestID:    stringPtr(reqCtx.RequestID),
		CreatedAt:    s.now(),
	}

	// Nested: a savepoint when db is already a transaction, so a failed
	// insert does not poison the caller's transaction.
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, record)
	})
}

func (s *Service) GetStudentAuditLogs(ctx context.Context, req domain.ListRequest) ([]*domain.AuditLog, error) {
	if req.StudentID == 0 {
		return nil, domain.ErrInvalidStudentID
	}
	return s.list(ctx, req)
}

func (s *Service) GetAuditLogsByAction(ctx context.Context, req domain.ListRequest) ([]*domain.AuditLog, error) {
	if !req.Action.Valid() {
		return nil, domain.ErrInvalidAction
	}
	return s.list(ctx, req)
}

func (s *Service) list(ctx context.Context, req domain.ListRequest) ([]*domain.AuditLog, error) {
	if req.StartAt != nil && req.EndAt != nil && req.EndAt.Before(*req.StartAt) {
		return nil, domain.ErrInvalidTimeRange
	}
	limit := req.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		StudentID: req.StudentID,
		Action:    req.Action,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		Limit:     limit,
	})
	if err != nil {
		s.log.Error("failed to list audit logs", zap.Error(err))
		return nil, err
	}
	return items, nil
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func stringPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

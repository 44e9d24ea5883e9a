package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/feeledger/internal/audit/domain"
	"github.com/smallbiznis/feeledger/internal/carryforward/domain"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"github.com/smallbiznis/feeledger/internal/observability/tracing"
	pendingdomain "github.com/smallbiznis/feeledger/internal/pendingfee/domain"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	"github.com/smallbiznis/feeledger/internal/validation"
	"github.com/smallbiznis/feeledger/pkg/db"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultGuardWindow = 24 * time.Hour

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Students   schooldomain.StudentDirectory
	PendingSvc pendingdomain.Service
	DuesRepo   duesdomain.Repository
	AuditSvc   auditdomain.Service
	Clock      clock.Clock
	Cfg        config.Config
	Metrics    *metrics.FeeMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	students    schooldomain.StudentDirectory
	pendingSvc  pendingdomain.Service
	duesRepo    duesdomain.Repository
	auditSvc    auditdomain.Service
	clock       clock.Clock
	metrics     *metrics.FeeMetrics
	guardWindow time.Duration
}

func NewService(p Params) domain.Service {
	window := p.Cfg.Fees.CarryForwardWindow
	if window <= 0 {
		window = defaultGuardWindow
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("carryforward.service"),
		genID:       p.GenID,
		students:    p.Students,
		pendingSvc:  p.PendingSvc,
		duesRepo:    p.DuesRepo,
		auditSvc:    p.AuditSvc,
		clock:       p.Clock,
		metrics:     p.Metrics,
		guardWindow: window,
	}
}

type normalized struct {
	domain.Request
	fromGrade schooldomain.Grade
	toGrade   schooldomain.Grade
}

func normalize(req domain.Request) (normalized, error) {
	if err := validation.Struct(req); err != nil {
		return normalized{}, err
	}
	from, err := schooldomain.ParseGrade(req.FromGrade)
	if err != nil {
		return normalized{}, err
	}
	to, err := schooldomain.ParseGrade(req.ToGrade)
	if err != nil {
		return normalized{}, err
	}
	return normalized{Request: req, fromGrade: from, toGrade: to}, nil
}

func (s *Service) CarryForwardFees(ctx context.Context, req domain.Request) (*domain.Result, error) {
	n, err := normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "carryforward.CarryForwardFees", spanAttributes(n)...)
	var result *domain.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.carryForward(ctx, tx, n)
		return err
	})
	err = feeerrors.Wrap(err)
	tracing.EndSpan(span, err)
	s.observe(n, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) CarryForwardFeesTx(ctx context.Context, tx *gorm.DB, req domain.Request) (*domain.Result, error) {
	if tx == nil {
		return nil, errors.New("missing_transaction")
	}
	n, err := normalize(req)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "carryforward.CarryForwardFeesTx", spanAttributes(n)...)
	var result *domain.Result
	// Savepoint: a unique violation on postgres aborts the enclosing
	// transaction unless rolled back to here.
	err = tx.Transaction(func(sp *gorm.DB) error {
		var err error
		result, err = s.carryForward(ctx, sp, n)
		return err
	})
	err = feeerrors.Wrap(err)
	tracing.EndSpan(span, err)
	s.observe(n, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) carryForward(ctx context.Context, tx *gorm.DB, n normalized) (*domain.Result, error) {
	student, err := s.students.FindByID(ctx, tx, n.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, domain.ErrStudentNotFound
	}

	now := s.clock.Now()
	existing, err := s.duesRepo.FindRecentCarryForward(ctx, tx, student.ID, n.FromYear, n.fromGrade.String(), now.Add(-s.guardWindow))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyCarriedForward
	}

	pending, err := s.pendingSvc.IdentifyPendingFeesTx(ctx, tx, pendingdomain.Request{
		StudentID:    student.ID,
		Grade:        n.fromGrade.String(),
		AcademicYear: n.FromYear,
	})
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(pending))
	for category := range pending {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	reason := fmt.Sprintf("Carried forward from %s to %s", n.fromGrade, n.toGrade)
	result := &domain.Result{
		Success:       true,
		CarriedFees:   []domain.CarriedFee{},
		TotalAmount:   decimal.Zero,
		FeeTypesCount: len(pending),
	}
	created := make([]*duesdomain.FeeDue, 0, pending.ItemCount())

	for _, category := range categories {
		for _, item := range pending[category] {
			due := s.newCarriedDue(student, n, item, reason, now)
			if err := s.duesRepo.Insert(ctx, tx, due); err != nil {
				if db.IsDuplicateKey(err) {
					return nil, domain.ErrAlreadyCarriedForward
				}
				return nil, err
			}
			created = append(created, due)
			result.TotalAmount = result.TotalAmount.Add(due.BalanceAmount)
			result.CarriedFees = append(result.CarriedFees, domain.CarriedFee{
				FeeDueID:       due.ID,
				FeeStructureID: item.FeeStructureID,
				FeeCategory:    due.FeeCategory,
				OriginalAmount: due.OriginalAmount,
				PaidAmount:     due.PaidAmount,
				BalanceAmount:  due.BalanceAmount,
				DueDate:        due.DueDate,
				OverdueDays:    due.OverdueDays,
				InitialStatus:  initialStatus(item),
			})
		}
	}

	for _, due := range created {
		dueRef := due.ID
		s.appendAudit(ctx, tx, auditdomain.Entry{
			Action:       auditdomain.ActionCarryForward,
			StudentID:    due.StudentID,
			FeeDueID:     &dueRef,
			AmountBefore: decimal.Zero,
			AmountAfter:  due.BalanceAmount,
			ActionAmount: due.BalanceAmount,
			Reason:       reason,
			Metadata: map[string]any{
				"fee_category": due.FeeCategory,
				"from_grade":   n.fromGrade.String(),
				"to_grade":     n.toGrade.String(),
				"from_year":    n.FromYear,
				"to_year":      n.ToYear,
			},
			ActorID: n.ActorID,
		})
	}

	s.log.Info("fees carried forward",
		zap.String("student_id", student.ID.String()),
		zap.String("from_grade", n.fromGrade.String()),
		zap.String("to_grade", n.toGrade.String()),
		zap.String("from_year", n.FromYear),
		zap.Int("dues", len(created)),
		zap.String("total_amount", result.TotalAmount.String()),
	)
	return result, nil
}

func (s *Service) newCarriedDue(student *schooldomain.Student, n normalized, item pendingdomain.LineItem, reason string, now time.Time) *duesdomain.FeeDue {
	structureID := item.FeeStructureID
	return &duesdomain.FeeDue{
		ID:                 s.genID.Generate(),
		StudentID:          student.ID,
		BranchID:           student.BranchID,
		FeeStructureID:     &structureID,
		AcademicYear:       n.FromYear,
		OriginalGrade:      n.fromGrade.String(),
		CurrentGrade:       n.toGrade.String(),
		OriginalAmount:     item.OriginalAmount,
		PaidAmount:         item.PaidAmount,
		BalanceAmount:      item.OriginalAmount.Sub(item.PaidAmount),
		DueDate:            item.DueDate,
		OverdueDays:        item.OverdueDays,
		Status:             string(duesdomain.StatusCarriedForward),
		FeeCategory:        item.FeeCategory,
		CarryForwardDate:   &now,
		CarryForwardReason: &reason,
		Metadata: datatypes.JSONMap{
			"from_grade":       n.fromGrade.String(),
			"to_grade":         n.toGrade.String(),
			"from_year":        n.FromYear,
			"to_year":          n.ToYear,
			"initial_status":   initialStatus(item),
			"fee_structure_id": item.FeeStructureID.String(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// initialStatus is the status the balance had before it was wrapped.
func initialStatus(item pendingdomain.LineItem) string {
	switch {
	case item.IsOverdue():
		return string(duesdomain.StatusOverdue)
	case item.Status == pendingdomain.ItemPartiallyPaid:
		return string(duesdomain.StatusPartiallyPaid)
	default:
		return string(duesdomain.StatusPending)
	}
}

func (s *Service) appendAudit(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Log(ctx, tx, entry); err != nil {
		s.log.Warn("failed to append audit log",
			zap.String("action", string(entry.Action)),
			zap.String("student_id", entry.StudentID.String()),
			zap.Error(err),
		)
		s.metrics.IncAuditAppendFailure(string(entry.Action))
	}
}

func (s *Service) observe(n normalized, result *domain.Result, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveCarryForward("success", result.TotalAmount)
	case errors.Is(err, feeerrors.ErrAlreadyCarriedForward):
		s.metrics.ObserveCarryForward("duplicate", decimal.Zero)
		s.log.Info("carry-forward already applied",
			zap.String("student_id", n.StudentID.String()),
			zap.String("from_year", n.FromYear),
		)
	default:
		s.metrics.ObserveCarryForward("failed", decimal.Zero)
	}
}

func (s *Service) GetCarryForwardSummary(ctx context.Context, req domain.Request) (*domain.Summary, error) {
	n, err := normalize(req)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, s.db, n.StudentID)
	if err != nil {
		return nil, feeerrors.Wrap(err)
	}
	if student == nil {
		return nil, domain.ErrStudentNotFound
	}

	breakdown, err := s.pendingSvc.GetPendingFeesBreakdown(ctx, pendingdomain.Request{
		StudentID:    student.ID,
		Grade:        n.fromGrade.String(),
		AcademicYear: n.FromYear,
	})
	if err != nil {
		return nil, err
	}
	existing, err := s.duesRepo.FindRecentCarryForward(ctx, s.db, student.ID, n.FromYear, n.fromGrade.String(), time.Time{})
	if err != nil {
		return nil, feeerrors.Wrap(err)
	}

	return &domain.Summary{
		StudentID:             student.ID,
		FromGrade:             n.fromGrade.String(),
		ToGrade:               n.toGrade.String(),
		FromYear:              n.FromYear,
		ToYear:                n.ToYear,
		Breakdown:             breakdown,
		TotalAmount:           breakdown.TotalBalance,
		FeeTypesCount:         breakdown.FeeTypesCount,
		AlreadyCarriedForward: existing != nil,
	}, nil
}

func spanAttributes(n normalized) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("student_id", n.StudentID.String()),
		attribute.String("from_grade", n.fromGrade.String()),
		attribute.String("to_grade", n.toGrade.String()),
		attribute.String("from_year", n.FromYear),
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/feeledger/internal/audit/domain"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	"github.com/smallbiznis/feeledger/internal/dues/domain"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	"github.com/smallbiznis/feeledger/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultAgingBatchSize = 200

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	AuditSvc auditdomain.Service
	Clock    clock.Clock
	Cfg      config.Config
	Metrics  *metrics.FeeMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	auditSvc  auditdomain.Service
	clock     clock.Clock
	metrics   *metrics.FeeMetrics
	batchSize int
}

func NewService(p Params) domain.Service {
	batchSize := p.Cfg.Scheduler.BatchSize
	if batchSize <= 0 {
		batchSize = defaultAgingBatchSize
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("dues.service"),
		repo:      p.Repo,
		auditSvc:  p.AuditSvc,
		clock:     p.Clock,
		metrics:   p.Metrics,
		batchSize: batchSize,
	}
}

func (s *Service) ApplyPaymentToDues(ctx context.Context, req domain.ApplyPaymentRequest) error {
	if err := validateAllocation(req); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyPayment(ctx, tx, req)
	})
	return feeerrors.Wrap(err)
}

// ApplyPaymentToDuesTx allocates inside the caller's transaction, e.g. when
// the payment row itself is written in the same unit of work.
func (s *Service) ApplyPaymentToDuesTx(ctx context.Context, tx *gorm.DB, req domain.ApplyPaymentRequest) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	if err := validateAllocation(req); err != nil {
		return err
	}
	return s.applyPayment(ctx, tx, req)
}

func validateAllocation(req domain.ApplyPaymentRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if len(req.DueIDs) != len(req.Amounts) {
		return domain.ErrAllocationMismatch
	}
	return nil
}

func (s *Service) applyPayment(ctx context.Context, tx *gorm.DB, req domain.ApplyPaymentRequest) error {
	now := s.clock.Now()
	paymentID := req.PaymentID

	for i, dueID := range req.DueIDs {
		due, err := s.repo.FindByIDForUpdate(ctx, tx, dueID)
		if err != nil {
			return err
		}
		if due == nil {
			return domain.ErrDueNotFound
		}

		before := due.BalanceAmount
		allocated, capped := due.ApplyPayment(req.Amounts[i], now)
		if err := s.repo.UpdateState(ctx, tx, due); err != nil {
			return err
		}
		s.metrics.IncPaymentAllocation(capped)
		if capped {
			s.log.Info("payment allocation capped at outstanding balance",
				zap.String("fee_due_id", due.ID.String()),
				zap.String("requested", req.Amounts[i].String()),
				zap.String("allocated", allocated.String()),
			)
		}

		dueRef := due.ID
		s.appendAudit(ctx, tx, auditdomain.Entry{
			Action:       auditdomain.ActionPayment,
			StudentID:    due.StudentID,
			PaymentID:    &paymentID,
			FeeDueID:     &dueRef,
			AmountBefore: before,
			AmountAfter:  due.BalanceAmount,
			ActionAmount: allocated,
			Reason:       "Payment allocated to fee due",
			Metadata: map[string]any{
				"requested_amount": req.Amounts[i].String(),
				"fee_category":     due.FeeCategory,
				"status":           due.Status,
			},
			ActorID: req.ActorID,
		})
	}
	return nil
}

// appendAudit never fails the caller: a lost audit entry is logged and
// counted for external monitoring.
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

func (s *Service) GetStudentDues(ctx context.Context, studentID snowflake.ID, filter domain.ReportFilter) (*domain.Report, error) {
	if studentID == 0 {
		return nil, feeerrors.New(feeerrors.ErrValidation, "invalid_student_id")
	}
	filter.StudentID = studentID
	return s.report(ctx, filter, nil)
}

func (s *Service) GetOverdueFees(ctx context.Context, filter domain.ReportFilter) (*domain.Report, error) {
	now := s.clock.Now()
	today := clock.StartOfDay(now)
	return s.report(ctx, filter, &domain.ListFilter{OpenOnly: true, DueBefore: &today})
}

func (s *Service) GenerateDuesReport(ctx context.Context, filter domain.ReportFilter) (*domain.Report, error) {
	return s.report(ctx, filter, nil)
}

func (s *Service) report(ctx context.Context, filter domain.ReportFilter, base *domain.ListFilter) (*domain.Report, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatusFilter
	}
	listFilter := domain.ListFilter{}
	if base != nil {
		listFilter = *base
	}
	listFilter.StudentID = filter.StudentID
	listFilter.BranchID = filter.BranchID
	listFilter.FeeCategory = strings.TrimSpace(filter.FeeCategory)
	listFilter.AcademicYear = strings.TrimSpace(filter.AcademicYear)
	if raw := strings.TrimSpace(filter.Grade); raw != "" {
		grade, err := schooldomain.ParseGrade(raw)
		if err != nil {
			return nil, err
		}
		listFilter.Grade = grade.String()
	}

	items, err := s.repo.List(ctx, s.db, listFilter)
	if err != nil {
		return nil, feeerrors.Wrap(err)
	}

	// Stored status can lag the calendar until the next sweep; reports
	// derive it in memory without writing back.
	now := s.clock.Now()
	selected := make([]domain.FeeDue, 0, len(items))
	for i := range items {
		items[i].Refresh(now)
		if filter.Status != "" && domain.Status(items[i].Status) != filter.Status {
			continue
		}
		selected = append(selected, items[i])
	}
	return buildReport(selected, now), nil
}

func buildReport(items []domain.FeeDue, now time.Time) *domain.Report {
	groups := map[string]*domain.CategoryGroup{}
	report := &domain.Report{
		TotalOriginal: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalBalance:  decimal.Zero,
		GeneratedAt:   now,
	}
	for _, due := range items {
		group, ok := groups[due.FeeCategory]
		if !ok {
			group = &domain.CategoryGroup{
				FeeCategory:   due.FeeCategory,
				TotalOriginal: decimal.Zero,
				TotalPaid:     decimal.Zero,
				TotalBalance:  decimal.Zero,
			}
			groups[due.FeeCategory] = group
		}
		group.Dues = append(group.Dues, due)
		group.Count++
		group.TotalOriginal = group.TotalOriginal.Add(due.OriginalAmount)
		group.TotalPaid = group.TotalPaid.Add(due.PaidAmount)
		group.TotalBalance = group.TotalBalance.Add(due.BalanceAmount)

		report.DueCount++
		report.TotalOriginal = report.TotalOriginal.Add(due.OriginalAmount)
		report.TotalPaid = report.TotalPaid.Add(due.PaidAmount)
		report.TotalBalance = report.TotalBalance.Add(due.BalanceAmount)
	}

	report.Categories = make([]domain.CategoryGroup, 0, len(groups))
	for _, group := range groups {
		report.Categories = append(report.Categories, *group)
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].FeeCategory < report.Categories[j].FeeCategory
	})
	report.Aging = domain.CalculateAging(items)
	return report
}

func (s *Service) RefreshAging(ctx context.Context) (int, error) {
	var (
		afterID snowflake.ID
		updated int
		open    []domain.FeeDue
	)
	for {
		var batch []domain.FeeDue
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			batch, err = s.repo.ListOpenBatch(ctx, tx, afterID, s.batchSize)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			for i := range batch {
				if !batch[i].Refresh(now) {
					continue
				}
				batch[i].UpdatedAt = now
				if err := s.repo.UpdateState(ctx, tx, &batch[i]); err != nil {
					return err
				}
				updated++
			}
			return nil
		})
		if err != nil {
			s.log.Error("aging refresh failed", zap.Int("updated", updated), zap.Error(err))
			return updated, feeerrors.Wrap(err)
		}
		open = append(open, batch...)
		if len(batch) < s.batchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	s.metrics.AddAgingRefreshed(updated)
	for bucket, total := range domain.CalculateAging(open) {
		s.metrics.SetOpenBalance(string(bucket), total.Amount)
	}
	s.log.Info("aging refreshed", zap.Int("open", len(open)), zap.Int("updated", updated))
	return updated, nil
}

func (s *Service) ListDueSoon(ctx context.Context, within int) ([]domain.FeeDue, error) {
	if within < 0 {
		return nil, domain.ErrInvalidDueSoonWindow
	}
	today := clock.StartOfDay(s.clock.Now())
	until := today.AddDate(0, 0, within+1)

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		OpenOnly:  true,
		DueFrom:   &today,
		DueBefore: &until,
	})
	if err != nil {
		return nil, feeerrors.Wrap(err)
	}
	return items, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	cfdomain "github.com/smallbiznis/feeledger/internal/carryforward/domain"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	notificationdomain "github.com/smallbiznis/feeledger/internal/notification/domain"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"github.com/smallbiznis/feeledger/internal/observability/tracing"
	pendingdomain "github.com/smallbiznis/feeledger/internal/pendingfee/domain"
	"github.com/smallbiznis/feeledger/internal/promotion/domain"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	"github.com/smallbiznis/feeledger/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrAcademicYearMismatch = feeerrors.New(feeerrors.ErrValidation, "academic_year_mismatch")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	Students    schooldomain.StudentDirectory
	PendingSvc  pendingdomain.Service
	CarrySvc    cfdomain.Service
	Sink        notificationdomain.Sink
	Eligibility domain.EligibilityPolicy
	Clock       clock.Clock
	Cfg         config.Config
	Metrics     *metrics.FeeMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	students    schooldomain.StudentDirectory
	pendingSvc  pendingdomain.Service
	carrySvc    cfdomain.Service
	sink        notificationdomain.Sink
	eligibility domain.EligibilityPolicy
	clock       clock.Clock
	metrics     *metrics.FeeMetrics
	actionURL   string
}

func NewService(p Params) domain.Service {
	eligibility := p.Eligibility
	if eligibility == nil {
		eligibility = domain.AlwaysEligible{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("promotion.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		students:    p.Students,
		pendingSvc:  p.PendingSvc,
		carrySvc:    p.CarrySvc,
		sink:        p.Sink,
		eligibility: eligibility,
		clock:       p.Clock,
		metrics:     p.Metrics,
		actionURL:   p.Cfg.Fees.PromotionActionURL,
	}
}

// pendingNotice is sent only after the batch commits.
type pendingNotice struct {
	student   *schooldomain.Student
	breakdown *pendingdomain.Breakdown
	carried   decimal.Decimal
}

func (s *Service) PromoteStudentsWithFeeHandling(ctx context.Context, req domain.PromoteRequest) (*domain.PromoteResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	fromGrade, err := schooldomain.ParseGrade(req.FromGrade)
	if err != nil {
		return nil, err
	}
	toGrade, err := schooldomain.ParseGrade(req.ToGrade)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "promotion.PromoteStudentsWithFeeHandling",
		attribute.Int("student_count", len(req.StudentIDs)),
		attribute.String("from_grade", fromGrade.String()),
		attribute.String("to_grade", toGrade.String()),
		attribute.String("from_year", req.FromAcademicYear),
	)

	var (
		result  *domain.PromoteResult
		notices []pendingNotice
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = &domain.PromoteResult{Results: []domain.StudentResult{}, TotalCarried: decimal.Zero}
		notices = notices[:0]
		for _, studentID := range req.StudentIDs {
			res, notice, err := s.promoteOne(ctx, tx, req, studentID, fromGrade, toGrade)
			if err != nil {
				return err
			}
			if res == nil {
				continue
			}
			result.Results = append(result.Results, *res)
			switch res.Outcome {
			case domain.ResultPromoted:
				result.PromotedCount++
				result.TotalCarried = result.TotalCarried.Add(res.CarriedAmount)
			case domain.ResultSkipped:
				result.SkippedCount++
			case domain.ResultFailed:
				result.FailedCount++
			}
			if notice != nil {
				notices = append(notices, *notice)
			}
		}
		return nil
	})
	err = feeerrors.Wrap(err)
	tracing.EndSpan(span, err)
	if err != nil {
		s.log.Error("promotion batch rolled back", zap.Int("students", len(req.StudentIDs)), zap.Error(err))
		return nil, err
	}

	for _, res := range result.Results {
		s.metrics.IncPromotion(string(res.Outcome))
	}
	for _, notice := range notices {
		s.notify(ctx, notice, fromGrade, toGrade, req)
	}

	s.log.Info("promotion batch committed",
		zap.Int("promoted", result.PromotedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("failed", result.FailedCount),
		zap.String("total_carried", result.TotalCarried.String()),
	)
	return result, nil
}

// promoteOne returns (nil, nil, nil) for students that are silently
// skipped. A non-nil error aborts the whole batch.
func (s *Service) promoteOne(
	ctx context.Context,
	tx *gorm.DB,
	req domain.PromoteRequest,
	studentID snowflake.ID,
	fromGrade, toGrade schooldomain.Grade,
) (*domain.StudentResult, *pendingNotice, error) {
	student, err := s.students.FindByID(ctx, tx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if student == nil || student.CanonicalGrade() != fromGrade {
		return nil, nil, nil
	}

	res := &domain.StudentResult{StudentID: student.ID, CarriedAmount: decimal.Zero}
	if strings.TrimSpace(student.AcademicYear) != req.FromAcademicYear {
		res.Outcome = domain.ResultFailed
		res.Reason = fmt.Sprintf("%s: student is in %s, not %s", ErrAcademicYearMismatch, student.AcademicYear, req.FromAcademicYear)
		s.log.Warn("promotion academic year mismatch",
			zap.String("student_id", student.ID.String()),
			zap.String("recorded_year", student.AcademicYear),
			zap.String("requested_year", req.FromAcademicYear),
		)
		return res, nil, nil
	}

	if req.CheckEligibility {
		eligible, reason, err := s.eligibility.Evaluate(ctx, student)
		if err != nil {
			return nil, nil, err
		}
		if !eligible {
			res.Outcome = domain.ResultSkipped
			res.Reason = reason
			return res, nil, nil
		}
	}

	breakdown, err := s.pendingSvc.GetPendingFeesBreakdownTx(ctx, tx, pendingdomain.Request{
		StudentID:    student.ID,
		Grade:        fromGrade.String(),
		AcademicYear: req.FromAcademicYear,
	})
	if err != nil {
		return nil, nil, err
	}

	carried, err := s.carrySvc.CarryForwardFeesTx(ctx, tx, cfdomain.Request{
		StudentID: student.ID,
		FromGrade: fromGrade.String(),
		ToGrade:   toGrade.String(),
		FromYear:  req.FromAcademicYear,
		ToYear:    req.ToAcademicYear,
		ActorID:   req.ActorID,
	})
	if err != nil {
		if isStudentLevel(err) {
			res.Outcome = domain.ResultFailed
			res.Reason = err.Error()
			return res, nil, nil
		}
		return nil, nil, err
	}

	if err := s.students.UpdatePlacement(ctx, tx, student.ID, toGrade, req.ToAcademicYear); err != nil {
		return nil, nil, err
	}

	feeStatus := domain.FeeNone
	if breakdown.TotalBalance.IsPositive() {
		feeStatus = domain.FeeCarriedForward
	}
	record := &domain.PromotionRecord{
		ID:                    s.genID.Generate(),
		StudentID:             student.ID,
		FromAcademicYear:      req.FromAcademicYear,
		ToAcademicYear:        req.ToAcademicYear,
		FromGrade:             fromGrade.String(),
		ToGrade:               toGrade.String(),
		Outcome:               string(domain.ResultPromoted),
		ApprovedBy:            optional(req.ActorID),
		FeeCarryForwardStatus: string(feeStatus),
		FeeCarryForwardAmount: breakdown.TotalBalance,
		Notes:                 optional(req.Notes),
		CreatedAt:             s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, record); err != nil {
		return nil, nil, err
	}

	recordID := record.ID
	res.Outcome = domain.ResultPromoted
	res.CarriedAmount = carried.TotalAmount
	res.FeeTypesCount = carried.FeeTypesCount
	res.PromotionRecordID = &recordID

	var notice *pendingNotice
	if carried.TotalAmount.IsPositive() {
		notice = &pendingNotice{student: student, breakdown: breakdown, carried: carried.TotalAmount}
	}
	return res, notice, nil
}

// isStudentLevel reports errors that fail one student without aborting
// the batch.
func isStudentLevel(err error) bool {
	return errors.Is(err, feeerrors.ErrAlreadyCarriedForward) ||
		errors.Is(err, feeerrors.ErrNotFound) ||
		errors.Is(err, feeerrors.ErrValidation)
}

func (s *Service) notify(ctx context.Context, notice pendingNotice, fromGrade, toGrade schooldomain.Grade, req domain.PromoteRequest) {
	if s.sink == nil {
		return
	}
	categories := make([]map[string]any, 0, len(notice.breakdown.Categories))
	for _, category := range notice.breakdown.Categories {
		categories = append(categories, map[string]any{
			"fee_category":  category.FeeCategory,
			"total_balance": category.TotalBalance.StringFixed(2),
			"status":        string(category.Status),
		})
	}

	event := notificationdomain.Event{
		RecipientStudentID: notice.student.ID,
		RecipientUserID:    notice.student.UserID,
		Title:              "Fee balance carried forward",
		Message: fmt.Sprintf("Outstanding fees of %s from Grade %s (%s) have been carried forward to Grade %s (%s).",
			notice.carried.StringFixed(2), fromGrade, req.FromAcademicYear, toGrade, req.ToAcademicYear),
		Severity:  notificationdomain.SeverityWarning,
		Category:  notificationdomain.CategoryFeePromotion,
		ActionURL: s.actionURL,
		Metadata: map[string]any{
			"total_amount": notice.carried.StringFixed(2),
			"from_grade":   fromGrade.String(),
			"to_grade":     toGrade.String(),
			"from_year":    req.FromAcademicYear,
			"to_year":      req.ToAcademicYear,
			"categories":   categories,
		},
		DedupeKey: fmt.Sprintf("fee_promotion:%s:%s:%s", notice.student.ID, req.FromAcademicYear, fromGrade),
	}
	if err := s.sink.Notify(ctx, event); err != nil {
		s.log.Warn("failed to request promotion notification",
			zap.String("student_id", notice.student.ID.String()),
			zap.Error(err),
		)
		s.metrics.IncNotificationFailure(string(notificationdomain.CategoryFeePromotion))
	}
}

func (s *Service) GetPromotionHistory(ctx context.Context, studentID snowflake.ID) ([]domain.PromotionRecord, error) {
	if studentID == 0 {
		return nil, feeerrors.New(feeerrors.ErrValidation, "invalid_student_id")
	}
	items, err := s.repo.ListByStudent(ctx, s.db, studentID)
	if err != nil {
		return nil, feeerrors.Wrap(err)
	}
	return items, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

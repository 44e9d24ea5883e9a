package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/cache"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"github.com/smallbiznis/feeledger/internal/pendingfee/domain"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	"github.com/smallbiznis/feeledger/internal/validation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Students   schooldomain.StudentDirectory
	Structures schooldomain.FeeStructureCatalog
	Payments   schooldomain.PaymentLookup
	DuesRepo   duesdomain.Repository
	Clock      clock.Clock
	Cfg        config.Config
}

type structureKey struct {
	branchID     snowflake.ID
	grade        schooldomain.Grade
	academicYear string
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	students        schooldomain.StudentDirectory
	structures      schooldomain.FeeStructureCatalog
	payments        schooldomain.PaymentLookup
	duesRepo        duesdomain.Repository
	clock           clock.Clock
	defaultCategory string
	cacheTTL        time.Duration
	structureCache  cache.Cache[structureKey, []schooldomain.FeeStructure]
}

func NewService(p Params) domain.Service {
	category := strings.TrimSpace(p.Cfg.Fees.DefaultFeeCategory)
	if category == "" {
		category = domain.DefaultFeeCategory
	}
	var structureCache cache.Cache[structureKey, []schooldomain.FeeStructure] = cache.NoopCache[structureKey, []schooldomain.FeeStructure]{}
	if p.Cfg.Fees.StructureCacheTTL > 0 {
		structureCache = cache.NewTTLCache[structureKey, []schooldomain.FeeStructure](p.Clock)
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("pendingfee.service"),
		students:        p.Students,
		structures:      p.Structures,
		payments:        p.Payments,
		duesRepo:        p.DuesRepo,
		clock:           p.Clock,
		defaultCategory: category,
		cacheTTL:        p.Cfg.Fees.StructureCacheTTL,
		structureCache:  structureCache,
	}
}

type placement struct {
	student      *schooldomain.Student
	grade        schooldomain.Grade
	academicYear string
}

func (s *Service) IdentifyPendingFees(ctx context.Context, req domain.Request) (domain.PendingFees, error) {
	_, pending, err := s.identify(ctx, s.db, req)
	return pending, err
}

func (s *Service) IdentifyPendingFeesTx(ctx context.Context, tx *gorm.DB, req domain.Request) (domain.PendingFees, error) {
	if tx == nil {
		return nil, errors.New("missing_transaction")
	}
	_, pending, err := s.identify(ctx, tx, req)
	return pending, err
}

func (s *Service) GetPendingFeesBreakdown(ctx context.Context, req domain.Request) (*domain.Breakdown, error) {
	return s.breakdown(ctx, s.db, req)
}

func (s *Service) GetPendingFeesBreakdownTx(ctx context.Context, tx *gorm.DB, req domain.Request) (*domain.Breakdown, error) {
	if tx == nil {
		return nil, errors.New("missing_transaction")
	}
	return s.breakdown(ctx, tx, req)
}

func (s *Service) breakdown(ctx context.Context, db *gorm.DB, req domain.Request) (*domain.Breakdown, error) {
	where, pending, err := s.identify(ctx, db, req)
	if err != nil {
		return nil, err
	}
	out := &domain.Breakdown{
		StudentID:     req.StudentID,
		Grade:         where.grade.String(),
		AcademicYear:  where.academicYear,
		Categories:    domain.Summarize(pending),
		TotalOriginal: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalBalance:  decimal.Zero,
	}
	for _, category := range out.Categories {
		out.TotalOriginal = out.TotalOriginal.Add(category.TotalOriginal)
		out.TotalPaid = out.TotalPaid.Add(category.TotalPaid)
		out.TotalBalance = out.TotalBalance.Add(category.TotalBalance)
	}
	out.FeeTypesCount = len(out.Categories)
	return out, nil
}

func (s *Service) identify(ctx context.Context, db *gorm.DB, req domain.Request) (placement, domain.PendingFees, error) {
	if err := validation.Struct(req); err != nil {
		return placement{}, nil, err
	}

	where, err := s.resolve(ctx, db, req)
	if err != nil {
		return placement{}, nil, feeerrors.Wrap(err)
	}
	pending := domain.PendingFees{}
	if where.student == nil {
		s.log.Debug("student not found, nothing pending", zap.String("student_id", req.StudentID.String()))
		return where, pending, nil
	}

	structures, err := s.listStructures(ctx, db, where)
	if err != nil {
		return where, nil, feeerrors.Wrap(err)
	}
	carriedIDs, err := s.duesRepo.CarriedForwardStructureIDs(ctx, db, where.student.ID, where.academicYear)
	if err != nil {
		return where, nil, feeerrors.Wrap(err)
	}
	carried := make(map[snowflake.ID]struct{}, len(carriedIDs))
	for _, id := range carriedIDs {
		carried[id] = struct{}{}
	}

	now := s.clock.Now()
	for _, structure := range structures {
		if _, ok := carried[structure.ID]; ok {
			continue
		}
		settled, err := s.payments.HasCompletedPayment(ctx, db, where.student.ID, structure.ID)
		if err != nil {
			return where, nil, feeerrors.Wrap(err)
		}
		if settled {
			continue
		}
		paid, err := s.payments.SettledAmount(ctx, db, where.student.ID, structure.ID)
		if err != nil {
			return where, nil, feeerrors.Wrap(err)
		}
		balance := decimal.Max(decimal.Zero, structure.Amount.Sub(paid))
		if balance.IsZero() {
			continue
		}

		item := domain.LineItem{
			FeeStructureID: structure.ID,
			FeeCategory:    s.categoryOf(structure),
			OriginalAmount: structure.Amount,
			PaidAmount:     paid,
			BalanceAmount:  balance,
			Status:         domain.ItemUnpaid,
		}
		if structure.Description != nil {
			item.Description = *structure.Description
		}
		if structure.DueDate != nil {
			due := structure.DueDate.UTC()
			item.DueDate = &due
			item.OverdueDays = clock.DaysPast(due, now)
		}
		if paid.IsPositive() {
			item.Status = domain.ItemPartiallyPaid
		}
		pending[item.FeeCategory] = append(pending[item.FeeCategory], item)
	}
	return where, pending, nil
}

func (s *Service) resolve(ctx context.Context, db *gorm.DB, req domain.Request) (placement, error) {
	student, err := s.students.FindByID(ctx, db, req.StudentID)
	if err != nil || student == nil {
		return placement{}, err
	}

	where := placement{student: student, academicYear: strings.TrimSpace(req.AcademicYear)}
	if where.academicYear == "" {
		where.academicYear = student.AcademicYear
	}
	rawGrade := req.Grade
	if strings.TrimSpace(rawGrade) == "" {
		rawGrade = student.Grade
	}
	grade, err := schooldomain.ParseGrade(rawGrade)
	if err != nil {
		return placement{}, err
	}
	where.grade = grade
	return where, nil
}

func (s *Service) listStructures(ctx context.Context, db *gorm.DB, where placement) ([]schooldomain.FeeStructure, error) {
	key := structureKey{branchID: where.student.BranchID, grade: where.grade, academicYear: where.academicYear}
	if cached, ok := s.structureCache.Get(key); ok {
		return cached, nil
	}
	structures, err := s.structures.ListActive(ctx, db, key.branchID, key.grade, key.academicYear)
	if err != nil {
		return nil, err
	}
	s.structureCache.Set(key, structures, s.cacheTTL)
	return structures, nil
}

func (s *Service) categoryOf(structure schooldomain.FeeStructure) string {
	if structure.FeeCategory != nil {
		if category := strings.TrimSpace(*structure.FeeCategory); category != "" {
			return category
		}
	}
	return s.defaultCategory
}

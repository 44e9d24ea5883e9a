package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/feeledger/internal/audit/domain"
	auditrepo "github.com/smallbiznis/feeledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/feeledger/internal/audit/service"
	cfdomain "github.com/smallbiznis/feeledger/internal/carryforward/domain"
	cfservice "github.com/smallbiznis/feeledger/internal/carryforward/service"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	duesrepo "github.com/smallbiznis/feeledger/internal/dues/repository"
	"github.com/smallbiznis/feeledger/internal/feeerrors"
	notificationdomain "github.com/smallbiznis/feeledger/internal/notification/domain"
	"github.com/smallbiznis/feeledger/internal/notification/outbox"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	pendingservice "github.com/smallbiznis/feeledger/internal/pendingfee/service"
	"github.com/smallbiznis/feeledger/internal/promotion/domain"
	"github.com/smallbiznis/feeledger/internal/promotion/repository"
	schooldomain "github.com/smallbiznis/feeledger/internal/school/domain"
	schoolrepo "github.com/smallbiznis/feeledger/internal/school/repository"
	"github.com/smallbiznis/feeledger/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type denyList map[snowflake.ID]string

func (d denyList) Evaluate(_ context.Context, student *schooldomain.Student) (bool, string, error) {
	if reason, ok := d[student.ID]; ok {
		return false, reason, nil
	}
	return true, "", nil
}

type failingSink struct{ calls int }

func (f *failingSink) Notify(context.Context, notificationdomain.Event) error {
	f.calls++
	return errors.New("outbox down")
}

// failAfterRepo accepts n inserts and then fails.
type failAfterRepo struct {
	domain.Repository
	n int
}

func (r *failAfterRepo) Insert(ctx context.Context, db *gorm.DB, record *domain.PromotionRecord) error {
	if r.n == 0 {
		return errors.New("disk full")
	}
	r.n--
	return r.Repository.Insert(ctx, db, record)
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.Fixed
	params   Params
	carrySvc cfdomain.Service
}

func strPtr(v string) *string { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&schooldomain.Student{}, &schooldomain.FeeStructure{}, &schooldomain.FeePayment{},
		&duesdomain.FeeDue{}, &auditdomain.AuditLog{}, &domain.PromotionRecord{}, &outbox.Record{},
	)
	clk := clock.NewFixed(testNow)
	node := testutil.NewNode(t)
	log := zap.NewNop()

	students := []schooldomain.Student{
		{ID: 100, BranchID: 1, Name: "Amina", Grade: "5", AcademicYear: "2024-2025", IsActive: true},
		{ID: 101, BranchID: 1, Name: "Bayu", Grade: "Grade 5", AcademicYear: "2024-2025", IsActive: true},
		{ID: 102, BranchID: 1, Name: "Citra", Grade: "4", AcademicYear: "2024-2025", IsActive: true},
		{ID: 103, BranchID: 1, Name: "Dewi", Grade: "5", AcademicYear: "2023-2024", IsActive: true},
	}
	if err := db.Create(&students).Error; err != nil {
		t.Fatalf("seed students: %v", err)
	}
	tuitionDue := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	transportDue := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	structures := []schooldomain.FeeStructure{
		{ID: 10, BranchID: 1, Grade: "5", FeeCategory: strPtr("Tuition"), AcademicYear: "2024-2025", Amount: decimal.NewFromInt(1000), DueDate: &tuitionDue, IsActive: true},
		{ID: 11, BranchID: 1, Grade: "5", FeeCategory: strPtr("Transport"), AcademicYear: "2024-2025", Amount: decimal.NewFromInt(500), DueDate: &transportDue, IsActive: true},
	}
	if err := db.Create(&structures).Error; err != nil {
		t.Fatalf("seed structures: %v", err)
	}
	if err := db.Create(&schooldomain.FeePayment{ID: 1, StudentID: 100, FeeStructureID: 10, Amount: decimal.NewFromInt(400), Status: string(schooldomain.PaymentPartial)}).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	cfg := config.Config{Fees: config.FeesConfig{CarryForwardWindow: 24 * time.Hour, PromotionActionURL: "/fees/dues"}}
	pending := pendingservice.NewService(pendingservice.Params{
		DB:         db,
		Log:        log,
		Students:   schoolrepo.ProvideStudents(),
		Structures: schoolrepo.ProvideFeeStructures(),
		Payments:   schoolrepo.ProvidePayments(),
		DuesRepo:   duesrepo.Provide(),
		Clock:      clk,
		Cfg:        cfg,
	})
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepo.Provide(),
		Clock: clk,
	})
	carry := cfservice.NewService(cfservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Students:   schoolrepo.ProvideStudents(),
		PendingSvc: pending,
		DuesRepo:   duesrepo.Provide(),
		AuditSvc:   audit,
		Clock:      clk,
		Cfg:        cfg,
	})
	params := Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Repo:       repository.Provide(),
		Students:   schoolrepo.ProvideStudents(),
		PendingSvc: pending,
		CarrySvc:   carry,
		Sink:       outbox.Provide(db, node, clk),
		Clock:      clk,
		Cfg:        cfg,
		Metrics:    metrics.NewFeeMetrics(prometheus.NewRegistry(), metrics.Config{}),
	}
	return &fixture{db: db, node: node, clock: clk, params: params, carrySvc: carry}
}

func (f *fixture) service() domain.Service {
	return NewService(f.params)
}

func (f *fixture) student(t *testing.T, id snowflake.ID) schooldomain.Student {
	t.Helper()
	var student schooldomain.Student
	if err := f.db.First(&student, "id = ?", id).Error; err != nil {
		t.Fatalf("load student %d: %v", id, err)
	}
	return student
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func batch(ids ...snowflake.ID) domain.PromoteRequest {
	return domain.PromoteRequest{
		StudentIDs:       ids,
		FromGrade:        "Grade 5",
		ToGrade:          "6",
		FromAcademicYear: "2024-2025",
		ToAcademicYear:   "2025-2026",
		ActorID:          "admin-1",
		Notes:            "end of year",
	}
}

func findResult(t *testing.T, result *domain.PromoteResult, id snowflake.ID) domain.StudentResult {
	t.Helper()
	for _, res := range result.Results {
		if res.StudentID == id {
			return res
		}
	}
	t.Fatalf("no result for student %d", id)
	return domain.StudentResult{}
}

func TestPromoteCarriesForwardAndRecords(t *testing.T) {
	f := newFixture(t)

	result, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(100, 102, 999))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if len(result.Results) != 1 || result.PromotedCount != 1 {
		t.Fatalf("expected only student 100 in results, got %+v", result)
	}
	if !result.TotalCarried.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("expected 1100 carried, got %s", result.TotalCarried)
	}
	res := findResult(t, result, 100)
	if res.Outcome != domain.ResultPromoted || res.FeeTypesCount != 2 || res.PromotionRecordID == nil {
		t.Fatalf("unexpected student result %+v", res)
	}

	student := f.student(t, 100)
	if student.Grade != "6" || student.AcademicYear != "2025-2026" {
		t.Fatalf("expected placement 6/2025-2026, got %s/%s", student.Grade, student.AcademicYear)
	}
	if other := f.student(t, 102); other.Grade != "4" {
		t.Fatalf("expected student in another grade untouched, got %s", other.Grade)
	}

	var record domain.PromotionRecord
	if err := f.db.First(&record, "id = ?", *res.PromotionRecordID).Error; err != nil {
		t.Fatalf("load record: %v", err)
	}
	if record.FeeCarryForwardStatus != string(domain.FeeCarriedForward) || !record.FeeCarryForwardAmount.Equal(decimal.NewFromInt(1100)) {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ApprovedBy == nil || *record.ApprovedBy != "admin-1" || record.Notes == nil {
		t.Fatalf("expected approver and notes on record, got %+v", record)
	}

	if n := f.count(t, &duesdomain.FeeDue{}, "student_id = ? AND status = ?", 100, string(duesdomain.StatusCarriedForward)); n != 2 {
		t.Fatalf("expected 2 carried dues, got %d", n)
	}

	var notices []outbox.Record
	if err := f.db.Find(&notices).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notices))
	}
	if notices[0].DedupeKey == nil || *notices[0].DedupeKey != "fee_promotion:100:2024-2025:5" {
		t.Fatalf("unexpected dedupe key %v", notices[0].DedupeKey)
	}
	if notices[0].Category != string(notificationdomain.CategoryFeePromotion) || notices[0].Severity != string(notificationdomain.SeverityWarning) {
		t.Fatalf("unexpected notification %+v", notices[0])
	}
}

func TestPromoteYearMismatchFailsOnlyThatStudent(t *testing.T) {
	f := newFixture(t)

	result, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(100, 103))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if result.PromotedCount != 1 || result.FailedCount != 1 {
		t.Fatalf("expected 1 promoted and 1 failed, got %+v", result)
	}
	failed := findResult(t, result, 103)
	if failed.Outcome != domain.ResultFailed || !strings.Contains(failed.Reason, "academic_year_mismatch") {
		t.Fatalf("unexpected failure %+v", failed)
	}
	if student := f.student(t, 103); student.Grade != "5" || student.AcademicYear != "2023-2024" {
		t.Fatalf("expected mismatched student untouched, got %s/%s", student.Grade, student.AcademicYear)
	}
	if n := f.count(t, &domain.PromotionRecord{}, "student_id = ?", 103); n != 0 {
		t.Fatalf("expected no record for failed student, got %d", n)
	}
}

func TestPromoteSkipsIneligibleStudents(t *testing.T) {
	f := newFixture(t)
	f.params.Eligibility = denyList{101: "library books outstanding"}

	req := batch(100, 101)
	req.CheckEligibility = true
	result, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), req)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	skipped := findResult(t, result, 101)
	if skipped.Outcome != domain.ResultSkipped || skipped.Reason != "library books outstanding" {
		t.Fatalf("unexpected skip %+v", skipped)
	}
	if result.SkippedCount != 1 || result.PromotedCount != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if n := f.count(t, &duesdomain.FeeDue{}, "student_id = ?", 101); n != 0 {
		t.Fatalf("expected no dues for skipped student, got %d", n)
	}

	// Without the flag the policy is not consulted.
	result, err = f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(101))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if result.PromotedCount != 1 {
		t.Fatalf("expected promotion without eligibility check, got %+v", result)
	}
}

func TestPromoteAlreadyCarriedForwardFailsStudentAndContinues(t *testing.T) {
	f := newFixture(t)
	if _, err := f.carrySvc.CarryForwardFees(context.Background(), cfdomain.Request{
		StudentID: 100, FromGrade: "5", ToGrade: "6", FromYear: "2024-2025", ToYear: "2025-2026",
	}); err != nil {
		t.Fatalf("seed carry-forward: %v", err)
	}

	result, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(100, 101))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	failed := findResult(t, result, 100)
	if failed.Outcome != domain.ResultFailed || !strings.Contains(failed.Reason, "already_carried_forward") {
		t.Fatalf("unexpected result %+v", failed)
	}
	if promoted := findResult(t, result, 101); promoted.Outcome != domain.ResultPromoted || !promoted.CarriedAmount.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("unexpected result %+v", promoted)
	}
	if student := f.student(t, 100); student.Grade != "5" {
		t.Fatalf("expected failed student to stay in grade 5, got %s", student.Grade)
	}
	if n := f.count(t, &duesdomain.FeeDue{}, "student_id = ?", 100); n != 2 {
		t.Fatalf("expected only the original 2 carried dues, got %d", n)
	}
}

func TestPromoteRollsBackWholeBatchOnPersistenceError(t *testing.T) {
	f := newFixture(t)
	f.params.Repo = &failAfterRepo{Repository: repository.Provide(), n: 1}

	_, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(100, 101))
	if !errors.Is(err, feeerrors.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if student := f.student(t, 100); student.Grade != "5" {
		t.Fatalf("expected rollback of first student placement, got %s", student.Grade)
	}
	if n := f.count(t, &duesdomain.FeeDue{}, "1 = 1"); n != 0 {
		t.Fatalf("expected no dues after rollback, got %d", n)
	}
	if n := f.count(t, &domain.PromotionRecord{}, "1 = 1"); n != 0 {
		t.Fatalf("expected no records after rollback, got %d", n)
	}
	if n := f.count(t, &outbox.Record{}, "1 = 1"); n != 0 {
		t.Fatalf("expected no notifications after rollback, got %d", n)
	}
}

func TestPromoteNotificationFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	sink := &failingSink{}
	f.params.Sink = sink

	result, err := f.service().PromoteStudentsWithFeeHandling(context.Background(), batch(100, 101))
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if result.PromotedCount != 2 {
		t.Fatalf("expected 2 promoted, got %+v", result)
	}
	if sink.calls != 2 {
		t.Fatalf("expected 2 notify attempts, got %d", sink.calls)
	}
	if n := f.count(t, &domain.PromotionRecord{}, "1 = 1"); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestPromoteRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	if _, err := svc.PromoteStudentsWithFeeHandling(context.Background(), batch()); !errors.Is(err, feeerrors.ErrValidation) {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
	req := batch(100)
	req.ToAcademicYear = "2025-2027"
	if _, err := svc.PromoteStudentsWithFeeHandling(context.Background(), req); !errors.Is(err, feeerrors.ErrValidation) {
		t.Fatalf("expected validation error for bad year, got %v", err)
	}
}

func TestPromotionHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	svc := f.service()

	if _, err := svc.PromoteStudentsWithFeeHandling(context.Background(), batch(100)); err != nil {
		t.Fatalf("first promotion: %v", err)
	}
	f.clock.Advance(365 * 24 * time.Hour)
	next := domain.PromoteRequest{
		StudentIDs:       []snowflake.ID{100},
		FromGrade:        "6",
		ToGrade:          "7",
		FromAcademicYear: "2025-2026",
		ToAcademicYear:   "2026-2027",
	}
	result, err := svc.PromoteStudentsWithFeeHandling(context.Background(), next)
	if err != nil {
		t.Fatalf("second promotion: %v", err)
	}
	if res := findResult(t, result, 100); !res.CarriedAmount.IsZero() {
		t.Fatalf("expected nothing carried from grade 6, got %s", res.CarriedAmount)
	}

	history, err := svc.GetPromotionHistory(context.Background(), 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if history[0].ToGrade != "7" || history[1].ToGrade != "6" {
		t.Fatalf("expected newest first, got %s then %s", history[0].ToGrade, history[1].ToGrade)
	}
	if history[0].FeeCarryForwardStatus != string(domain.FeeNone) {
		t.Fatalf("expected no carry-forward on second record, got %s", history[0].FeeCarryForwardStatus)
	}

	if _, err := svc.GetPromotionHistory(context.Background(), 0); !errors.Is(err, feeerrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

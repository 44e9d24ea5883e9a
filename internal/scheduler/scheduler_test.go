package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	notificationdomain "github.com/smallbiznis/feeledger/internal/notification/domain"
	"github.com/smallbiznis/feeledger/internal/notification/outbox"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"github.com/smallbiznis/feeledger/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)

type fakeDues struct {
	duesdomain.Service

	soon       []duesdomain.FeeDue
	overdue    []duesdomain.FeeDue
	refreshErr error
	calls      []string
	within     int
}

func (f *fakeDues) RefreshAging(context.Context) (int, error) {
	f.calls = append(f.calls, "refresh")
	return 3, f.refreshErr
}

func (f *fakeDues) ListDueSoon(_ context.Context, within int) ([]duesdomain.FeeDue, error) {
	f.calls = append(f.calls, "soon")
	f.within = within
	return f.soon, nil
}

func (f *fakeDues) GetOverdueFees(context.Context, duesdomain.ReportFilter) (*duesdomain.Report, error) {
	f.calls = append(f.calls, "overdue")
	groups := map[string]*duesdomain.CategoryGroup{}
	report := &duesdomain.Report{}
	for _, due := range f.overdue {
		group, ok := groups[due.FeeCategory]
		if !ok {
			group = &duesdomain.CategoryGroup{FeeCategory: due.FeeCategory}
			groups[due.FeeCategory] = group
		}
		group.Dues = append(group.Dues, due)
	}
	for _, group := range groups {
		report.Categories = append(report.Categories, *group)
	}
	return report, nil
}

type failingSink struct{}

func (failingSink) Notify(context.Context, notificationdomain.Event) error {
	return errors.New("outbox down")
}

func newDue(id, student int64, category string, balance int64, dueDate time.Time, overdueDays int) duesdomain.FeeDue {
	return duesdomain.FeeDue{
		ID:            snowflake.ID(id),
		StudentID:     snowflake.ID(student),
		FeeCategory:   category,
		BalanceAmount: decimal.NewFromInt(balance),
		DueDate:       &dueDate,
		OverdueDays:   overdueDays,
		AcademicYear:  "2024-2025",
	}
}

func newTriggers(t *testing.T, dues *fakeDues, sink notificationdomain.Sink) (*Triggers, *gorm.DB, *clock.Fixed) {
	t.Helper()
	db := testutil.NewDB(t, &outbox.Record{})
	clk := clock.NewFixed(testNow)
	if sink == nil {
		sink = outbox.Provide(db, testutil.NewNode(t), clk)
	}
	triggers := NewTriggers(TriggerParams{
		Log:     zap.NewNop(),
		Dues:    dues,
		Sink:    sink,
		Clock:   clk,
		Cfg:     config.Config{Fees: config.FeesConfig{ReminderActionURL: "/fees/pay"}},
		Metrics: metrics.NewFeeMetrics(prometheus.NewRegistry(), metrics.Config{}),
	})
	return triggers, db, clk
}

func outboxRows(t *testing.T, db *gorm.DB) []outbox.Record {
	t.Helper()
	var rows []outbox.Record
	if err := db.Order("dedupe_key").Find(&rows).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	return rows
}

func TestSendDueRemindersDedupesPerDue(t *testing.T) {
	dues := &fakeDues{soon: []duesdomain.FeeDue{
		newDue(1, 100, "Tuition", 600, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), 0),
		newDue(2, 101, "Transport", 500, time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), 0),
	}}
	triggers, db, _ := newTriggers(t, dues, nil)

	sent, err := triggers.SendDueReminders(context.Background(), 3)
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if sent != 2 || dues.within != 3 {
		t.Fatalf("expected 2 reminders within 3 days, got %d within %d", sent, dues.within)
	}
	if _, err := triggers.SendDueReminders(context.Background(), 3); err != nil {
		t.Fatalf("repeat reminders: %v", err)
	}

	rows := outboxRows(t, db)
	if len(rows) != 2 {
		t.Fatalf("expected 2 outbox rows after repeat, got %d", len(rows))
	}
	if rows[0].DedupeKey == nil || *rows[0].DedupeKey != "fee_reminder:1:2025-06-20" {
		t.Fatalf("unexpected dedupe key %v", rows[0].DedupeKey)
	}
	if rows[0].Category != string(notificationdomain.CategoryFeeReminder) || rows[0].ActionURL == nil || *rows[0].ActionURL != "/fees/pay" {
		t.Fatalf("unexpected reminder %+v", rows[0])
	}
}

func TestSendOverdueAlertsGroupsByStudentPerWeek(t *testing.T) {
	past := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	dues := &fakeDues{overdue: []duesdomain.FeeDue{
		newDue(1, 100, "Tuition", 600, past, 48),
		newDue(2, 100, "Transport", 200, past.AddDate(0, 0, 10), 38),
		newDue(3, 101, "Tuition", 1000, past, 48),
	}}
	triggers, db, clk := newTriggers(t, dues, nil)

	sent, err := triggers.SendOverdueAlerts(context.Background())
	if err != nil {
		t.Fatalf("send alerts: %v", err)
	}
	if sent != 2 {
		t.Fatalf("expected 2 alerts, got %d", sent)
	}

	// Same ISO week: no new rows.
	clk.Advance(48 * time.Hour)
	if _, err := triggers.SendOverdueAlerts(context.Background()); err != nil {
		t.Fatalf("repeat alerts: %v", err)
	}
	rows := outboxRows(t, db)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows within one week, got %d", len(rows))
	}
	if *rows[0].DedupeKey != "fee_overdue:100:2025-W25" {
		t.Fatalf("unexpected dedupe key %s", *rows[0].DedupeKey)
	}
	if rows[0].Metadata["total_balance"] != "800.00" {
		t.Fatalf("expected 800.00 for student 100, got %v", rows[0].Metadata["total_balance"])
	}
	if rows[0].Severity != string(notificationdomain.SeverityCritical) {
		t.Fatalf("expected critical severity, got %s", rows[0].Severity)
	}

	clk.Advance(7 * 24 * time.Hour)
	if _, err := triggers.SendOverdueAlerts(context.Background()); err != nil {
		t.Fatalf("next week alerts: %v", err)
	}
	if rows := outboxRows(t, db); len(rows) != 4 {
		t.Fatalf("expected new alerts the following week, got %d rows", len(rows))
	}
}

func TestNotificationFailuresAreNotErrors(t *testing.T) {
	dues := &fakeDues{soon: []duesdomain.FeeDue{
		newDue(1, 100, "Tuition", 600, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC), 0),
	}}
	triggers, _, _ := newTriggers(t, dues, failingSink{})

	sent, err := triggers.SendDueReminders(context.Background(), 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sent != 0 {
		t.Fatalf("expected 0 sent, got %d", sent)
	}
}

func TestWorkerRunOnceRunsEveryStep(t *testing.T) {
	dues := &fakeDues{refreshErr: errors.New("db down")}
	triggers, _, _ := newTriggers(t, dues, nil)
	worker := NewWorker(WorkerParams{
		Log:      zap.NewNop(),
		Triggers: triggers,
		Config:   Config{Enabled: true, ReminderDaysBefore: 5},
	})

	err := worker.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected refresh error to surface")
	}
	want := []string{"refresh", "soon", "overdue"}
	if len(dues.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, dues.calls)
	}
	for i := range want {
		if dues.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, dues.calls)
		}
	}
	if dues.within != 5 {
		t.Fatalf("expected reminder window 5, got %d", dues.within)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := ConfigFrom(config.Config{Scheduler: config.SchedulerConfig{ReminderDaysBefore: -1}})
	if cfg.PollInterval != time.Hour || cfg.ReminderDaysBefore != 3 || cfg.Enabled {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

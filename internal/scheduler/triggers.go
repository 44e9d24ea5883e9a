package scheduler

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/clock"
	"github.com/smallbiznis/feeledger/internal/config"
	duesdomain "github.com/smallbiznis/feeledger/internal/dues/domain"
	notificationdomain "github.com/smallbiznis/feeledger/internal/notification/domain"
	"github.com/smallbiznis/feeledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type TriggerParams struct {
	fx.In

	Log     *zap.Logger
	Dues    duesdomain.Service
	Sink    notificationdomain.Sink
	Clock   clock.Clock
	Cfg     config.Config
	Metrics *metrics.FeeMetrics `optional:"true"`
}

// Triggers are the maintenance jobs an external cron or the in-process
// worker may run. Each is safe to repeat: notifications carry dedupe keys.
type Triggers struct {
	log               *zap.Logger
	dues              duesdomain.Service
	sink              notificationdomain.Sink
	clock             clock.Clock
	metrics           *metrics.FeeMetrics
	reminderActionURL string
}

func NewTriggers(p TriggerParams) *Triggers {
	return &Triggers{
		log:               p.Log.Named("scheduler.triggers"),
		dues:              p.Dues,
		sink:              p.Sink,
		clock:             p.Clock,
		metrics:           p.Metrics,
		reminderActionURL: p.Cfg.Fees.ReminderActionURL,
	}
}

func (t *Triggers) RefreshAging(ctx context.Context) (int, error) {
	updated, err := t.dues.RefreshAging(ctx)
	if err != nil {
		return updated, err
	}
	t.log.Info("aging refreshed", zap.Int("updated", updated))
	return updated, nil
}

// SendDueReminders requests one reminder per open due falling due within
// daysBefore days. It returns the number of reminders requested.
func (t *Triggers) SendDueReminders(ctx context.Context, daysBefore int) (int, error) {
	items, err := t.dues.ListDueSoon(ctx, daysBefore)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, due := range items {
		if due.DueDate == nil {
			continue
		}
		dueDate := due.DueDate.Format("2006-01-02")
		event := notificationdomain.Event{
			RecipientStudentID: due.StudentID,
			Title:              "Fee payment due soon",
			Message: fmt.Sprintf("%s balance of %s is due on %s.",
				due.FeeCategory, due.BalanceAmount.StringFixed(2), dueDate),
			Severity:  notificationdomain.SeverityInfo,
			Category:  notificationdomain.CategoryFeeReminder,
			ActionURL: t.reminderActionURL,
			Metadata: map[string]any{
				"fee_due_id":     due.ID.String(),
				"fee_category":   due.FeeCategory,
				"balance_amount": due.BalanceAmount.StringFixed(2),
				"due_date":       dueDate,
				"academic_year":  due.AcademicYear,
			},
			DedupeKey: fmt.Sprintf("fee_reminder:%s:%s", due.ID, dueDate),
		}
		if t.send(ctx, event) {
			sent++
		}
	}
	t.log.Info("due reminders requested", zap.Int("candidates", len(items)), zap.Int("sent", sent))
	return sent, nil
}

type overdueTotals struct {
	count      int
	balance    decimal.Decimal
	maxOverdue int
	categories map[string]struct{}
}

// SendOverdueAlerts requests one alert per student with overdue balances,
// at most once per ISO week.
func (t *Triggers) SendOverdueAlerts(ctx context.Context) (int, error) {
	report, err := t.dues.GetOverdueFees(ctx, duesdomain.ReportFilter{})
	if err != nil {
		return 0, err
	}

	byStudent := map[snowflake.ID]*overdueTotals{}
	for _, group := range report.Categories {
		for _, due := range group.Dues {
			totals, ok := byStudent[due.StudentID]
			if !ok {
				totals = &overdueTotals{balance: decimal.Zero, categories: map[string]struct{}{}}
				byStudent[due.StudentID] = totals
			}
			totals.count++
			totals.balance = totals.balance.Add(due.BalanceAmount)
			totals.categories[due.FeeCategory] = struct{}{}
			if due.OverdueDays > totals.maxOverdue {
				totals.maxOverdue = due.OverdueDays
			}
		}
	}

	students := make([]snowflake.ID, 0, len(byStudent))
	for id := range byStudent {
		students = append(students, id)
	}
	sort.Slice(students, func(i, j int) bool { return students[i] < students[j] })

	year, week := t.clock.Now().ISOWeek()
	sent := 0
	for _, studentID := range students {
		totals := byStudent[studentID]
		categories := make([]string, 0, len(totals.categories))
		for category := range totals.categories {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		event := notificationdomain.Event{
			RecipientStudentID: studentID,
			Title:              "Overdue fees",
			Message: fmt.Sprintf("%d fee(s) totalling %s are overdue, the oldest by %d day(s).",
				totals.count, totals.balance.StringFixed(2), totals.maxOverdue),
			Severity:  notificationdomain.SeverityCritical,
			Category:  notificationdomain.CategoryFeeOverdue,
			ActionURL: t.reminderActionURL,
			Metadata: map[string]any{
				"due_count":        totals.count,
				"total_balance":    totals.balance.StringFixed(2),
				"max_overdue_days": totals.maxOverdue,
				"fee_categories":   categories,
			},
			DedupeKey: fmt.Sprintf("fee_overdue:%s:%d-W%02d", studentID, year, week),
		}
		if t.send(ctx, event) {
			sent++
		}
	}
	t.log.Info("overdue alerts requested", zap.Int("students", len(students)), zap.Int("sent", sent))
	return sent, nil
}

func (t *Triggers) send(ctx context.Context, event notificationdomain.Event) bool {
	if err := t.sink.Notify(ctx, event); err != nil {
		t.log.Warn("failed to request notification",
			zap.String("category", string(event.Category)),
			zap.String("student_id", event.RecipientStudentID.String()),
			zap.Error(err),
		)
		t.metrics.IncNotificationFailure(string(event.Category))
		return false
	}
	return true
}

package migration

import (
	"context"
	"testing"

	"github.com/smallbiznis/feeledger/internal/testutil"
	"gorm.io/gorm"
)

func TestUpCreatesFeeTables(t *testing.T) {
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := Up(context.Background(), sqlDB, "sqlite"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	for _, table := range []string{"students", "fee_structures", "fee_payments", "fee_dues", "fee_audit_logs", "promotion_records", "notification_outbox"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}

	// Running again is a no-op.
	if err := Up(context.Background(), sqlDB, "sqlite"); err != nil {
		t.Fatalf("second migrate up: %v", err)
	}
}

func TestCarryForwardIndexOnlyCoversCarriedDues(t *testing.T) {
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := Up(context.Background(), sqlDB, "sqlite"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	insert := func(id int64, status string) error {
		return db.Exec(`INSERT INTO fee_dues
			(id, student_id, branch_id, fee_structure_id, academic_year, original_grade, current_grade,
			 original_amount, paid_amount, balance_amount, status, fee_category, created_at, updated_at)
			VALUES (?, 100, 1, 10, '2024-2025', '5', '6', 500, 0, 500, ?, 'Tuition', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			id, status).Error
	}
	if err := insert(1, "pending"); err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if err := insert(2, "carried_forward"); err != nil {
		t.Fatalf("insert carried: %v", err)
	}
	if err := insert(3, "carried_forward"); err == nil {
		t.Fatalf("expected duplicate carried_forward row to be rejected")
	}
	if err := insert(4, "pending"); err != nil {
		t.Fatalf("expected second pending row to be allowed, got %v", err)
	}
	assertCount(t, db, 3)
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	if err := Run(context.Background(), nil, "mysql", "up"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func assertCount(t *testing.T, db *gorm.DB, want int64) {
	t.Helper()
	var got int64
	if err := db.Raw("SELECT COUNT(*) FROM fee_dues").Scan(&got).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d rows, got %d", want, got)
	}
}

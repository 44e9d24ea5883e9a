package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/feeledger/internal/school/domain"
	"gorm.io/gorm"
)

type studentRepo struct{}

func ProvideStudents() domain.StudentDirectory {
	return &studentRepo{}
}

func (r *studentRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Student, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *studentRepo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Student, error) {
	return r.findOne(ctx, db, "user_id = ?", userID)
}

func (r *studentRepo) findOne(ctx context.Context, db *gorm.DB, cond string, arg any) (*domain.Student, error) {
	var student domain.Student
	err := db.WithContext(ctx).Where(cond, arg).Take(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) UpdatePlacement(ctx context.Context, db *gorm.DB, id snowflake.ID, grade domain.Grade, academicYear string) error {
	return db.WithContext(ctx).Model(&domain.Student{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"grade":         grade.String(),
			"academic_year": academicYear,
			"section":       nil,
			"updated_at":    db.NowFunc(),
		}).Error
}

type feeStructureRepo struct{}

func ProvideFeeStructures() domain.FeeStructureCatalog {
	return &feeStructureRepo{}
}

func (r *feeStructureRepo) ListActive(ctx context.Context, db *gorm.DB, branchID snowflake.ID, grade domain.Grade, academicYear string) ([]domain.FeeStructure, error) {
	var items []domain.FeeStructure
	err := db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Where("grade IN ?", grade.Variants()).
		Where("academic_year = ?", academicYear).
		Where("is_active = ?", true).
		Order("due_date ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type paymentRepo struct{}

func ProvidePayments() domain.PaymentLookup {
	return &paymentRepo{}
}

var settledStatuses = []string{
	string(domain.PaymentCompleted),
	string(domain.PaymentPartial),
}

func (r *paymentRepo) SettledAmount(ctx context.Context, db *gorm.DB, studentID, feeStructureID snowflake.ID) (decimal.Decimal, error) {
	var payments []domain.FeePayment
	err := db.WithContext(ctx).
		Select("amount").
		Where("student_id = ? AND fee_structure_id = ?", studentID, feeStructureID).
		Where("status IN ?", settledStatuses).
		Find(&payments).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.Amount)
	}
	return total, nil
}

func (r *paymentRepo) HasCompletedPayment(ctx context.Context, db *gorm.DB, studentID, feeStructureID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.FeePayment{}).
		Where("student_id = ? AND fee_structure_id = ?", studentID, feeStructureID).
		Where("status = ?", string(domain.PaymentCompleted)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/feeledger/internal/dues/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, due *domain.FeeDue) error {
	return db.WithContext(ctx).Create(due).Error
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeDue, error) {
	var due domain.FeeDue
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&due).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func (r *repo) UpdateState(ctx context.Context, db *gorm.DB, due *domain.FeeDue) error {
	return db.WithContext(ctx).Model(&domain.FeeDue{}).
		Where("id = ?", due.ID).
		Updates(map[string]any{
			"paid_amount":    due.PaidAmount,
			"balance_amount": due.BalanceAmount,
			"overdue_days":   due.OverdueDays,
			"status":         due.Status,
			"updated_at":     due.UpdatedAt,
		}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.FeeDue, error) {
	query := db.WithContext(ctx).Model(&domain.FeeDue{})
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.BranchID != 0 {
		query = query.Where("branch_id = ?", filter.BranchID)
	}
	if filter.Grade != "" {
		query = query.Where("current_grade = ?", filter.Grade)
	}
	if filter.FeeCategory != "" {
		query = query.Where("fee_category = ?", filter.FeeCategory)
	}
	if filter.AcademicYear != "" {
		query = query.Where("academic_year = ?", filter.AcademicYear)
	}
	if filter.OpenOnly {
		query = query.Where("balance_amount > 0")
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", filter.DueFrom.UTC())
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date < ?", filter.DueBefore.UTC())
	}

	var items []domain.FeeDue
	if err := query.Order("due_date ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListOpenBatch(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]domain.FeeDue, error) {
	var items []domain.FeeDue
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("id > ?", afterID).
		Where("balance_amount > 0").
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindRecentCarryForward(ctx context.Context, db *gorm.DB, studentID snowflake.ID, academicYear, originalGrade string, since time.Time) (*domain.FeeDue, error) {
	var due domain.FeeDue
	err := db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("academic_year = ?", academicYear).
		Where("original_grade = ?", originalGrade).
		Where("status = ?", string(domain.StatusCarriedForward)).
		Where("created_at >= ?", since.UTC()).
		Order("created_at DESC").
		Take(&due).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func (r *repo) CarriedForwardStructureIDs(ctx context.Context, db *gorm.DB, studentID snowflake.ID, academicYear string) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.FeeDue{}).
		Where("student_id = ?", studentID).
		Where("academic_year = ?", academicYear).
		Where("status = ?", string(domain.StatusCarriedForward)).
		Where("fee_structure_id IS NOT NULL").
		Pluck("fee_structure_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/agrocoop/agrocoop/internal/feerule/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, rule *domain.FeeRule) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_rules (
			id, name, fee_type, amount, frequency, unit_label, status, applies_to,
			description, effective_date, created_by, deleted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.Name,
		rule.FeeType,
		rule.Amount,
		rule.Frequency,
		rule.UnitLabel,
		rule.Status,
		rule.AppliesTo,
		rule.Description,
		rule.EffectiveDate,
		rule.CreatedBy,
		rule.DeletedAt,
		rule.CreatedAt,
		rule.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, includeDeleted bool) (*domain.FeeRule, error) {
	var rule domain.FeeRule
	stmt := db.WithContext(ctx).Model(&domain.FeeRule{}).Where("id = ?", id)
	if !includeDeleted {
		stmt = stmt.Where("deleted_at IS NULL")
	}
	if err := stmt.Scan(&rule).Error; err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.FeeRule, error) {
	var items []domain.FeeRule
	stmt := db.WithContext(ctx).Model(&domain.FeeRule{})

	if !filter.IncludeDeleted {
		stmt = stmt.Where("deleted_at IS NULL")
	}
	if filter.FeeType != nil {
		stmt = stmt.Where("fee_type = ?", *filter.FeeType)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.AppliesTo != nil {
		stmt = stmt.Where("applies_to = ?", *filter.AppliesTo)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+name+"%")
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListDueForActivation(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]domain.FeeRule, error) {
	var items []domain.FeeRule
	stmt := db.WithContext(ctx).Model(&domain.FeeRule{}).
		Where("status = ?", domain.StatusScheduled).
		Where("effective_date <= ?", today).
		Where("deleted_at IS NULL").
		Order("effective_date ASC, id ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *domain.FeeRule) error {
	if rule == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE fee_rules
		 SET name = ?, fee_type = ?, amount = ?, frequency = ?, unit_label = ?,
		     status = ?, applies_to = ?, description = ?, effective_date = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		rule.Name,
		rule.FeeType,
		rule.Amount,
		rule.Frequency,
		rule.UnitLabel,
		rule.Status,
		rule.AppliesTo,
		rule.Description,
		rule.EffectiveDate,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE fee_rules SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		at,
		at,
		id,
	).Error
}

package repository

import (
	"context"
	"strings"
	"time"

	"github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, application *domain.FeeApplication) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_applications (
			id, fee_rule_id, member_id, unit_id, amount, due_date, paid_at,
			status, notes, payment_ref, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		application.ID,
		application.FeeRuleID,
		application.MemberID,
		application.UnitID,
		application.Amount,
		application.DueDate,
		application.PaidAt,
		application.Status,
		application.Notes,
		application.PaymentRef,
		application.Metadata,
		application.CreatedAt,
		application.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FeeApplication, error) {
	var a domain.FeeApplication
	err := db.WithContext(ctx).Model(&domain.FeeApplication{}).
		Where("id = ?", id).
		Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) FindByPaymentRef(ctx context.Context, db *gorm.DB, ref string) (*domain.FeeApplication, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	var a domain.FeeApplication
	err := db.WithContext(ctx).Model(&domain.FeeApplication{}).
		Where("payment_ref = ?", ref).
		Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) FindOpenByRuleAndMember(ctx context.Context, db *gorm.DB, ruleID, memberID snowflake.ID) (*domain.FeeApplication, error) {
	var a domain.FeeApplication
	err := db.WithContext(ctx).Model(&domain.FeeApplication{}).
		Where("fee_rule_id = ? AND member_id = ?", ruleID, memberID).
		Where("status IN ?", []domain.Status{domain.StatusPending, domain.StatusOverdue}).
		Limit(1).
		Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.FeeApplication, error) {
	var items []domain.FeeApplication
	stmt := db.WithContext(ctx).Model(&domain.FeeApplication{})

	if filter.FeeRuleID != nil {
		stmt = stmt.Where("fee_rule_id = ?", *filter.FeeRuleID)
	}
	if filter.MemberID != nil {
		stmt = stmt.Where("member_id = ?", *filter.MemberID)
	}
	if filter.UnitID != nil {
		stmt = stmt.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.DueBefore != nil {
		stmt = stmt.Where("due_date < ?", *filter.DueBefore)
	}
	if filter.AfterID != nil {
		stmt = stmt.Where("id < ?", *filter.AfterID)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	if err := stmt.Order("id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.FeeApplication{}).
		Where("fee_rule_id = ?", ruleID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, application *domain.FeeApplication) error {
	if application == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE fee_applications
		 SET status = ?, paid_at = ?, notes = ?, payment_ref = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		application.Status,
		application.PaidAt,
		application.Notes,
		application.PaymentRef,
		application.Metadata,
		application.UpdatedAt,
		application.ID,
	).Error
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, today time.Time, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE fee_applications
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND due_date < ?`,
		domain.StatusOverdue,
		at,
		domain.StatusPending,
		today,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

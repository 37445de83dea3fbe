package repository

import (
	"context"

	"github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByRuleAndUnit(ctx context.Context, db *gorm.DB, ruleID, unitID snowflake.ID) (*domain.FeeRuleUnitAssignment, error) {
	var a domain.FeeRuleUnitAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, fee_rule_id, unit_id, custom_amount, active, created_at, updated_at
		 FROM fee_rule_unit_assignments WHERE fee_rule_id = ? AND unit_id = ?`,
		ruleID,
		unitID,
	).Scan(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == 0 {
		return nil, nil
	}
	return &a, nil
}

func (r *repo) ListActiveByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]domain.FeeRuleUnitAssignment, error) {
	var items []domain.FeeRuleUnitAssignment
	err := db.WithContext(ctx).Raw(
		`SELECT id, fee_rule_id, unit_id, custom_amount, active, created_at, updated_at
		 FROM fee_rule_unit_assignments WHERE fee_rule_id = ? AND active = ?`,
		ruleID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, assignment *domain.FeeRuleUnitAssignment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fee_rule_unit_assignments (
			id, fee_rule_id, unit_id, custom_amount, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.FeeRuleID,
		assignment.UnitID,
		assignment.CustomAmount,
		assignment.Active,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, assignment *domain.FeeRuleUnitAssignment) error {
	if assignment == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE fee_rule_unit_assignments
		 SET custom_amount = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		assignment.CustomAmount,
		assignment.Active,
		assignment.UpdatedAt,
		assignment.ID,
	).Error
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// FeeRuleUnitAssignment attaches a fee rule to a unit, optionally overriding the
// rule's base amount for members of that unit. At most one row exists per
// (fee_rule, unit) pair; re-assigning updates in place.
type FeeRuleUnitAssignment struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	FeeRuleID    snowflake.ID `gorm:"column:fee_rule_id;not null;uniqueIndex:ux_fee_rule_unit,priority:1"`
	UnitID       snowflake.ID `gorm:"column:unit_id;not null;uniqueIndex:ux_fee_rule_unit,priority:2"`
	CustomAmount *float64     `gorm:"column:custom_amount;type:numeric"`
	Active       bool         `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeeRuleUnitAssignment) TableName() string { return "fee_rule_unit_assignments" }

type Repository interface {
	FindByRuleAndUnit(ctx context.Context, db *gorm.DB, ruleID, unitID snowflake.ID) (*FeeRuleUnitAssignment, error)
	ListActiveByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) ([]FeeRuleUnitAssignment, error)
	Insert(ctx context.Context, db *gorm.DB, assignment *FeeRuleUnitAssignment) error
	Update(ctx context.Context, db *gorm.DB, assignment *FeeRuleUnitAssignment) error
}

// UnitAssignment is one unit's slice of an assignment request. A nil
// CustomAmount means the rule's base amount applies.
type UnitAssignment struct {
	UnitID       string   `json:"unit_id"`
	CustomAmount *float64 `json:"custom_amount,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

type AssignRequest struct {
	FeeRuleID   string           `json:"fee_rule_id"`
	Assignments []UnitAssignment `json:"assignments"`
}

type AssignResponse struct {
	Assigned int `json:"assigned"`
}

type Response struct {
	ID           string   `json:"id"`
	FeeRuleID    string   `json:"fee_rule_id"`
	UnitID       string   `json:"unit_id"`
	CustomAmount *float64 `json:"custom_amount,omitempty"`
	Active       bool     `json:"active"`
}

type Service interface {
	// Assign upserts one assignment row per unit inside a single transaction
	// and returns how many units were assigned.
	Assign(ctx context.Context, req AssignRequest) (*AssignResponse, error)
	ListByRule(ctx context.Context, ruleID string) ([]Response, error)
}

var (
	ErrInvalidRule   = errors.New("invalid_fee_rule")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrEmptyRequest  = errors.New("empty_assignment_request")
)

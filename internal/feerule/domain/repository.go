package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	FeeType        *FeeType
	Status         *Status
	AppliesTo      *AppliesTo
	Name           string
	IncludeDeleted bool
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, rule *FeeRule) error
	// FindByID skips soft-deleted rows unless includeDeleted is set.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, includeDeleted bool) (*FeeRule, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]FeeRule, error)
	// ListDueForActivation returns scheduled, non-deleted rules whose effective
	// date is on or before the given day.
	ListDueForActivation(ctx context.Context, db *gorm.DB, today time.Time, limit int) ([]FeeRule, error)
	Update(ctx context.Context, db *gorm.DB, rule *FeeRule) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}

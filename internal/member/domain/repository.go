package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EligibilityFilter narrows the member set when a fee rule is expanded into
// per-member obligations.
type EligibilityFilter struct {
	Roles       []Role
	Status      *Status
	JoinedAfter *time.Time
	UnitIDs     []snowflake.ID
}

type ListFilter struct {
	Role   *Role
	Status *Status
	UnitID *snowflake.ID
	Name   string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Member, error)
	ListEligible(ctx context.Context, db *gorm.DB, filter EligibilityFilter) ([]Member, error)
	Update(ctx context.Context, db *gorm.DB, member *Member) error
}

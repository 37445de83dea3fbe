package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	FeeRuleID *snowflake.ID
	MemberID  *snowflake.ID
	UnitID    *snowflake.ID
	Status    *Status
	DueBefore *time.Time
	// AfterID and Limit implement keyset pagination: snowflake ids are
	// time-ordered, so paging on id preserves creation order.
	AfterID *snowflake.ID
	Limit   int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, application *FeeApplication) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FeeApplication, error)
	FindByPaymentRef(ctx context.Context, db *gorm.DB, ref string) (*FeeApplication, error)
	// FindOpenByRuleAndMember returns the pending or overdue application for the
	// pair, if one exists. Backed by a partial unique index so concurrent
	// writers cannot create a second open row.
	FindOpenByRuleAndMember(ctx context.Context, db *gorm.DB, ruleID, memberID snowflake.ID) (*FeeApplication, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]FeeApplication, error)
	CountByRule(ctx context.Context, db *gorm.DB, ruleID snowflake.ID) (int64, error)
	Update(ctx context.Context, db *gorm.DB, application *FeeApplication) error
	// MarkOverdue flips pending applications whose due date has passed and
	// returns how many rows changed.
	MarkOverdue(ctx context.Context, db *gorm.DB, today time.Time, at time.Time) (int64, error)
}

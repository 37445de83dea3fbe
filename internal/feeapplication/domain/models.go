package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Open reports whether the application still represents an outstanding
// obligation. The at-most-one-open-per-(rule, member) invariant is defined over
// this set.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusOverdue
}

// FeeApplication is one member's concrete billing obligation generated from a
// fee rule. Amount is a point-in-time snapshot: later changes to the rule never
// touch existing applications. Rows are financial records and are never
// hard-deleted.
type FeeApplication struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	FeeRuleID  snowflake.ID      `gorm:"column:fee_rule_id;not null;index"`
	MemberID   snowflake.ID      `gorm:"column:member_id;not null;index"`
	UnitID     *snowflake.ID     `gorm:"column:unit_id"`
	Amount     float64           `gorm:"type:numeric;not null"`
	DueDate    time.Time         `gorm:"column:due_date;type:date;not null;index"`
	PaidAt     *time.Time        `gorm:"column:paid_at"`
	Status     Status            `gorm:"type:text;not null;index"`
	Notes      *string           `gorm:"type:text"`
	PaymentRef *string           `gorm:"column:payment_ref;type:text;uniqueIndex"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeeApplication) TableName() string { return "fee_applications" }

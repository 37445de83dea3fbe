package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type FeeType string

const (
	FeeTypeLand       FeeType = "land"
	FeeTypeEquipment  FeeType = "equipment"
	FeeTypeProcessing FeeType = "processing"
	FeeTypeStorage    FeeType = "storage"
	FeeTypeTraining   FeeType = "training"
	FeeTypeOther      FeeType = "other"
)

func ValidFeeType(t FeeType) bool {
	switch t {
	case FeeTypeLand, FeeTypeEquipment, FeeTypeProcessing, FeeTypeStorage, FeeTypeTraining, FeeTypeOther:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyDaily          Frequency = "daily"
	FrequencyWeekly         Frequency = "weekly"
	FrequencyMonthly        Frequency = "monthly"
	FrequencyQuarterly      Frequency = "quarterly"
	FrequencyYearly         Frequency = "yearly"
	FrequencyPerTransaction Frequency = "per_transaction"
	FrequencyOneTime        Frequency = "one_time"
)

func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly,
		FrequencyYearly, FrequencyPerTransaction, FrequencyOneTime:
		return true
	}
	return false
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusActive, StatusInactive:
		return true
	}
	return false
}

type AppliesTo string

const (
	AppliesToAllMembers    AppliesTo = "all_members"
	AppliesToUnitLeaders   AppliesTo = "unit_leaders"
	AppliesToNewMembers    AppliesTo = "new_members"
	AppliesToActiveMembers AppliesTo = "active_members"
	AppliesToSpecificUnits AppliesTo = "specific_units"
)

func ValidAppliesTo(a AppliesTo) bool {
	switch a {
	case AppliesToAllMembers, AppliesToUnitLeaders, AppliesToNewMembers,
		AppliesToActiveMembers, AppliesToSpecificUnits:
		return true
	}
	return false
}

// FeeRule is a billing policy: what kind of fee, how much, how often, and to whom.
// Concrete obligations are FeeApplication rows expanded from an active rule.
type FeeRule struct {
	ID            snowflake.ID `gorm:"primaryKey"`
	Name          string       `gorm:"type:text;not null"`
	FeeType       FeeType      `gorm:"column:fee_type;type:text;not null;index:ix_fee_rules_type_status,priority:1"`
	Amount        float64      `gorm:"type:numeric;not null"`
	Frequency     Frequency    `gorm:"type:text;not null"`
	UnitLabel     string       `gorm:"column:unit_label;type:text"`
	Status        Status       `gorm:"type:text;not null;index:ix_fee_rules_type_status,priority:2;index:ix_fee_rules_status_effective,priority:1"`
	AppliesTo     AppliesTo    `gorm:"column:applies_to;type:text;not null"`
	Description   *string      `gorm:"type:text"`
	EffectiveDate time.Time    `gorm:"column:effective_date;type:date;not null;index:ix_fee_rules_status_effective,priority:2"`
	CreatedBy     string       `gorm:"column:created_by;type:text"`
	DeletedAt     *time.Time   `gorm:"column:deleted_at;index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FeeRule) TableName() string { return "fee_rules" }

func (r *FeeRule) Deleted() bool {
	return r.DeletedAt != nil
}

// ResolveStatus applies the activation gate uniformly on create and update: a
// request for scheduled, or for active with a future effective date, always
// persists as scheduled. A rule can never be externally marked active ahead of
// its effective date.
func ResolveStatus(requested Status, effectiveDate, today time.Time) Status {
	if requested == StatusScheduled {
		return StatusScheduled
	}
	if requested == StatusActive && dateOnly(effectiveDate).After(dateOnly(today)) {
		return StatusScheduled
	}
	return requested
}

// Effective reports whether the rule's effective date has arrived. Like the
// activation gate it compares calendar dates only, so an effective date stored
// with a time-of-day never pushes effectiveness to the next day.
func (r *FeeRule) Effective(today time.Time) bool {
	return !dateOnly(r.EffectiveDate).After(dateOnly(today))
}

// ShouldBeActivated reports whether the rule is scheduled and its effective
// date has arrived. The comparison is inclusive: a rule effective today is due.
func (r *FeeRule) ShouldBeActivated(today time.Time) bool {
	if r.Status != StatusScheduled {
		return false
	}
	return !dateOnly(r.EffectiveDate).After(dateOnly(today))
}

// Activate transitions the rule to active when due. Returns false and leaves
// the rule untouched otherwise; callers invoking it speculatively must treat
// that as an expected no-op, not an error.
func (r *FeeRule) Activate(today time.Time) bool {
	if !r.ShouldBeActivated(today) {
		return false
	}
	r.Status = StatusActive
	return true
}

// DueDate computes when an obligation generated today falls due. One-off fees
// get a fixed grace window; recurring fees are due one period from today.
func DueDate(freq Frequency, today time.Time, graceDays int) time.Time {
	base := dateOnly(today)
	switch freq {
	case FrequencyDaily:
		return base.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return base.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return base.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return base.AddDate(0, 3, 0)
	case FrequencyYearly:
		return base.AddDate(1, 0, 0)
	case FrequencyOneTime, FrequencyPerTransaction:
		return base.AddDate(0, 0, graceDays)
	default:
		return base
	}
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	// Delete soft-deletes a rule. Refused while any fee applications reference it.
	Delete(ctx context.Context, id string) error
	// Schedule sets a future effective date and forces the rule to scheduled.
	// Calling it again with the same date is a no-op success.
	Schedule(ctx context.Context, id string, effectiveDate time.Time) (*Response, error)
	// Activate transitions a due scheduled rule to active. ErrNotDue when the
	// effective date has not arrived.
	Activate(ctx context.Context, id string) (*Response, error)
}

type CreateRequest struct {
	Name          string    `json:"name"`
	FeeType       FeeType   `json:"fee_type"`
	Amount        float64   `json:"amount"`
	Frequency     Frequency `json:"frequency"`
	UnitLabel     string    `json:"unit_label"`
	Status        *Status   `json:"status"`
	AppliesTo     AppliesTo `json:"applies_to"`
	Description   *string   `json:"description"`
	EffectiveDate time.Time `json:"effective_date"`
	CreatedBy     string    `json:"created_by"`
}

type UpdateRequest struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name,omitempty"`
	FeeType       *FeeType   `json:"fee_type,omitempty"`
	Amount        *float64   `json:"amount,omitempty"`
	Frequency     *Frequency `json:"frequency,omitempty"`
	UnitLabel     *string    `json:"unit_label,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	AppliesTo     *AppliesTo `json:"applies_to,omitempty"`
	Description   *string    `json:"description,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
}

type ListRequest struct {
	FeeType   *FeeType
	Status    *Status
	AppliesTo *AppliesTo
	Name      string
}

type Response struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FeeType       FeeType   `json:"fee_type"`
	Amount        float64   `json:"amount"`
	Frequency     Frequency `json:"frequency"`
	UnitLabel     string    `json:"unit_label,omitempty"`
	Status        Status    `json:"status"`
	AppliesTo     AppliesTo `json:"applies_to"`
	Description   *string   `json:"description,omitempty"`
	EffectiveDate time.Time `json:"effective_date"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidFeeType       = errors.New("invalid_fee_type")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidFrequency     = errors.New("invalid_frequency")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidAppliesTo     = errors.New("invalid_applies_to")
	ErrInvalidEffectiveDate = errors.New("invalid_effective_date")
	ErrNotFound             = errors.New("not_found")
	// ErrNotDue is a precondition failure, not a validation error: the rule
	// exists and the request is well formed, it is just not activatable yet.
	ErrNotDue              = errors.New("rule_not_due")
	ErrRuleHasApplications = errors.New("rule_has_applications")
)

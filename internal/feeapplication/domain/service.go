package domain

import (
	"context"
	"errors"
	"time"

	"github.com/agrocoop/agrocoop/pkg/db/pagination"
)

type Service interface {
	// Apply expands an active fee rule into one pending application per eligible
	// member, skipping members who already have an open application for the
	// rule. All inserts happen in one transaction.
	Apply(ctx context.Context, ruleID string) (*ApplyResult, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	// Cancel transitions a pending or overdue application to cancelled.
	Cancel(ctx context.Context, id string, reason string) (*Response, error)
	// MarkPaid settles an application from a successful payment callback.
	MarkPaid(ctx context.Context, id string, paidAt time.Time, paymentRef string) (*Response, error)
	// SweepOverdue flips pending applications past their due date to overdue.
	SweepOverdue(ctx context.Context) (int64, error)
}

// ApplyResult distinguishes "nothing to do" from failure: zero created with
// everyone skipped is a successful outcome.
type ApplyResult struct {
	RuleID   string `json:"rule_id"`
	Eligible int    `json:"eligible"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
}

type ListRequest struct {
	FeeRuleID *string
	MemberID  *string
	UnitID    *string
	Status    *Status
	DueBefore *time.Time
	PageToken string
	PageSize  int
}

type ListResponse struct {
	Items    []Response          `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Response struct {
	ID         string         `json:"id"`
	FeeRuleID  string         `json:"fee_rule_id"`
	MemberID   string         `json:"member_id"`
	UnitID     *string        `json:"unit_id,omitempty"`
	Amount     float64        `json:"amount"`
	DueDate    time.Time      `json:"due_date"`
	PaidAt     *time.Time     `json:"paid_at,omitempty"`
	Status     Status         `json:"status"`
	Notes      *string        `json:"notes,omitempty"`
	PaymentRef *string        `json:"payment_ref,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidRule   = errors.New("invalid_fee_rule")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrNotFound      = errors.New("not_found")
	// ErrRuleNotActive and ErrRuleNotEffective are precondition failures on
	// Apply: the caller asked to expand a rule that is not ready.
	ErrRuleNotActive    = errors.New("rule_not_active")
	ErrRuleNotEffective = errors.New("rule_not_effective")
	ErrNotOpen          = errors.New("application_not_open")
	ErrAlreadyPaid      = errors.New("application_already_paid")
)

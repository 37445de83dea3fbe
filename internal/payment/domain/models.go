package domain

import (
	"context"
	"errors"
	"time"
)

// CallbackStatus is the terminal status reported by the payment gateway.
type CallbackStatus string

const (
	CallbackSuccessful CallbackStatus = "SUCCESSFUL"
	CallbackFailed     CallbackStatus = "FAILED"
	CallbackRejected   CallbackStatus = "REJECTED"
	CallbackTimeout    CallbackStatus = "TIMEOUT"
)

func ValidCallbackStatus(s CallbackStatus) bool {
	switch s {
	case CallbackSuccessful, CallbackFailed, CallbackRejected, CallbackTimeout:
		return true
	}
	return false
}

// Settled reports whether the gateway confirmed the money moved. Only settled
// callbacks transition an application to paid; everything else is recorded and
// the obligation stays open for retry.
func (s CallbackStatus) Settled() bool {
	return s == CallbackSuccessful
}

// CallbackRequest is the gateway webhook payload. ApplicationID and PaymentRef
// are alternative lookups; at least one must be present.
type CallbackRequest struct {
	ApplicationID string         `json:"application_id"`
	PaymentRef    string         `json:"payment_ref"`
	Status        CallbackStatus `json:"status"`
	Amount        *float64       `json:"amount,omitempty"`
	PaidAt        *time.Time     `json:"paid_at,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

type CallbackResult struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
	Settled       bool   `json:"settled"`
}

type Service interface {
	// ProcessCallback reconciles a gateway callback against the referenced fee
	// application. Idempotent for settled callbacks on an already-paid row.
	ProcessCallback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

var (
	ErrInvalidStatus    = errors.New("invalid_callback_status")
	ErrMissingReference = errors.New("missing_payment_reference")
	ErrNotFound         = errors.New("application_not_found")
)

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
}

type CreateRequest struct {
	Name   string  `json:"name"`
	Phone  string  `json:"phone"`
	Role   Role    `json:"role"`
	Status *Status `json:"status"`
	UnitID *string `json:"unit_id"`
}

type UpdateRequest struct {
	ID     string  `json:"id"`
	Name   *string `json:"name,omitempty"`
	Role   *Role   `json:"role,omitempty"`
	Status *Status `json:"status,omitempty"`
	UnitID *string `json:"unit_id,omitempty"`
}

type ListRequest struct {
	Role   *Role
	Status *Status
	UnitID *string
	Name   string
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	UnitID    *string   `json:"unit_id,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPhone  = errors.New("invalid_phone")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidUnit   = errors.New("invalid_unit")
	ErrPhoneExists   = errors.New("phone_exists")
	ErrNotFound      = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Unit is a working group of members inside a zone. Fee rules can carry
// per-unit amount overrides, so the fee engine resolves units through this package.
type Unit struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	Name     string        `gorm:"type:text;not null"`
	ZoneID   snowflake.ID  `gorm:"column:zone_id;not null;index"`
	LeaderID *snowflake.ID `gorm:"column:leader_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Unit) TableName() string { return "units" }

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, unit *Unit) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Unit, error)
	ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Unit, error)
	List(ctx context.Context, db *gorm.DB, zoneID *snowflake.ID) ([]Unit, error)
	Update(ctx context.Context, db *gorm.DB, unit *Unit) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, zoneID *string) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	Name     string  `json:"name"`
	ZoneID   string  `json:"zone_id"`
	LeaderID *string `json:"leader_id"`
}

type UpdateRequest struct {
	ID       string  `json:"id"`
	Name     *string `json:"name,omitempty"`
	LeaderID *string `json:"leader_id,omitempty"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ZoneID    string    `json:"zone_id"`
	LeaderID  *string   `json:"leader_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidZone   = errors.New("invalid_zone")
	ErrInvalidLeader = errors.New("invalid_leader")
	ErrNotFound      = errors.New("not_found")
)

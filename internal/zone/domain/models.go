package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Zone struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string       `gorm:"type:text;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Zone) TableName() string { return "zones" }

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, zone *Zone) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Zone, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Zone, error)
	List(ctx context.Context, db *gorm.DB) ([]Zone, error)
}

var (
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidName = errors.New("invalid_name")
	ErrNotFound    = errors.New("not_found")
)

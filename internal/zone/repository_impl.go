package zone

import (
	"context"
	"strings"

	"github.com/agrocoop/agrocoop/internal/zone/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, zone *domain.Zone) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO zones (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		zone.ID,
		zone.Name,
		zone.CreatedAt,
		zone.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Zone, error) {
	var z domain.Zone
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM zones WHERE id = ?`,
		id,
	).Scan(&z).Error
	if err != nil {
		return nil, err
	}
	if z.ID == 0 {
		return nil, nil
	}
	return &z, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Zone, error) {
	var z domain.Zone
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM zones WHERE name = ?`,
		strings.TrimSpace(name),
	).Scan(&z).Error
	if err != nil {
		return nil, err
	}
	if z.ID == 0 {
		return nil, nil
	}
	return &z, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]domain.Zone, error) {
	var items []domain.Zone
	if err := db.WithContext(ctx).Model(&domain.Zone{}).Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

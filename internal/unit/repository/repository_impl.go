package repository

import (
	"context"

	"github.com/agrocoop/agrocoop/internal/unit/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, unit *domain.Unit) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO units (id, name, zone_id, leader_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		unit.ID,
		unit.Name,
		unit.ZoneID,
		unit.LeaderID,
		unit.CreatedAt,
		unit.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Unit, error) {
	var u domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, zone_id, leader_id, created_at, updated_at FROM units WHERE id = ?`,
		id,
	).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, nil
	}
	return &u, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Unit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Unit
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, zone_id, leader_id, created_at, updated_at FROM units WHERE id IN ?`,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, zoneID *snowflake.ID) ([]domain.Unit, error) {
	var items []domain.Unit
	stmt := db.WithContext(ctx).Model(&domain.Unit{})
	if zoneID != nil {
		stmt = stmt.Where("zone_id = ?", *zoneID)
	}
	if err := stmt.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, unit *domain.Unit) error {
	if unit == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE units SET name = ?, leader_id = ?, updated_at = ? WHERE id = ?`,
		unit.Name,
		unit.LeaderID,
		unit.UpdatedAt,
		unit.ID,
	).Error
}

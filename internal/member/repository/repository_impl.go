package repository

import (
	"context"
	"strings"

	"github.com/agrocoop/agrocoop/internal/member/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (
			id, name, phone, role, status, unit_id, joined_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.Name,
		member.Phone,
		member.Role,
		member.Status,
		member.UnitID,
		member.JoinedAt,
		member.CreatedAt,
		member.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	var m domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, role, status, unit_id, joined_at, created_at, updated_at
		 FROM members WHERE id = ?`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Member, error) {
	var items []domain.Member
	stmt := db.WithContext(ctx).Model(&domain.Member{})

	if filter.Role != nil {
		stmt = stmt.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.UnitID != nil {
		stmt = stmt.Where("unit_id = ?", *filter.UnitID)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+name+"%")
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListEligible(ctx context.Context, db *gorm.DB, filter domain.EligibilityFilter) ([]domain.Member, error) {
	var items []domain.Member
	stmt := db.WithContext(ctx).Model(&domain.Member{})

	if len(filter.Roles) > 0 {
		stmt = stmt.Where("role IN ?", filter.Roles)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.JoinedAfter != nil {
		stmt = stmt.Where("joined_at >= ?", filter.JoinedAfter.UTC())
	}
	if len(filter.UnitIDs) > 0 {
		stmt = stmt.Where("unit_id IN ?", filter.UnitIDs)
	}

	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	if member == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE members
		 SET name = ?, role = ?, status = ?, unit_id = ?, updated_at = ?
		 WHERE id = ?`,
		member.Name,
		member.Role,
		member.Status,
		member.UnitID,
		member.UpdatedAt,
		member.ID,
	).Error
}

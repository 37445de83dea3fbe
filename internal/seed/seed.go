package seed

import (
	"context"
	"errors"
	"time"

	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	defaultZoneName = "Main"
	defaultUnitName = "General"
)

// EnsureDefaultZoneAndUnit seeds a zone and unit so a fresh install can
// register members immediately.
func EnsureDefaultZoneAndUnit(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		zone, err := ensureZoneTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureUnitTx(ctx, tx, node, zone.ID)
	})
}

func ensureZoneTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*zonedomain.Zone, error) {
	var zone zonedomain.Zone
	err := tx.WithContext(ctx).Where("name = ?", defaultZoneName).First(&zone).Error
	if err == nil {
		return &zone, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	zone = zonedomain.Zone{
		ID:        node.Generate(),
		Name:      defaultZoneName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func ensureUnitTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, zoneID snowflake.ID) error {
	var unit unitdomain.Unit
	err := tx.WithContext(ctx).Where("name = ? AND zone_id = ?", defaultUnitName, zoneID).First(&unit).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	return tx.WithContext(ctx).Create(&unitdomain.Unit{
		ID:        node.Generate(),
		Name:      defaultUnitName,
		ZoneID:    zoneID,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error
}

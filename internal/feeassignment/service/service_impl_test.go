package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	"github.com/agrocoop/agrocoop/internal/feeassignment/repository"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	feerulerepository "github.com/agrocoop/agrocoop/internal/feerule/repository"
	"github.com/agrocoop/agrocoop/internal/migration"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	unitrepository "github.com/agrocoop/agrocoop/internal/unit/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  domain.Service
	rule *feeruledomain.FeeRule
	unit *unitdomain.Unit
}

func setupAssignmentTest(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}

	fc := clock.NewFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	ruleRepo := feerulerepository.Provide()
	rule := &feeruledomain.FeeRule{
		ID:            node.Generate(),
		Name:          "Equipment fee",
		FeeType:       feeruledomain.FeeTypeEquipment,
		Amount:        100,
		Frequency:     feeruledomain.FrequencyMonthly,
		Status:        feeruledomain.StatusActive,
		AppliesTo:     feeruledomain.AppliesToSpecificUnits,
		EffectiveDate: clock.Today(fc),
		CreatedAt:     fc.Now(),
		UpdatedAt:     fc.Now(),
	}
	if err := ruleRepo.Create(ctx, db, rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	unitRepo := unitrepository.Provide()
	unit := &unitdomain.Unit{
		ID:        node.Generate(),
		Name:      "Coffee growers",
		ZoneID:    node.Generate(),
		CreatedAt: fc.Now(),
		UpdatedAt: fc.Now(),
	}
	if err := unitRepo.Create(ctx, db, unit); err != nil {
		t.Fatalf("seed unit: %v", err)
	}

	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fc,
		Repo:     repository.Provide(),
		RuleRepo: ruleRepo,
		UnitRepo: unitRepo,
	})

	return &fixture{db: db, node: node, svc: svc, rule: rule, unit: unit}
}

func TestAssignCreatesAndUpserts(t *testing.T) {
	f := setupAssignmentTest(t)
	ctx := context.Background()

	custom := 80.0
	resp, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID: f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{
			{UnitID: f.unit.ID.String(), CustomAmount: &custom},
		},
	})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if resp.Assigned != 1 {
		t.Fatalf("assigned = %d, want 1", resp.Assigned)
	}

	// Re-assigning the same unit updates in place rather than adding a row.
	updated := 95.0
	if _, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID: f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{
			{UnitID: f.unit.ID.String(), CustomAmount: &updated},
		},
	}); err != nil {
		t.Fatalf("re-assign: %v", err)
	}

	items, err := f.svc.ListByRule(ctx, f.rule.ID.String())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("assignment count = %d, want 1", len(items))
	}
	if items[0].CustomAmount == nil || *items[0].CustomAmount != 95 {
		t.Fatalf("custom amount = %v, want 95", items[0].CustomAmount)
	}

	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM fee_rule_unit_assignments`).Scan(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestAssignClearsOverrideWithNilAmount(t *testing.T) {
	f := setupAssignmentTest(t)
	ctx := context.Background()

	custom := 80.0
	if _, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID:   f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String(), CustomAmount: &custom}},
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if _, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID:   f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String()}},
	}); err != nil {
		t.Fatalf("clear override: %v", err)
	}

	items, err := f.svc.ListByRule(ctx, f.rule.ID.String())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].CustomAmount != nil {
		t.Fatalf("override not cleared: %+v", items)
	}
}

func TestAssignValidation(t *testing.T) {
	f := setupAssignmentTest(t)
	ctx := context.Background()
	negative := -10.0

	tests := []struct {
		name    string
		req     domain.AssignRequest
		wantErr error
	}{
		{
			"bad rule id",
			domain.AssignRequest{FeeRuleID: "nope", Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String()}}},
			domain.ErrInvalidRule,
		},
		{
			"empty assignments",
			domain.AssignRequest{FeeRuleID: f.rule.ID.String()},
			domain.ErrEmptyRequest,
		},
		{
			"unknown rule",
			domain.AssignRequest{FeeRuleID: f.node.Generate().String(), Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String()}}},
			feeruledomain.ErrNotFound,
		},
		{
			"unknown unit",
			domain.AssignRequest{FeeRuleID: f.rule.ID.String(), Assignments: []domain.UnitAssignment{{UnitID: f.node.Generate().String()}}},
			domain.ErrInvalidUnit,
		},
		{
			"negative amount",
			domain.AssignRequest{FeeRuleID: f.rule.ID.String(), Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String(), CustomAmount: &negative}}},
			domain.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Assign(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssignDeactivates(t *testing.T) {
	f := setupAssignmentTest(t)
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID:   f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String()}},
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	inactive := false
	if _, err := f.svc.Assign(ctx, domain.AssignRequest{
		FeeRuleID:   f.rule.ID.String(),
		Assignments: []domain.UnitAssignment{{UnitID: f.unit.ID.String(), Active: &inactive}},
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	// The listing only surfaces active assignments.
	items, err := f.svc.ListByRule(ctx, f.rule.ID.String())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("deactivated assignment still listed: %+v", items)
	}

	// The row itself survives for re-activation.
	var count int64
	if err := f.db.Raw(`SELECT COUNT(*) FROM fee_rule_unit_assignments WHERE active = ?`, false).Scan(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("inactive row count = %d, want 1", count)
	}
}

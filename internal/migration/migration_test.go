package migration

import (
	"strings"
	"testing"
	"time"

	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func setupMigrationTest(t *testing.T) *gorm.DB {
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
	return db
}

func TestAutoMigrateIsRerunnable(t *testing.T) {
	db := setupMigrationTest(t)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestAutoMigrateGuardsOpenApplications(t *testing.T) {
	db := setupMigrationTest(t)
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}
	ruleID := node.Generate()
	memberID := node.Generate()
	due := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	newApp := func(status applicationdomain.Status) *applicationdomain.FeeApplication {
		return &applicationdomain.FeeApplication{
			ID:        node.Generate(),
			FeeRuleID: ruleID,
			MemberID:  memberID,
			Amount:    150,
			DueDate:   due,
			Status:    status,
		}
	}

	if err := db.Create(newApp(applicationdomain.StatusPending)).Error; err != nil {
		t.Fatalf("first open application: %v", err)
	}
	if err := db.Create(newApp(applicationdomain.StatusOverdue)).Error; err == nil {
		t.Fatal("second open application for the same (rule, member) must be rejected")
	}
	// Settled rows stay outside the guard.
	if err := db.Create(newApp(applicationdomain.StatusPaid)).Error; err != nil {
		t.Fatalf("paid application: %v", err)
	}
}

func TestOpenSlotGuardPerDialect(t *testing.T) {
	for _, stmt := range openSlotGuard("mysql") {
		if strings.Contains(stmt, "IF NOT EXISTS") {
			t.Fatalf("mysql has no IF NOT EXISTS for this DDL: %s", stmt)
		}
		if strings.Contains(stmt, "WHERE") {
			t.Fatalf("mysql has no partial indexes: %s", stmt)
		}
	}
	mysqlDDL := strings.Join(openSlotGuard("mysql"), "\n")
	if !strings.Contains(mysqlDDL, "GENERATED ALWAYS") {
		t.Fatalf("mysql guard must use a generated column:\n%s", mysqlDDL)
	}

	sqliteDDL := strings.Join(openSlotGuard("sqlite"), "\n")
	if !strings.Contains(sqliteDDL, "WHERE status IN ('pending', 'overdue')") {
		t.Fatalf("sqlite guard must be a partial index:\n%s", sqliteDDL)
	}
}

func TestIsExistingObjectErr(t *testing.T) {
	if !isExistingObjectErr(&mysqldriver.MySQLError{Number: 1060, Message: "Duplicate column name 'open_slot'"}) {
		t.Fatal("duplicate column must be tolerated")
	}
	if !isExistingObjectErr(&mysqldriver.MySQLError{Number: 1061, Message: "Duplicate key name 'ux_fee_applications_open'"}) {
		t.Fatal("duplicate key name must be tolerated")
	}
	if isExistingObjectErr(&mysqldriver.MySQLError{Number: 1064, Message: "syntax error"}) {
		t.Fatal("syntax errors must fail the migration")
	}
	if isExistingObjectErr(nil) {
		t.Fatal("nil is not an existing-object error")
	}
}

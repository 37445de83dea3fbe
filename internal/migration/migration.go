package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	auditdomain "github.com/agrocoop/agrocoop/internal/audit/domain"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations against postgres. The fee
// engine is fully usable out of the box: all tables are created on startup.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the gorm models. Used for sqlite and
// mysql databases where the embedded postgres migrations do not apply. The
// unique guard on open applications is created by hand because gorm tags
// cannot express it.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	if err := db.AutoMigrate(
		&zonedomain.Zone{},
		&unitdomain.Unit{},
		&memberdomain.Member{},
		&feeruledomain.FeeRule{},
		&assignmentdomain.FeeRuleUnitAssignment{},
		&applicationdomain.FeeApplication{},
		&auditdomain.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range openSlotGuard(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil && !isExistingObjectErr(err) {
			return fmt.Errorf("create open application guard: %w", err)
		}
	}
	return nil
}

// openSlotGuard returns the DDL enforcing at most one open application per
// (rule, member) pair. Sqlite supports partial unique indexes directly. Mysql
// has neither partial indexes nor IF NOT EXISTS on CREATE INDEX, so it gets a
// stored generated column that is NULL for settled rows (mysql unique indexes
// admit any number of NULLs) and a plain unique index over it.
func openSlotGuard(dialect string) []string {
	if dialect == "mysql" {
		return []string{
			`ALTER TABLE fee_applications
			 ADD COLUMN open_slot VARCHAR(48)
			 GENERATED ALWAYS AS (CASE WHEN status IN ('pending', 'overdue')
			   THEN CONCAT(fee_rule_id, ':', member_id) END) STORED`,
			`CREATE UNIQUE INDEX ux_fee_applications_open ON fee_applications (open_slot)`,
		}
	}
	return []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_fee_applications_open
		 ON fee_applications (fee_rule_id, member_id)
		 WHERE status IN ('pending', 'overdue')`,
	}
}

// isExistingObjectErr reports whether the DDL failed only because a previous
// start already created the column or index. Mysql has no idempotent form for
// either statement, so reruns surface as duplicate-object errors.
func isExistingObjectErr(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1060: duplicate column name, 1061: duplicate key name.
		return mysqlErr.Number == 1060 || mysqlErr.Number == 1061
	}
	return false
}

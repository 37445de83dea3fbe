// Standalone scheduler worker: activates due fee rules and sweeps overdue
// applications without serving HTTP traffic.
package main

import (
	"github.com/agrocoop/agrocoop/internal/audit"
	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/config"
	"github.com/agrocoop/agrocoop/internal/feeapplication"
	"github.com/agrocoop/agrocoop/internal/feeassignment"
	"github.com/agrocoop/agrocoop/internal/feerule"
	"github.com/agrocoop/agrocoop/internal/logger"
	"github.com/agrocoop/agrocoop/internal/member"
	"github.com/agrocoop/agrocoop/internal/observability"
	"github.com/agrocoop/agrocoop/internal/scheduler"
	"github.com/agrocoop/agrocoop/internal/unit"
	"github.com/agrocoop/agrocoop/internal/zone"
	"github.com/agrocoop/agrocoop/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,

		audit.Module,
		zone.Module,
		unit.Module,
		member.Module,
		feerule.Module,
		feeassignment.Module,
		feeapplication.Module,

		scheduler.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/agrocoop/agrocoop/internal/audit"
	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/config"
	"github.com/agrocoop/agrocoop/internal/feeapplication"
	"github.com/agrocoop/agrocoop/internal/feeassignment"
	"github.com/agrocoop/agrocoop/internal/feerule"
	"github.com/agrocoop/agrocoop/internal/logger"
	"github.com/agrocoop/agrocoop/internal/member"
	"github.com/agrocoop/agrocoop/internal/migration"
	"github.com/agrocoop/agrocoop/internal/observability"
	"github.com/agrocoop/agrocoop/internal/payment"
	"github.com/agrocoop/agrocoop/internal/scheduler"
	"github.com/agrocoop/agrocoop/internal/server"
	"github.com/agrocoop/agrocoop/internal/unit"
	"github.com/agrocoop/agrocoop/internal/zone"
	"github.com/agrocoop/agrocoop/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "agrocoop",
		Short:   "Agrocoop fee engine CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newSchedulerCmd(), newAllCmd(), newActivateScheduledCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newActivateScheduledCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "activate-scheduled",
		Short: "Activate scheduled fee rules whose effective date has arrived",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivateScheduled(cmd, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the rules that would be activated without changing anything")
	return cmd
}

func baseModules() fx.Option {
	return fx.Options(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
	)
}

func domainModules() fx.Option {
	return fx.Options(
		audit.Module,
		zone.Module,
		unit.Module,
		member.Module,
		feerule.Module,
		feeassignment.Module,
		feeapplication.Module,
		payment.Module,
	)
}

func runMigrate() error {
	app := fx.New(
		baseModules(),
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		baseModules(),
		domainModules(),
		migration.Module,
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		baseModules(),
		domainModules(),
		scheduler.Module,
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		baseModules(),
		domainModules(),
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func runActivateScheduled(cmd *cobra.Command, dryRun bool) error {
	var sched *scheduler.Scheduler

	app := fx.New(
		fx.NopLogger,
		baseModules(),
		domainModules(),
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Populate(&sched),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	ctx, jobCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer jobCancel()

	if dryRun {
		candidates, err := sched.DryRun(ctx)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			cmd.Println("no scheduled rules are due for activation")
			return nil
		}
		printCandidates(cmd, "WOULD ACTIVATE", candidates)
		return nil
	}

	report, err := sched.ActivateDueRules(ctx)
	if err != nil && report == nil {
		return err
	}

	if len(report.Candidates) == 0 {
		cmd.Println("no scheduled rules are due for activation")
		return nil
	}

	printCandidates(cmd, "ACTIVATED", report.Activated)
	if len(report.Failures) > 0 {
		cmd.Println()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FAILED RULE\tREASON")
		for _, failure := range report.Failures {
			fmt.Fprintf(w, "%s\t%s\n", failure.RuleID, failure.Reason)
		}
		_ = w.Flush()
		return fmt.Errorf("%d of %d rules failed to activate", len(report.Failures), len(report.Candidates))
	}
	return nil
}

func printCandidates(cmd *cobra.Command, header string, candidates []scheduler.Candidate) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tNAME\tFEE TYPE\tAMOUNT\tEFFECTIVE DATE\tSTATUS\n", header)
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			c.RuleID,
			c.Name,
			c.FeeType,
			c.Amount,
			c.EffectiveDate.Format(time.DateOnly),
			c.Status,
		)
	}
	_ = w.Flush()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}

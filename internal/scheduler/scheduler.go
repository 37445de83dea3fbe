package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agrocoop/agrocoop/internal/auditctx"
	"github.com/agrocoop/agrocoop/internal/clock"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	obsmetrics "github.com/agrocoop/agrocoop/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	RuleRepo       feeruledomain.Repository
	RuleSvc        feeruledomain.Service
	ApplicationSvc applicationdomain.Service
	Config         Config `optional:"true"`
}

type Scheduler struct {
	db             *gorm.DB
	log            *zap.Logger
	cfg            Config
	clock          clock.Clock
	ruleRepo       feeruledomain.Repository
	ruleSvc        feeruledomain.Service
	applicationSvc applicationdomain.Service
}

// Candidate is a scheduled rule whose effective date has arrived.
type Candidate struct {
	RuleID        string
	Name          string
	FeeType       feeruledomain.FeeType
	Amount        float64
	EffectiveDate time.Time
	Status        feeruledomain.Status
}

// ActivationFailure records one rule the activation batch could not promote.
// A failure never stops the batch.
type ActivationFailure struct {
	RuleID string
	Reason string
}

type ActivationReport struct {
	Candidates []Candidate
	Activated  []Candidate
	Failures   []ActivationFailure
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.RuleRepo == nil || p.RuleSvc == nil || p.ApplicationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:             p.DB,
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		ruleRepo:       p.RuleRepo,
		ruleSvc:        p.RuleSvc,
		applicationSvc: p.ApplicationSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = auditctx.WithActor(ctx, auditctx.ActorTypeSystem, "scheduler")

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"activate_rules", func(ctx context.Context) error {
			_, jobErr := s.ActivateDueRules(ctx)
			return jobErr
		}},
		{"overdue_sweep", s.OverdueSweepJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			schedMetrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, name) {
			return true
		}
	}
	return false
}

// DryRun reports which scheduled rules would be activated right now without
// mutating anything.
func (s *Scheduler) DryRun(ctx context.Context) ([]Candidate, error) {
	return s.listCandidates(ctx)
}

// ActivateDueRules promotes every due scheduled rule to active. Failures are
// isolated per rule: one bad rule never blocks the rest of the batch. The
// report is returned even when some rules failed.
func (s *Scheduler) ActivateDueRules(ctx context.Context) (*ActivationReport, error) {
	candidates, err := s.listCandidates(ctx)
	if err != nil {
		return nil, err
	}

	report := &ActivationReport{Candidates: candidates}
	schedMetrics := obsmetrics.Scheduler()
	var joined error

	for _, candidate := range candidates {
		if _, err := s.ruleSvc.Activate(ctx, candidate.RuleID); err != nil {
			schedMetrics.IncRuleFailure()
			report.Failures = append(report.Failures, ActivationFailure{
				RuleID: candidate.RuleID,
				Reason: err.Error(),
			})
			joined = errors.Join(joined, fmt.Errorf("rule %s: %w", candidate.RuleID, err))
			s.log.Error("rule activation failed",
				zap.String("rule_id", candidate.RuleID),
				zap.Error(err),
			)
			continue
		}
		candidate.Status = feeruledomain.StatusActive
		report.Activated = append(report.Activated, candidate)
		s.log.Info("rule activated",
			zap.String("rule_id", candidate.RuleID),
			zap.String("rule_name", candidate.Name),
		)
	}

	schedMetrics.AddRulesActivated(len(report.Activated))
	if len(candidates) > 0 {
		s.log.Info("activation batch finished",
			zap.Int("candidates", len(candidates)),
			zap.Int("activated", len(report.Activated)),
			zap.Int("failed", len(report.Failures)),
		)
	}
	return report, joined
}

func (s *Scheduler) OverdueSweepJob(ctx context.Context) error {
	flipped, err := s.applicationSvc.SweepOverdue(ctx)
	if err != nil {
		return err
	}
	obsmetrics.Scheduler().AddOverdueMarked(flipped)
	return nil
}

func (s *Scheduler) listCandidates(ctx context.Context) ([]Candidate, error) {
	today := clock.Today(s.clock)
	rules, err := s.ruleRepo.ListDueForActivation(ctx, s.db, today, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		candidates = append(candidates, Candidate{
			RuleID:        rule.ID.String(),
			Name:          rule.Name,
			FeeType:       rule.FeeType,
			Amount:        rule.Amount,
			EffectiveDate: rule.EffectiveDate,
			Status:        rule.Status,
		})
	}
	return candidates, nil
}

package service

import (
	"context"
	"strings"

	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	RuleRepo feeruledomain.Repository
	UnitRepo unitdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	ruleRepo feeruledomain.Repository
	unitRepo unitdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("feeassignment.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		ruleRepo: p.RuleRepo,
		unitRepo: p.UnitRepo,
	}
}

func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (*domain.AssignResponse, error) {
	ruleID, err := snowflake.ParseString(strings.TrimSpace(req.FeeRuleID))
	if err != nil {
		return nil, domain.ErrInvalidRule
	}
	if len(req.Assignments) == 0 {
		return nil, domain.ErrEmptyRequest
	}

	rule, err := s.ruleRepo.FindByID(ctx, s.db, ruleID, false)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, feeruledomain.ErrNotFound
	}

	type resolved struct {
		unitID       snowflake.ID
		customAmount *float64
		active       bool
	}
	targets := make([]resolved, 0, len(req.Assignments))
	unitIDs := make([]snowflake.ID, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		unitID, err := snowflake.ParseString(strings.TrimSpace(a.UnitID))
		if err != nil {
			return nil, domain.ErrInvalidUnit
		}
		if a.CustomAmount != nil && *a.CustomAmount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		active := true
		if a.Active != nil {
			active = *a.Active
		}
		targets = append(targets, resolved{unitID: unitID, customAmount: a.CustomAmount, active: active})
		unitIDs = append(unitIDs, unitID)
	}

	units, err := s.unitRepo.ListByIDs(ctx, s.db, unitIDs)
	if err != nil {
		return nil, err
	}
	known := make(map[snowflake.ID]bool, len(units))
	for _, u := range units {
		known[u.ID] = true
	}
	for _, t := range targets {
		if !known[t.unitID] {
			return nil, domain.ErrInvalidUnit
		}
	}

	now := s.clock.Now()
	assigned := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range targets {
			existing, err := s.repo.FindByRuleAndUnit(ctx, tx, ruleID, t.unitID)
			if err != nil {
				return err
			}
			if existing != nil {
				existing.CustomAmount = t.customAmount
				existing.Active = t.active
				existing.UpdatedAt = now
				if err := s.repo.Update(ctx, tx, existing); err != nil {
					return err
				}
			} else {
				record := &domain.FeeRuleUnitAssignment{
					ID:           s.genID.Generate(),
					FeeRuleID:    ruleID,
					UnitID:       t.unitID,
					CustomAmount: t.customAmount,
					Active:       t.active,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := s.repo.Insert(ctx, tx, record); err != nil {
					return err
				}
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.AssignResponse{Assigned: assigned}, nil
}

func (s *Service) ListByRule(ctx context.Context, ruleID string) ([]domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(ruleID))
	if err != nil {
		return nil, domain.ErrInvalidRule
	}

	rule, err := s.ruleRepo.FindByID(ctx, s.db, parsed, false)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, feeruledomain.ErrNotFound
	}

	items, err := s.repo.ListActiveByRule(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.Response{
			ID:           item.ID.String(),
			FeeRuleID:    item.FeeRuleID.String(),
			UnitID:       item.UnitID.String(),
			CustomAmount: item.CustomAmount,
			Active:       item.Active,
		})
	}
	return resp, nil
}

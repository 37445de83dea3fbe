package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/agrocoop/agrocoop/internal/audit/domain"
	"github.com/agrocoop/agrocoop/internal/clock"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/agrocoop/agrocoop/internal/feerule/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            domain.Repository
	ApplicationRepo applicationdomain.Repository
	AuditSvc        auditdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            domain.Repository
	applicationRepo applicationdomain.Repository
	auditSvc        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("feerule.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		applicationRepo: p.ApplicationRepo,
		auditSvc:        p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, domain.ErrInvalidName
	}
	if !domain.ValidFeeType(req.FeeType) {
		return nil, domain.ErrInvalidFeeType
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.ValidFrequency(req.Frequency) {
		return nil, domain.ErrInvalidFrequency
	}
	if !domain.ValidAppliesTo(req.AppliesTo) {
		return nil, domain.ErrInvalidAppliesTo
	}
	if req.EffectiveDate.IsZero() {
		return nil, domain.ErrInvalidEffectiveDate
	}

	status := domain.StatusDraft
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		status = *req.Status
	}

	now := s.clock.Now()
	rule := &domain.FeeRule{
		ID:            s.genID.Generate(),
		Name:          req.Name,
		FeeType:       req.FeeType,
		Amount:        req.Amount,
		Frequency:     req.Frequency,
		UnitLabel:     strings.TrimSpace(req.UnitLabel),
		Status:        domain.ResolveStatus(status, req.EffectiveDate, now),
		AppliesTo:     req.AppliesTo,
		Description:   req.Description,
		EffectiveDate: req.EffectiveDate.UTC(),
		CreatedBy:     strings.TrimSpace(req.CreatedBy),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, s.db, rule); err != nil {
		return nil, err
	}

	s.log.Info("fee rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("status", string(rule.Status)),
	)

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{Name: strings.TrimSpace(req.Name)}

	if req.FeeType != nil {
		if !domain.ValidFeeType(*req.FeeType) {
			return nil, domain.ErrInvalidFeeType
		}
		filter.FeeType = req.FeeType
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = req.Status
	}
	if req.AppliesTo != nil {
		if !domain.ValidAppliesTo(*req.AppliesTo) {
			return nil, domain.ErrInvalidAppliesTo
		}
		filter.AppliesTo = req.AppliesTo
	}

	rules, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(rules))
	for i := range rules {
		resp = append(resp, toResponse(&rules[i]))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	rule, err := s.find(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		rule.Name = name
	}
	if req.FeeType != nil {
		if !domain.ValidFeeType(*req.FeeType) {
			return nil, domain.ErrInvalidFeeType
		}
		rule.FeeType = *req.FeeType
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		rule.Amount = *req.Amount
	}
	if req.Frequency != nil {
		if !domain.ValidFrequency(*req.Frequency) {
			return nil, domain.ErrInvalidFrequency
		}
		rule.Frequency = *req.Frequency
	}
	if req.UnitLabel != nil {
		rule.UnitLabel = strings.TrimSpace(*req.UnitLabel)
	}
	if req.AppliesTo != nil {
		if !domain.ValidAppliesTo(*req.AppliesTo) {
			return nil, domain.ErrInvalidAppliesTo
		}
		rule.AppliesTo = *req.AppliesTo
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.EffectiveDate != nil {
		if req.EffectiveDate.IsZero() {
			return nil, domain.ErrInvalidEffectiveDate
		}
		rule.EffectiveDate = req.EffectiveDate.UTC()
	}

	// The activation gate applies on every write: even an update that only
	// moves the effective date forward re-resolves against the current status.
	requested := rule.Status
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		requested = *req.Status
	}
	rule.Status = domain.ResolveStatus(requested, rule.EffectiveDate, s.clock.Now())

	rule.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	rule, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.applicationRepo.CountByRule(ctx, s.db, rule.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrRuleHasApplications
	}

	return s.repo.SoftDelete(ctx, s.db, rule.ID, s.clock.Now())
}

func (s *Service) Schedule(ctx context.Context, id string, effectiveDate time.Time) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock)
	target := effectiveDate.UTC().Truncate(24 * time.Hour)
	if !target.After(today) {
		return nil, domain.ErrInvalidEffectiveDate
	}

	if rule.Status == domain.StatusScheduled && rule.EffectiveDate.Equal(target) {
		resp := toResponse(rule)
		return &resp, nil
	}

	rule.Status = domain.StatusScheduled
	rule.EffectiveDate = target
	rule.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}

	targetID := rule.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.ActionFeeRuleScheduled, "fee_rule", &targetID, map[string]any{
		"rule_name":      rule.Name,
		"effective_date": target.Format(time.DateOnly),
	})

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) Activate(ctx context.Context, id string) (*domain.Response, error) {
	rule, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if rule.Status == domain.StatusActive {
		resp := toResponse(rule)
		return &resp, nil
	}
	if !rule.Activate(s.clock.Now()) {
		return nil, domain.ErrNotDue
	}

	rule.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, rule); err != nil {
		return nil, err
	}

	targetID := rule.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.ActionFeeRuleActivated, "fee_rule", &targetID, map[string]any{
		"rule_name":      rule.Name,
		"effective_date": rule.EffectiveDate.Format(time.DateOnly),
	})

	resp := toResponse(rule)
	return &resp, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.FeeRule, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	rule, err := s.repo.FindByID(ctx, s.db, parsed, false)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}
	return rule, nil
}

func toResponse(r *domain.FeeRule) domain.Response {
	return domain.Response{
		ID:            r.ID.String(),
		Name:          r.Name,
		FeeType:       r.FeeType,
		Amount:        r.Amount,
		Frequency:     r.Frequency,
		UnitLabel:     r.UnitLabel,
		Status:        r.Status,
		AppliesTo:     r.AppliesTo,
		Description:   r.Description,
		EffectiveDate: r.EffectiveDate,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

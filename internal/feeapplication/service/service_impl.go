package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/agrocoop/agrocoop/internal/audit/domain"
	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/config"
	"github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	obsmetrics "github.com/agrocoop/agrocoop/internal/observability/metrics"
	"github.com/agrocoop/agrocoop/pkg/db"
	"github.com/agrocoop/agrocoop/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Policy         *config.FeePolicyHolder
	Repo           domain.Repository
	RuleRepo       feeruledomain.Repository
	MemberRepo     memberdomain.Repository
	AssignmentRepo assignmentdomain.Repository
	AuditSvc       auditdomain.Service
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	policy         *config.FeePolicyHolder
	repo           domain.Repository
	ruleRepo       feeruledomain.Repository
	memberRepo     memberdomain.Repository
	assignmentRepo assignmentdomain.Repository
	auditSvc       auditdomain.Service
}

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("feeapplication.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		policy:         p.Policy,
		repo:           p.Repo,
		ruleRepo:       p.RuleRepo,
		memberRepo:     p.MemberRepo,
		assignmentRepo: p.AssignmentRepo,
		auditSvc:       p.AuditSvc,
	}
}

func (s *Service) Apply(ctx context.Context, ruleID string) (*domain.ApplyResult, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(ruleID))
	if err != nil {
		return nil, domain.ErrInvalidRule
	}

	rule, err := s.ruleRepo.FindByID(ctx, s.db, parsed, false)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, domain.ErrNotFound
	}

	today := clock.Today(s.clock)
	if rule.Status != feeruledomain.StatusActive {
		return nil, domain.ErrRuleNotActive
	}
	if !rule.Effective(today) {
		return nil, domain.ErrRuleNotEffective
	}

	eligible, err := s.resolveEligible(ctx, rule, today)
	if err != nil {
		return nil, err
	}

	overrides, err := s.overrideAmounts(ctx, rule.ID)
	if err != nil {
		return nil, err
	}

	dueDate := feeruledomain.DueDate(rule.Frequency, today, s.policy.Get().OneTimeGraceDays)

	result, err := s.expand(ctx, rule, eligible, overrides, dueDate)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// A concurrent apply committed an open application between our check and
		// insert. The unique index rejected the duplicate; rerun once so it is
		// counted as a skip.
		result, err = s.expand(ctx, rule, eligible, overrides, dueDate)
	}
	if err != nil {
		return nil, err
	}

	obsmetrics.Scheduler().AddApplicationsCreated(result.Created)

	targetID := rule.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.ActionFeeRuleApplied, "fee_rule", &targetID, map[string]any{
		"rule_name": rule.Name,
		"eligible":  result.Eligible,
		"created":   result.Created,
		"skipped":   result.Skipped,
	})

	return result, nil
}

func (s *Service) resolveEligible(ctx context.Context, rule *feeruledomain.FeeRule, today time.Time) ([]memberdomain.Member, error) {
	filter := memberdomain.EligibilityFilter{}

	switch rule.AppliesTo {
	case feeruledomain.AppliesToAllMembers:
		filter.Roles = memberdomain.AllRoles
	case feeruledomain.AppliesToUnitLeaders:
		filter.Roles = []memberdomain.Role{memberdomain.RoleUnitLeader}
	case feeruledomain.AppliesToNewMembers:
		filter.Roles = memberdomain.AllRoles
		cutoff := today.AddDate(0, 0, -s.policy.Get().NewMemberWindowDays)
		filter.JoinedAfter = &cutoff
	case feeruledomain.AppliesToActiveMembers:
		filter.Roles = memberdomain.AllRoles
		active := memberdomain.StatusActive
		filter.Status = &active
	case feeruledomain.AppliesToSpecificUnits:
		assignments, err := s.assignmentRepo.ListActiveByRule(ctx, s.db, rule.ID)
		if err != nil {
			return nil, err
		}
		if len(assignments) == 0 {
			return nil, nil
		}
		unitIDs := make([]snowflake.ID, 0, len(assignments))
		for _, a := range assignments {
			unitIDs = append(unitIDs, a.UnitID)
		}
		filter.Roles = memberdomain.AllRoles
		filter.UnitIDs = unitIDs
	default:
		return nil, feeruledomain.ErrInvalidAppliesTo
	}

	return s.memberRepo.ListEligible(ctx, s.db, filter)
}

func (s *Service) overrideAmounts(ctx context.Context, ruleID snowflake.ID) (map[snowflake.ID]float64, error) {
	assignments, err := s.assignmentRepo.ListActiveByRule(ctx, s.db, ruleID)
	if err != nil {
		return nil, err
	}
	overrides := make(map[snowflake.ID]float64, len(assignments))
	for _, a := range assignments {
		if a.CustomAmount != nil {
			overrides[a.UnitID] = *a.CustomAmount
		}
	}
	return overrides, nil
}

func (s *Service) expand(
	ctx context.Context,
	rule *feeruledomain.FeeRule,
	eligible []memberdomain.Member,
	overrides map[snowflake.ID]float64,
	dueDate time.Time,
) (*domain.ApplyResult, error) {
	now := s.clock.Now()
	result := &domain.ApplyResult{
		RuleID:   rule.ID.String(),
		Eligible: len(eligible),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range eligible {
			existing, err := s.repo.FindOpenByRuleAndMember(ctx, tx, rule.ID, m.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Skipped++
				continue
			}

			amount := rule.Amount
			if m.UnitID != nil {
				if custom, ok := overrides[*m.UnitID]; ok {
					amount = custom
				}
			}

			record := &domain.FeeApplication{
				ID:        s.genID.Generate(),
				FeeRuleID: rule.ID,
				MemberID:  m.ID,
				UnitID:    m.UnitID,
				Amount:    amount,
				DueDate:   dueDate,
				Status:    domain.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.Insert(ctx, tx, record); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	filter := domain.ListFilter{DueBefore: req.DueBefore}

	if req.FeeRuleID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.FeeRuleID))
		if err != nil {
			return nil, domain.ErrInvalidRule
		}
		filter.FeeRuleID = &parsed
	}
	if req.MemberID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.MemberID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.MemberID = &parsed
	}
	if req.UnitID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.UnitID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.UnitID = &parsed
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = req.Status
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		afterID, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.AfterID = &afterID
	}
	// Fetch one extra row to learn whether another page exists.
	filter.Limit = pageSize + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > pageSize
	if hasMore {
		items = items[:pageSize]
	}

	resp := &domain.ListResponse{Items: make([]domain.Response, 0, len(items))}
	for i := range items {
		resp.Items = append(resp.Items, toResponse(&items[i]))
	}
	if hasMore {
		last := items[len(items)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: last.ID.String()})
		if err != nil {
			return nil, err
		}
		resp.PageInfo = pagination.PageInfo{NextPageToken: token, HasMore: true}
	}
	return resp, nil
}

func (s *Service) Cancel(ctx context.Context, id string, reason string) (*domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if !item.Status.Open() {
		return nil, domain.ErrNotOpen
	}

	item.Status = domain.StatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		item.Notes = &reason
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string, paidAt time.Time, paymentRef string) (*domain.Response, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if item.Status == domain.StatusPaid {
		return nil, domain.ErrAlreadyPaid
	}
	if !item.Status.Open() {
		return nil, domain.ErrNotOpen
	}

	paid := paidAt.UTC()
	item.Status = domain.StatusPaid
	item.PaidAt = &paid
	if ref := strings.TrimSpace(paymentRef); ref != "" {
		item.PaymentRef = &ref
	}
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) SweepOverdue(ctx context.Context) (int64, error) {
	today := clock.Today(s.clock)
	flipped, err := s.repo.MarkOverdue(ctx, s.db, today, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.log.Info("marked applications overdue", zap.Int64("count", flipped))
	}
	return flipped, nil
}

func toResponse(a *domain.FeeApplication) domain.Response {
	resp := domain.Response{
		ID:         a.ID.String(),
		FeeRuleID:  a.FeeRuleID.String(),
		MemberID:   a.MemberID.String(),
		Amount:     a.Amount,
		DueDate:    a.DueDate,
		PaidAt:     a.PaidAt,
		Status:     a.Status,
		Notes:      a.Notes,
		PaymentRef: a.PaymentRef,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
	if a.UnitID != nil && *a.UnitID != 0 {
		unit := a.UnitID.String()
		resp.UnitID = &unit
	}
	if len(a.Metadata) > 0 {
		resp.Metadata = map[string]any(a.Metadata)
	}
	return resp
}

package service

import (
	"context"
	"strings"

	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/member/domain"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	"github.com/agrocoop/agrocoop/pkg/db"
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
	UnitRepo unitdomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	unitRepo unitdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("member.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		unitRepo: p.UnitRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	phone := normalizePhone(req.Phone)
	if phone == "" {
		return nil, domain.ErrInvalidPhone
	}

	if !domain.ValidRole(req.Role) {
		return nil, domain.ErrInvalidRole
	}

	status := domain.StatusActive
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		status = *req.Status
	}

	unitID, err := s.resolveUnitID(ctx, req.UnitID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.Member{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Role:      req.Role,
		Status:    status,
		UnitID:    unitID,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, s.db, record); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrPhoneExists
		}
		return nil, err
	}

	resp := s.toResponse(record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	filter := domain.ListFilter{
		Role:   req.Role,
		Status: req.Status,
		Name:   strings.TrimSpace(req.Name),
	}
	if req.UnitID != nil {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.UnitID))
		if err != nil {
			return nil, domain.ErrInvalidUnit
		}
		filter.UnitID = &parsed
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return nil, domain.ErrInvalidRole
		}
		item.Role = *req.Role
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		item.Status = *req.Status
	}
	if req.UnitID != nil {
		if strings.TrimSpace(*req.UnitID) == "" {
			item.UnitID = nil
		} else {
			unitID, err := s.resolveUnitID(ctx, req.UnitID)
			if err != nil {
				return nil, err
			}
			item.UnitID = unitID
		}
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) resolveUnitID(ctx context.Context, raw *string) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, domain.ErrInvalidUnit
	}
	unit, err := s.unitRepo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, domain.ErrInvalidUnit
	}
	return &parsed, nil
}

func (s *Service) toResponse(m *domain.Member) domain.Response {
	resp := domain.Response{
		ID:        m.ID.String(),
		Name:      m.Name,
		Phone:     m.Phone,
		Role:      m.Role,
		Status:    m.Status,
		JoinedAt:  m.JoinedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.UnitID != nil && *m.UnitID != 0 {
		unit := m.UnitID.String()
		resp.UnitID = &unit
	}
	return resp
}

// normalizePhone strips spaces and dashes and keeps a leading plus. Registration
// accepts local formats; storage keeps one canonical shape per member.
func normalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range trimmed {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	if len(strings.TrimPrefix(normalized, "+")) < 7 {
		return ""
	}
	return normalized
}

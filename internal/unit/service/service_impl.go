package service

import (
	"context"
	"strings"

	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/unit/domain"
	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
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
	ZoneRepo zonedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	zoneRepo zonedomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("unit.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		zoneRepo: p.ZoneRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	zoneID, err := snowflake.ParseString(strings.TrimSpace(req.ZoneID))
	if err != nil {
		return nil, domain.ErrInvalidZone
	}
	zone, err := s.zoneRepo.FindByID(ctx, s.db, zoneID)
	if err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, domain.ErrInvalidZone
	}

	leaderID, err := parseOptionalID(req.LeaderID, domain.ErrInvalidLeader)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &domain.Unit{
		ID:        s.genID.Generate(),
		Name:      name,
		ZoneID:    zoneID,
		LeaderID:  leaderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, record); err != nil {
		return nil, err
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	unitID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, unitID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, zoneID *string) ([]domain.Response, error) {
	var filter *snowflake.ID
	if zoneID != nil && strings.TrimSpace(*zoneID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*zoneID))
		if err != nil {
			return nil, domain.ErrInvalidZone
		}
		filter = &parsed
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	unitID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, unitID)
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
	if req.LeaderID != nil {
		if strings.TrimSpace(*req.LeaderID) == "" {
			item.LeaderID = nil
		} else {
			leaderID, err := parseOptionalID(req.LeaderID, domain.ErrInvalidLeader)
			if err != nil {
				return nil, err
			}
			item.LeaderID = leaderID
		}
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := toResponse(item)
	return &resp, nil
}

func parseOptionalID(raw *string, invalid error) (*snowflake.ID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(strings.TrimSpace(*raw))
	if err != nil {
		return nil, invalid
	}
	return &parsed, nil
}

func toResponse(u *domain.Unit) domain.Response {
	resp := domain.Response{
		ID:        u.ID.String(),
		Name:      u.Name,
		ZoneID:    u.ZoneID.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.LeaderID != nil && *u.LeaderID != 0 {
		leader := u.LeaderID.String()
		resp.LeaderID = &leader
	}
	return resp
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/agrocoop/agrocoop/internal/clock"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/agrocoop/agrocoop/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	ApplicationRepo applicationdomain.Repository
	ApplicationSvc  applicationdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	clock           clock.Clock
	applicationRepo applicationdomain.Repository
	applicationSvc  applicationdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		clock:           p.Clock,
		applicationRepo: p.ApplicationRepo,
		applicationSvc:  p.ApplicationSvc,
	}
}

func (s *Service) ProcessCallback(ctx context.Context, req domain.CallbackRequest) (*domain.CallbackResult, error) {
	if !domain.ValidCallbackStatus(req.Status) {
		return nil, domain.ErrInvalidStatus
	}

	application, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Status.Settled() {
		return s.settle(ctx, application, req)
	}
	return s.recordFailure(ctx, application, req)
}

func (s *Service) lookup(ctx context.Context, req domain.CallbackRequest) (*applicationdomain.FeeApplication, error) {
	ref := strings.TrimSpace(req.PaymentRef)
	if ref != "" {
		application, err := s.applicationRepo.FindByPaymentRef(ctx, s.db, ref)
		if err != nil {
			return nil, err
		}
		if application != nil {
			return application, nil
		}
	}

	id := strings.TrimSpace(req.ApplicationID)
	if id == "" {
		if ref == "" {
			return nil, domain.ErrMissingReference
		}
		return nil, domain.ErrNotFound
	}

	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	application, err := s.applicationRepo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if application == nil {
		return nil, domain.ErrNotFound
	}
	return application, nil
}

func (s *Service) settle(ctx context.Context, application *applicationdomain.FeeApplication, req domain.CallbackRequest) (*domain.CallbackResult, error) {
	// Gateways redeliver callbacks; a settled callback for an already-paid
	// application acknowledges without touching the row.
	if application.Status == applicationdomain.StatusPaid {
		return &domain.CallbackResult{
			ApplicationID: application.ID.String(),
			Status:        string(applicationdomain.StatusPaid),
			Settled:       true,
		}, nil
	}

	paidAt := s.clock.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	ref := strings.TrimSpace(req.PaymentRef)
	if ref == "" {
		ref = uuid.NewString()
	}

	updated, err := s.applicationSvc.MarkPaid(ctx, application.ID.String(), paidAt, ref)
	if err != nil {
		return nil, err
	}

	s.log.Info("payment settled",
		zap.String("application_id", updated.ID),
		zap.String("payment_ref", ref),
		zap.String("provider", req.Provider),
	)

	return &domain.CallbackResult{
		ApplicationID: updated.ID,
		Status:        string(updated.Status),
		Settled:       true,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, application *applicationdomain.FeeApplication, req domain.CallbackRequest) (*domain.CallbackResult, error) {
	if application.Metadata == nil {
		application.Metadata = datatypes.JSONMap{}
	}
	attempt := map[string]any{
		"status": string(req.Status),
		"at":     s.clock.Now().Format(time.RFC3339),
	}
	if req.Provider != "" {
		attempt["provider"] = req.Provider
	}
	if req.FailureReason != "" {
		attempt["reason"] = req.FailureReason
	}
	attempts, _ := application.Metadata["payment_attempts"].([]any)
	application.Metadata["payment_attempts"] = append(attempts, attempt)
	application.UpdatedAt = s.clock.Now()

	if err := s.applicationRepo.Update(ctx, s.db, application); err != nil {
		return nil, err
	}

	s.log.Warn("payment not settled",
		zap.String("application_id", application.ID.String()),
		zap.String("callback_status", string(req.Status)),
		zap.String("reason", req.FailureReason),
	)

	return &domain.CallbackResult{
		ApplicationID: application.ID.String(),
		Status:        string(application.Status),
		Settled:       false,
	}, nil
}

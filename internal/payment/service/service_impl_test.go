package service

import (
	"context"
	"errors"
	"testing"
	"time"

	auditrepository "github.com/agrocoop/agrocoop/internal/audit/repository"
	auditservice "github.com/agrocoop/agrocoop/internal/audit/service"
	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/config"
	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	applicationrepository "github.com/agrocoop/agrocoop/internal/feeapplication/repository"
	applicationservice "github.com/agrocoop/agrocoop/internal/feeapplication/service"
	assignmentrepository "github.com/agrocoop/agrocoop/internal/feeassignment/repository"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	feerulerepository "github.com/agrocoop/agrocoop/internal/feerule/repository"
	memberrepository "github.com/agrocoop/agrocoop/internal/member/repository"
	"github.com/agrocoop/agrocoop/internal/migration"
	"github.com/agrocoop/agrocoop/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	clock   *clock.FakeClock
	node    *snowflake.Node
	svc     domain.Service
	appRepo applicationdomain.Repository
}

func setupPaymentTest(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}

	fc := clock.NewFakeClock(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fc,
		Repo:  auditrepository.Provide(),
	})

	appRepo := applicationrepository.Provide()
	appSvc := applicationservice.New(applicationservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fc,
		Policy: config.NewStaticFeePolicyHolder(config.FeePolicy{
			NewMemberWindowDays: 90,
			OneTimeGraceDays:    7,
		}),
		Repo:           appRepo,
		RuleRepo:       feerulerepository.Provide(),
		MemberRepo:     memberrepository.Provide(),
		AssignmentRepo: assignmentrepository.Provide(),
		AuditSvc:       auditSvc,
	})

	svc := New(Params{
		DB:              db,
		Log:             log,
		Clock:           fc,
		ApplicationRepo: appRepo,
		ApplicationSvc:  appSvc,
	})

	return &fixture{db: db, clock: fc, node: node, svc: svc, appRepo: appRepo}
}

func (f *fixture) seedApplication(t *testing.T, status applicationdomain.Status) *applicationdomain.FeeApplication {
	t.Helper()
	ctx := context.Background()

	rule := &feeruledomain.FeeRule{
		ID:            f.node.Generate(),
		Name:          "Storage fee",
		FeeType:       feeruledomain.FeeTypeStorage,
		Amount:        200,
		Frequency:     feeruledomain.FrequencyMonthly,
		Status:        feeruledomain.StatusActive,
		AppliesTo:     feeruledomain.AppliesToAllMembers,
		EffectiveDate: clock.Today(f.clock),
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	if err := feerulerepository.Provide().Create(ctx, f.db, rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}

	application := &applicationdomain.FeeApplication{
		ID:        f.node.Generate(),
		FeeRuleID: rule.ID,
		MemberID:  f.node.Generate(),
		Amount:    200,
		DueDate:   clock.Today(f.clock).AddDate(0, 1, 0),
		Status:    status,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.appRepo.Insert(ctx, f.db, application); err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return application
}

func TestSuccessfulCallbackSettles(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()
	application := f.seedApplication(t, applicationdomain.StatusPending)

	paidAt := f.clock.Now().Add(-5 * time.Minute)
	result, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{
		ApplicationID: application.ID.String(),
		PaymentRef:    "mm-001",
		Status:        domain.CallbackSuccessful,
		PaidAt:        &paidAt,
		Provider:      "mtn_momo",
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if !result.Settled || result.Status != string(applicationdomain.StatusPaid) {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := f.appRepo.FindByID(ctx, f.db, application.ID)
	if err != nil {
		t.Fatalf("find application: %v", err)
	}
	if got.Status != applicationdomain.StatusPaid {
		t.Fatalf("status = %s, want %s", got.Status, applicationdomain.StatusPaid)
	}
	if got.PaidAt == nil || !got.PaidAt.UTC().Equal(paidAt.UTC()) {
		t.Fatalf("paid_at = %v, want %v", got.PaidAt, paidAt)
	}
	if got.PaymentRef == nil || *got.PaymentRef != "mm-001" {
		t.Fatalf("payment_ref = %v", got.PaymentRef)
	}
}

func TestRedeliveredSuccessIsIdempotent(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()
	application := f.seedApplication(t, applicationdomain.StatusPending)

	req := domain.CallbackRequest{
		ApplicationID: application.ID.String(),
		PaymentRef:    "mm-002",
		Status:        domain.CallbackSuccessful,
	}
	if _, err := f.svc.ProcessCallback(ctx, req); err != nil {
		t.Fatalf("first callback: %v", err)
	}

	// Gateways redeliver; the second delivery acknowledges without error.
	result, err := f.svc.ProcessCallback(ctx, req)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !result.Settled {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLookupByPaymentRef(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()
	application := f.seedApplication(t, applicationdomain.StatusPending)

	ref := "mm-003"
	application.PaymentRef = &ref
	if err := f.appRepo.Update(ctx, f.db, application); err != nil {
		t.Fatalf("set payment ref: %v", err)
	}

	// No application id in the callback: the reference alone resolves it.
	result, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{
		PaymentRef: ref,
		Status:     domain.CallbackSuccessful,
	})
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if result.ApplicationID != application.ID.String() || !result.Settled {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFailedCallbackKeepsApplicationOpen(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()
	application := f.seedApplication(t, applicationdomain.StatusPending)

	for i, status := range []domain.CallbackStatus{domain.CallbackFailed, domain.CallbackTimeout} {
		result, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{
			ApplicationID: application.ID.String(),
			Status:        status,
			Provider:      "mtn_momo",
			FailureReason: "insufficient funds",
		})
		if err != nil {
			t.Fatalf("callback %d: %v", i, err)
		}
		if result.Settled {
			t.Fatalf("callback %d settled: %+v", i, result)
		}

		got, err := f.appRepo.FindByID(ctx, f.db, application.ID)
		if err != nil {
			t.Fatalf("find application: %v", err)
		}
		if got.Status != applicationdomain.StatusPending {
			t.Fatalf("status = %s, want %s", got.Status, applicationdomain.StatusPending)
		}
		attempts, _ := got.Metadata["payment_attempts"].([]any)
		if len(attempts) != i+1 {
			t.Fatalf("attempt count = %d, want %d", len(attempts), i+1)
		}
		application = got
	}
}

func TestRejectedCallbackRecordsReason(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()
	application := f.seedApplication(t, applicationdomain.StatusPending)

	if _, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{
		ApplicationID: application.ID.String(),
		Status:        domain.CallbackRejected,
		FailureReason: "account blocked",
	}); err != nil {
		t.Fatalf("callback: %v", err)
	}

	got, err := f.appRepo.FindByID(ctx, f.db, application.ID)
	if err != nil {
		t.Fatalf("find application: %v", err)
	}
	attempts, _ := got.Metadata["payment_attempts"].([]any)
	if len(attempts) != 1 {
		t.Fatalf("attempt count = %d, want 1", len(attempts))
	}
	attempt, _ := attempts[0].(map[string]any)
	if attempt["status"] != string(domain.CallbackRejected) || attempt["reason"] != "account blocked" {
		t.Fatalf("unexpected attempt: %+v", attempt)
	}
}

func TestCallbackValidation(t *testing.T) {
	f := setupPaymentTest(t)
	ctx := context.Background()

	if _, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{Status: "PENDING"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("bad status: err = %v, want %v", err, domain.ErrInvalidStatus)
	}
	if _, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{Status: domain.CallbackSuccessful}); !errors.Is(err, domain.ErrMissingReference) {
		t.Fatalf("no reference: err = %v, want %v", err, domain.ErrMissingReference)
	}
	if _, err := f.svc.ProcessCallback(ctx, domain.CallbackRequest{
		ApplicationID: f.node.Generate().String(),
		Status:        domain.CallbackSuccessful,
	}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown application: err = %v, want %v", err, domain.ErrNotFound)
	}
}

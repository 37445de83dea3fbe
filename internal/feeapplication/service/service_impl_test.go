package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	auditrepository "github.com/agrocoop/agrocoop/internal/audit/repository"
	auditservice "github.com/agrocoop/agrocoop/internal/audit/service"
	"github.com/agrocoop/agrocoop/internal/clock"
	"github.com/agrocoop/agrocoop/internal/config"
	"github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	"github.com/agrocoop/agrocoop/internal/feeapplication/repository"
	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	assignmentrepository "github.com/agrocoop/agrocoop/internal/feeassignment/repository"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	feerulerepository "github.com/agrocoop/agrocoop/internal/feerule/repository"
	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	memberrepository "github.com/agrocoop/agrocoop/internal/member/repository"
	"github.com/agrocoop/agrocoop/internal/migration"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	unitrepository "github.com/agrocoop/agrocoop/internal/unit/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	clock      *clock.FakeClock
	node       *snowflake.Node
	svc        domain.Service
	repo       domain.Repository
	ruleRepo   feeruledomain.Repository
	memberRepo memberdomain.Repository
	assignRepo assignmentdomain.Repository
	unitRepo   unitdomain.Repository
	phoneSeq   int
}

func setupApplicationTest(t *testing.T) *fixture {
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

	repo := repository.Provide()
	ruleRepo := feerulerepository.Provide()
	memberRepo := memberrepository.Provide()
	assignRepo := assignmentrepository.Provide()

	svc := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fc,
		Policy: config.NewStaticFeePolicyHolder(config.FeePolicy{
			NewMemberWindowDays: 90,
			OneTimeGraceDays:    7,
		}),
		Repo:           repo,
		RuleRepo:       ruleRepo,
		MemberRepo:     memberRepo,
		AssignmentRepo: assignRepo,
		AuditSvc:       auditSvc,
	})

	return &fixture{
		db:         db,
		clock:      fc,
		node:       node,
		svc:        svc,
		repo:       repo,
		ruleRepo:   ruleRepo,
		memberRepo: memberRepo,
		assignRepo: assignRepo,
		unitRepo:   unitrepository.Provide(),
	}
}

func (f *fixture) seedRule(t *testing.T, status feeruledomain.Status, appliesTo feeruledomain.AppliesTo, effectiveDate time.Time) *feeruledomain.FeeRule {
	t.Helper()
	rule := &feeruledomain.FeeRule{
		ID:            f.node.Generate(),
		Name:          "Land maintenance fee",
		FeeType:       feeruledomain.FeeTypeLand,
		Amount:        150,
		Frequency:     feeruledomain.FrequencyMonthly,
		Status:        status,
		AppliesTo:     appliesTo,
		EffectiveDate: effectiveDate,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	if err := f.ruleRepo.Create(context.Background(), f.db, rule); err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	return rule
}

func (f *fixture) seedUnit(t *testing.T, name string) *unitdomain.Unit {
	t.Helper()
	unit := &unitdomain.Unit{
		ID:        f.node.Generate(),
		Name:      name,
		ZoneID:    f.node.Generate(),
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.unitRepo.Create(context.Background(), f.db, unit); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	return unit
}

func (f *fixture) seedMember(t *testing.T, role memberdomain.Role, status memberdomain.Status, unitID *snowflake.ID, joinedAt time.Time) *memberdomain.Member {
	t.Helper()
	f.phoneSeq++
	member := &memberdomain.Member{
		ID:        f.node.Generate(),
		Name:      fmt.Sprintf("Member %d", f.phoneSeq),
		Phone:     fmt.Sprintf("+2567%08d", f.phoneSeq),
		Role:      role,
		Status:    status,
		UnitID:    unitID,
		JoinedAt:  joinedAt,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.memberRepo.Create(context.Background(), f.db, member); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return member
}

func (f *fixture) seedAssignment(t *testing.T, ruleID, unitID snowflake.ID, customAmount *float64, active bool) {
	t.Helper()
	assignment := &assignmentdomain.FeeRuleUnitAssignment{
		ID:           f.node.Generate(),
		FeeRuleID:    ruleID,
		UnitID:       unitID,
		CustomAmount: customAmount,
		Active:       active,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	if err := f.assignRepo.Insert(context.Background(), f.db, assignment); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
}

func (f *fixture) listByRule(t *testing.T, ruleID snowflake.ID) []domain.FeeApplication {
	t.Helper()
	items, err := f.repo.List(context.Background(), f.db, domain.ListFilter{FeeRuleID: &ruleID})
	if err != nil {
		t.Fatalf("list applications: %v", err)
	}
	return items
}

func TestApplyExpandsEligibleMembers(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	joined := today.AddDate(-1, 0, 0)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, joined)
	f.seedMember(t, memberdomain.RoleUnitLeader, memberdomain.StatusActive, nil, joined)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusInactive, nil, joined)

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Eligible != 3 || result.Created != 3 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	items := f.listByRule(t, rule.ID)
	if len(items) != 3 {
		t.Fatalf("application count = %d, want 3", len(items))
	}
	wantDue := today.AddDate(0, 1, 0)
	for _, item := range items {
		if item.Status != domain.StatusPending {
			t.Fatalf("status = %s, want %s", item.Status, domain.StatusPending)
		}
		if item.Amount != 150 {
			t.Fatalf("amount = %v, want 150", item.Amount)
		}
		if !item.DueDate.UTC().Equal(wantDue) {
			t.Fatalf("due date = %s, want %s", item.DueDate, wantDue)
		}
	}
}

func TestApplySkipsMembersWithOpenApplications(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))

	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if result.Created != 0 || result.Skipped != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if items := f.listByRule(t, rule.ID); len(items) != 2 {
		t.Fatalf("application count = %d, want 2", len(items))
	}
}

func TestApplyUsesUnitAmountOverrides(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	unitA := f.seedUnit(t, "Coffee growers")
	unitB := f.seedUnit(t, "Dairy")

	override := 80.0
	f.seedAssignment(t, rule.ID, unitA.ID, &override, true)

	joined := today.AddDate(-1, 0, 0)
	inA := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, &unitA.ID, joined)
	inB := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, &unitB.ID, joined)
	unassigned := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, joined)

	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	amounts := map[snowflake.ID]float64{}
	for _, item := range f.listByRule(t, rule.ID) {
		amounts[item.MemberID] = item.Amount
	}
	if amounts[inA.ID] != 80 {
		t.Fatalf("override amount = %v, want 80", amounts[inA.ID])
	}
	if amounts[inB.ID] != 150 || amounts[unassigned.ID] != 150 {
		t.Fatalf("base amounts = %v / %v, want 150", amounts[inB.ID], amounts[unassigned.ID])
	}
}

func TestApplySpecificUnits(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToSpecificUnits, today)
	unitA := f.seedUnit(t, "Coffee growers")
	unitB := f.seedUnit(t, "Dairy")

	f.seedAssignment(t, rule.ID, unitA.ID, nil, true)
	// Inactive assignments do not pull their unit in.
	f.seedAssignment(t, rule.ID, unitB.ID, nil, false)

	joined := today.AddDate(-1, 0, 0)
	inA := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, &unitA.ID, joined)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, &unitB.ID, joined)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, joined)

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Eligible != 1 || result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	items := f.listByRule(t, rule.ID)
	if len(items) != 1 || items[0].MemberID != inA.ID {
		t.Fatalf("unexpected applications: %+v", items)
	}
}

func TestApplySpecificUnitsWithoutAssignments(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToSpecificUnits, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Eligible != 0 || result.Created != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestApplyNewMembersWindow(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToNewMembers, today)
	recent := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(0, 0, -10))
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(0, 0, -100))

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Eligible != 1 || result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	items := f.listByRule(t, rule.ID)
	if len(items) != 1 || items[0].MemberID != recent.ID {
		t.Fatalf("unexpected applications: %+v", items)
	}
}

func TestApplyUnitLeadersOnly(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToUnitLeaders, today)
	joined := today.AddDate(-1, 0, 0)
	leader := f.seedMember(t, memberdomain.RoleUnitLeader, memberdomain.StatusActive, nil, joined)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, joined)

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	items := f.listByRule(t, rule.ID)
	if len(items) != 1 || items[0].MemberID != leader.ID {
		t.Fatalf("unexpected applications: %+v", items)
	}
}

func TestApplyActiveMembersOnly(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToActiveMembers, today)
	joined := today.AddDate(-1, 0, 0)
	active := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, joined)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusInactive, nil, joined)

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	items := f.listByRule(t, rule.ID)
	if len(items) != 1 || items[0].MemberID != active.ID {
		t.Fatalf("unexpected applications: %+v", items)
	}
}

func TestApplyRejectsRuleNotActive(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	draft := f.seedRule(t, feeruledomain.StatusDraft, feeruledomain.AppliesToAllMembers, today)
	if _, err := f.svc.Apply(ctx, draft.ID.String()); !errors.Is(err, domain.ErrRuleNotActive) {
		t.Fatalf("draft: err = %v, want %v", err, domain.ErrRuleNotActive)
	}

	scheduled := f.seedRule(t, feeruledomain.StatusScheduled, feeruledomain.AppliesToAllMembers, today.AddDate(0, 0, 5))
	if _, err := f.svc.Apply(ctx, scheduled.ID.String()); !errors.Is(err, domain.ErrRuleNotActive) {
		t.Fatalf("scheduled: err = %v, want %v", err, domain.ErrRuleNotActive)
	}
}

func TestApplyRejectsRuleNotEffective(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	// Status can say active while the effective date is still ahead; Apply
	// checks the date independently.
	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today.AddDate(0, 0, 1))
	if _, err := f.svc.Apply(ctx, rule.ID.String()); !errors.Is(err, domain.ErrRuleNotEffective) {
		t.Fatalf("err = %v, want %v", err, domain.ErrRuleNotEffective)
	}
}

func applicationsCreatedTotal(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "agrocoop_fee_applications_created_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestApplyCountsCreatedApplications(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))

	before := applicationsCreatedTotal(t)
	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("created = %d, want 2", result.Created)
	}
	if diff := applicationsCreatedTotal(t) - before; diff != 2 {
		t.Fatalf("counter moved by %v, want 2", diff)
	}
}

func TestApplyRuleEffectiveLaterToday(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()

	// An effective date stored with a time-of-day still counts as effective
	// for the whole calendar day.
	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, f.clock.Now().Add(5*time.Hour))
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, f.clock.Now().AddDate(-1, 0, 0))

	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("created = %d, want 1", result.Created)
	}
}

func TestApplyUnknownRule(t *testing.T) {
	f := setupApplicationTest(t)

	if _, err := f.svc.Apply(context.Background(), "not-an-id"); !errors.Is(err, domain.ErrInvalidRule) {
		t.Fatalf("err = %v, want %v", err, domain.ErrInvalidRule)
	}
	if _, err := f.svc.Apply(context.Background(), f.node.Generate().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNotFound)
	}
}

func TestCancelTransitions(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	items := f.listByRule(t, rule.ID)

	cancelled, err := f.svc.Cancel(ctx, items[0].ID.String(), "member left the cooperative")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want %s", cancelled.Status, domain.StatusCancelled)
	}
	if cancelled.Notes == nil || *cancelled.Notes != "member left the cooperative" {
		t.Fatalf("notes = %v", cancelled.Notes)
	}

	if _, err := f.svc.Cancel(ctx, items[0].ID.String(), ""); !errors.Is(err, domain.ErrNotOpen) {
		t.Fatalf("repeat cancel: err = %v, want %v", err, domain.ErrNotOpen)
	}
	if _, err := f.svc.MarkPaid(ctx, items[0].ID.String(), f.clock.Now(), "ref-1"); !errors.Is(err, domain.ErrNotOpen) {
		t.Fatalf("pay cancelled: err = %v, want %v", err, domain.ErrNotOpen)
	}
}

func TestCancelFreesTheOpenSlot(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	items := f.listByRule(t, rule.ID)
	if _, err := f.svc.Cancel(ctx, items[0].ID.String(), ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// With no open application left, re-applying creates a fresh one.
	result, err := f.svc.Apply(ctx, rule.ID.String())
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if result.Created != 1 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestMarkPaid(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	items := f.listByRule(t, rule.ID)

	paidAt := f.clock.Now()
	paid, err := f.svc.MarkPaid(ctx, items[0].ID.String(), paidAt, "mm-20250615-001")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.StatusPaid {
		t.Fatalf("status = %s, want %s", paid.Status, domain.StatusPaid)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(paidAt) {
		t.Fatalf("paid_at = %v, want %v", paid.PaidAt, paidAt)
	}
	if paid.PaymentRef == nil || *paid.PaymentRef != "mm-20250615-001" {
		t.Fatalf("payment_ref = %v", paid.PaymentRef)
	}

	if _, err := f.svc.MarkPaid(ctx, items[0].ID.String(), f.clock.Now(), "mm-20250615-002"); !errors.Is(err, domain.ErrAlreadyPaid) {
		t.Fatalf("repeat pay: err = %v, want %v", err, domain.ErrAlreadyPaid)
	}
}

func TestSweepOverdue(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	member := f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))

	pastDue := &domain.FeeApplication{
		ID:        f.node.Generate(),
		FeeRuleID: rule.ID,
		MemberID:  member.ID,
		Amount:    150,
		DueDate:   today.AddDate(0, 0, -1),
		Status:    domain.StatusPending,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.repo.Insert(ctx, f.db, pastDue); err != nil {
		t.Fatalf("insert past-due application: %v", err)
	}
	notDue := &domain.FeeApplication{
		ID:        f.node.Generate(),
		FeeRuleID: rule.ID,
		MemberID:  f.node.Generate(),
		Amount:    150,
		DueDate:   today.AddDate(0, 0, 10),
		Status:    domain.StatusPending,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if err := f.repo.Insert(ctx, f.db, notDue); err != nil {
		t.Fatalf("insert future application: %v", err)
	}

	flipped, err := f.svc.SweepOverdue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if flipped != 1 {
		t.Fatalf("flipped = %d, want 1", flipped)
	}

	got, err := f.svc.Get(ctx, pastDue.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusOverdue {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusOverdue)
	}

	// Overdue applications remain payable.
	if _, err := f.svc.MarkPaid(ctx, pastDue.ID.String(), f.clock.Now(), "late-payment"); err != nil {
		t.Fatalf("pay overdue: %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	f := setupApplicationTest(t)
	ctx := context.Background()
	today := clock.Today(f.clock)

	rule := f.seedRule(t, feeruledomain.StatusActive, feeruledomain.AppliesToAllMembers, today)
	for i := 0; i < 3; i++ {
		f.seedMember(t, memberdomain.RoleMember, memberdomain.StatusActive, nil, today.AddDate(-1, 0, 0))
	}
	if _, err := f.svc.Apply(ctx, rule.ID.String()); err != nil {
		t.Fatalf("apply: %v", err)
	}

	ruleID := rule.ID.String()
	first, err := f.svc.List(ctx, domain.ListRequest{FeeRuleID: &ruleID, PageSize: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("first page size = %d, want 2", len(first.Items))
	}
	if !first.PageInfo.HasMore || first.PageInfo.NextPageToken == "" {
		t.Fatalf("expected a next page, got %+v", first.PageInfo)
	}

	second, err := f.svc.List(ctx, domain.ListRequest{FeeRuleID: &ruleID, PageSize: 2, PageToken: first.PageInfo.NextPageToken})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("second page size = %d, want 1", len(second.Items))
	}
	if second.PageInfo.HasMore {
		t.Fatalf("unexpected third page: %+v", second.PageInfo)
	}

	seen := map[string]bool{}
	for _, item := range append(first.Items, second.Items...) {
		seen[item.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("pages overlap: %v", seen)
	}
}

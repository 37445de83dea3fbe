package domain

import (
	"testing"
	"time"
)

var today = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestResolveStatus(t *testing.T) {
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	tests := []struct {
		name          string
		requested     Status
		effectiveDate time.Time
		want          Status
	}{
		{"scheduled stays scheduled", StatusScheduled, yesterday, StatusScheduled},
		{"active with past date stays active", StatusActive, yesterday, StatusActive},
		{"active effective today stays active", StatusActive, today, StatusActive},
		{"active with future date is forced to scheduled", StatusActive, tomorrow, StatusScheduled},
		{"draft is untouched", StatusDraft, tomorrow, StatusDraft},
		{"inactive is untouched", StatusInactive, yesterday, StatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveStatus(tt.requested, tt.effectiveDate, today)
			if got != tt.want {
				t.Fatalf("ResolveStatus(%s, %s) = %s, want %s", tt.requested, tt.effectiveDate.Format(time.DateOnly), got, tt.want)
			}
		})
	}
}

func TestResolveStatusIgnoresTimeOfDay(t *testing.T) {
	// A rule effective later today is still effective today.
	effective := time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	now := time.Date(2025, 6, 15, 0, 1, 0, 0, time.UTC)
	if got := ResolveStatus(StatusActive, effective, now); got != StatusActive {
		t.Fatalf("expected active, got %s", got)
	}
}

func TestShouldBeActivated(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		effectiveDate time.Time
		want          bool
	}{
		{"scheduled and past due", StatusScheduled, today.AddDate(0, 0, -3), true},
		{"scheduled and effective today", StatusScheduled, today, true},
		{"scheduled but effective tomorrow", StatusScheduled, today.AddDate(0, 0, 1), false},
		{"draft never activates", StatusDraft, today, false},
		{"active never re-activates", StatusActive, today, false},
		{"inactive never activates", StatusInactive, today, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &FeeRule{Status: tt.status, EffectiveDate: tt.effectiveDate}
			if got := rule.ShouldBeActivated(today); got != tt.want {
				t.Fatalf("ShouldBeActivated = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveComparesDatesOnly(t *testing.T) {
	rule := &FeeRule{EffectiveDate: today.Add(15 * time.Hour)}
	if !rule.Effective(today) {
		t.Fatal("rule effective later today must count as effective")
	}

	rule.EffectiveDate = today.AddDate(0, 0, 1)
	if rule.Effective(today.Add(23 * time.Hour)) {
		t.Fatal("rule effective tomorrow must not count as effective today")
	}
}

func TestActivate(t *testing.T) {
	rule := &FeeRule{Status: StatusScheduled, EffectiveDate: today}
	if !rule.Activate(today) {
		t.Fatal("expected activation of a due rule")
	}
	if rule.Status != StatusActive {
		t.Fatalf("status = %s, want %s", rule.Status, StatusActive)
	}

	notDue := &FeeRule{Status: StatusScheduled, EffectiveDate: today.AddDate(0, 0, 1)}
	if notDue.Activate(today) {
		t.Fatal("expected no activation before the effective date")
	}
	if notDue.Status != StatusScheduled {
		t.Fatalf("status changed on a refused activation: %s", notDue.Status)
	}
}

func TestDueDate(t *testing.T) {
	const graceDays = 7

	tests := []struct {
		freq Frequency
		want time.Time
	}{
		{FrequencyDaily, today.AddDate(0, 0, 1)},
		{FrequencyWeekly, today.AddDate(0, 0, 7)},
		{FrequencyMonthly, today.AddDate(0, 1, 0)},
		{FrequencyQuarterly, today.AddDate(0, 3, 0)},
		{FrequencyYearly, today.AddDate(1, 0, 0)},
		{FrequencyOneTime, today.AddDate(0, 0, graceDays)},
		{FrequencyPerTransaction, today.AddDate(0, 0, graceDays)},
	}

	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got := DueDate(tt.freq, today, graceDays)
			if !got.Equal(tt.want) {
				t.Fatalf("DueDate(%s) = %s, want %s", tt.freq, got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestDueDateTruncatesToDate(t *testing.T) {
	noon := time.Date(2025, 6, 15, 12, 30, 0, 0, time.UTC)
	got := DueDate(FrequencyMonthly, noon, 7)
	want := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DueDate = %s, want %s", got, want)
	}
}

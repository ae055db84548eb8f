package models

import (
	"testing"
	"time"

	"fintrack/internal/calendar"
)

func datePtr(t time.Time) *time.Time { return &t }

func TestRecurrence_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Recurrence
		wantErr bool
	}{
		{"not_recurring", Recurrence{}, false},
		{"monthly_custom", Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: calendar.CustomDay, CustomDay: 31}, false},
		{"weekly", Recurrence{IsRecurring: true, Frequency: calendar.Weekly}, false},
		{"missing_frequency", Recurrence{IsRecurring: true}, true},
		{"bad_day_option", Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: "middle"}, true},
		{"custom_without_day", Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: calendar.CustomDay}, true},
		{"monthly_without_day_option", Recurrence{IsRecurring: true, Frequency: calendar.Monthly}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rule.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRecurrence_IsDue(t *testing.T) {
	asOf := calendar.Date(2024, 3, 10)
	tests := []struct {
		name string
		rule Recurrence
		want bool
	}{
		{"due_today", Recurrence{IsRecurring: true, NextOccurrence: datePtr(asOf)}, true},
		{"overdue", Recurrence{IsRecurring: true, NextOccurrence: datePtr(calendar.Date(2024, 1, 1))}, true},
		{"future", Recurrence{IsRecurring: true, NextOccurrence: datePtr(calendar.Date(2024, 3, 11))}, false},
		{"not_recurring", Recurrence{NextOccurrence: datePtr(asOf)}, false},
		{"no_pointer", Recurrence{IsRecurring: true}, false},
		{"ended", Recurrence{IsRecurring: true, NextOccurrence: datePtr(asOf), EndDate: datePtr(calendar.Date(2024, 3, 9))}, false},
		{"ends_on_occurrence", Recurrence{IsRecurring: true, NextOccurrence: datePtr(asOf), EndDate: datePtr(asOf)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.IsDue(asOf); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecurrence_AnchorDay(t *testing.T) {
	t.Run("monthly_without_option_pins_day", func(t *testing.T) {
		r := Recurrence{IsRecurring: true, Frequency: calendar.Monthly}
		r.AnchorDay(calendar.Date(2024, 1, 31))
		if r.DayOption != calendar.CustomDay || r.CustomDay != 31 {
			t.Errorf("expected custom day 31, got %s/%d", r.DayOption, r.CustomDay)
		}
	})

	t.Run("explicit_option_kept", func(t *testing.T) {
		r := Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: calendar.LastDay}
		r.AnchorDay(calendar.Date(2024, 1, 15))
		if r.DayOption != calendar.LastDay || r.CustomDay != 0 {
			t.Errorf("expected last_day untouched, got %s/%d", r.DayOption, r.CustomDay)
		}
	})

	t.Run("weekly_untouched", func(t *testing.T) {
		r := Recurrence{IsRecurring: true, Frequency: calendar.Weekly}
		r.AnchorDay(calendar.Date(2024, 1, 31))
		if r.DayOption != "" || r.CustomDay != 0 {
			t.Errorf("expected weekly rule untouched, got %s/%d", r.DayOption, r.CustomDay)
		}
	})
}

func TestRecurrence_Reschedule(t *testing.T) {
	r := Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: calendar.LastDay}

	if err := r.Reschedule(calendar.Date(2024, 1, 31)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.NextOccurrence.Equal(calendar.Date(2024, 2, 29)) {
		t.Errorf("expected 2024-02-29, got %s", r.NextOccurrence)
	}
	if r.Revision != 1 {
		t.Errorf("expected revision 1, got %d", r.Revision)
	}

	r.IsRecurring = false
	_ = r.Reschedule(calendar.Date(2024, 2, 29))
	if r.NextOccurrence != nil {
		t.Error("expected pointer cleared for non-recurring entries")
	}
}

func TestIncome_Materialize(t *testing.T) {
	src := &Income{
		Base:       Base{ID: "0190a000-0000-7000-8000-000000000001"},
		UserID:     "user-1",
		Source:     "Acme Corp",
		Type:       IncomeTypeSalary,
		Amount:     dec(5000),
		Recurrence: Recurrence{IsRecurring: true, Frequency: calendar.Monthly, DayOption: calendar.FirstDay},
	}

	entry := src.Materialize(calendar.Date(2024, 2, 1))

	if entry.IsRecurring || !entry.AutoGenerated {
		t.Error("materialized entries are auto-generated and never recurring")
	}
	if entry.SourceID == nil || *entry.SourceID != src.ID {
		t.Errorf("expected back-reference to %s", src.ID)
	}
	if !entry.Date.Equal(calendar.Date(2024, 2, 1)) || !entry.Amount.Equal(src.Amount) {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.ID != "" {
		t.Error("materialized entry must get its own id on create")
	}
}

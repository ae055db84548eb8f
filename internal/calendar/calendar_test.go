package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name      string
		freq      Frequency
		opt       DayOption
		customDay int
		from      time.Time
		want      time.Time
	}{
		{"daily", Daily, "", 0, Date(2024, 2, 28), Date(2024, 2, 29)},
		{"daily_year_end", Daily, "", 0, Date(2023, 12, 31), Date(2024, 1, 1)},
		{"weekly", Weekly, "", 0, Date(2024, 1, 29), Date(2024, 2, 5)},
		{"monthly_first_day", Monthly, FirstDay, 0, Date(2024, 1, 15), Date(2024, 2, 1)},
		{"monthly_last_day_leap", Monthly, LastDay, 0, Date(2024, 1, 31), Date(2024, 2, 29)},
		{"monthly_last_day_non_leap", Monthly, LastDay, 0, Date(2023, 1, 31), Date(2023, 2, 28)},
		{"monthly_last_day_after_february", Monthly, LastDay, 0, Date(2024, 2, 29), Date(2024, 3, 31)},
		{"monthly_custom_31_in_february", Monthly, CustomDay, 31, Date(2024, 1, 31), Date(2024, 2, 29)},
		{"monthly_custom_31_recovers_in_march", Monthly, CustomDay, 31, Date(2024, 2, 29), Date(2024, 3, 31)},
		{"monthly_custom_15", Monthly, CustomDay, 15, Date(2024, 1, 15), Date(2024, 2, 15)},
		{"monthly_custom_30_in_april", Monthly, CustomDay, 30, Date(2024, 3, 30), Date(2024, 4, 30)},
		{"monthly_december_rolls_year", Monthly, FirstDay, 0, Date(2024, 12, 10), Date(2025, 1, 1)},
		{"yearly", Yearly, "", 0, Date(2023, 6, 15), Date(2024, 6, 15)},
		{"yearly_leap_day", Yearly, "", 0, Date(2024, 2, 29), Date(2025, 2, 28)},
		{"yearly_ignores_day_option", Yearly, LastDay, 0, Date(2024, 3, 10), Date(2025, 3, 10)},
		{"drops_time_of_day", Daily, "", 0, time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC), Date(2024, 5, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.freq, tt.opt, tt.customDay, tt.from)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want.Format(time.DateOnly), got.Format(time.DateOnly))
			}
		})
	}
}

func TestNextOccurrence_Errors(t *testing.T) {
	tests := []struct {
		name      string
		freq      Frequency
		opt       DayOption
		customDay int
		want      error
	}{
		{"unknown_frequency", Frequency("hourly"), "", 0, ErrUnknownFrequency},
		{"unknown_day_option", Monthly, DayOption("mid"), 0, ErrUnknownDayOption},
		{"monthly_without_day_option", Monthly, "", 0, ErrUnknownDayOption},
		{"custom_day_zero", Monthly, CustomDay, 0, ErrInvalidCustomDay},
		{"custom_day_too_large", Monthly, CustomDay, 32, ErrInvalidCustomDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NextOccurrence(tt.freq, tt.opt, tt.customDay, Date(2024, 1, 1))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNextOccurrence_Custom31OverSeveralMonths(t *testing.T) {
	want := []time.Time{Date(2024, 2, 29), Date(2024, 3, 31), Date(2024, 4, 30), Date(2024, 5, 31)}
	d := Date(2024, 1, 31)
	for i, w := range want {
		next, err := NextOccurrence(Monthly, CustomDay, 31, d)
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if !next.Equal(w) {
			t.Fatalf("step %d: expected %s, got %s", i, w, next)
		}
		d = next
	}
}

func TestNextOccurrence_IsDeterministic(t *testing.T) {
	from := Date(2024, 1, 31)
	first, _ := NextOccurrence(Monthly, CustomDay, 31, from)
	for range 5 {
		again, _ := NextOccurrence(Monthly, CustomDay, 31, from)
		if !again.Equal(first) {
			t.Fatalf("expected %s on replay, got %s", first, again)
		}
	}
}

func TestNextOccurrence_AlwaysAdvances(t *testing.T) {
	rules := []struct {
		freq Frequency
		opt  DayOption
		day  int
	}{
		{Daily, "", 0}, {Weekly, "", 0}, {Monthly, FirstDay, 0}, {Monthly, LastDay, 0},
		{Monthly, CustomDay, 1}, {Monthly, CustomDay, 31}, {Yearly, "", 0},
	}

	for _, r := range rules {
		d := Date(2023, 1, 1)
		for range 60 {
			next, err := NextOccurrence(r.freq, r.opt, r.day, d)
			if err != nil {
				t.Fatalf("%s/%s: unexpected error: %v", r.freq, r.opt, err)
			}
			if !next.After(d) {
				t.Fatalf("%s/%s: %s did not advance past %s", r.freq, r.opt, next, d)
			}
			d = next
		}
	}
}

func TestPeriodWindow(t *testing.T) {
	tests := []struct {
		name   string
		period Period
		at     time.Time
		start  time.Time
		end    time.Time
	}{
		{"weekly_midweek", PeriodWeekly, Date(2024, 3, 13), Date(2024, 3, 11), Date(2024, 3, 18)},
		{"weekly_sunday", PeriodWeekly, Date(2024, 3, 17), Date(2024, 3, 11), Date(2024, 3, 18)},
		{"weekly_monday", PeriodWeekly, Date(2024, 3, 18), Date(2024, 3, 18), Date(2024, 3, 25)},
		{"monthly", PeriodMonthly, Date(2024, 2, 10), Date(2024, 2, 1), Date(2024, 3, 1)},
		{"quarterly_q1", PeriodQuarterly, Date(2024, 3, 31), Date(2024, 1, 1), Date(2024, 4, 1)},
		{"quarterly_q4", PeriodQuarterly, Date(2024, 11, 5), Date(2024, 10, 1), Date(2025, 1, 1)},
		{"yearly", PeriodYearly, Date(2024, 7, 4), Date(2024, 1, 1), Date(2025, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := PeriodWindow(tt.period, tt.at)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !w.Start.Equal(tt.start) || !w.End.Equal(tt.end) {
				t.Errorf("expected [%s, %s), got [%s, %s)",
					tt.start.Format(time.DateOnly), tt.end.Format(time.DateOnly),
					w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
			}
			if !w.Contains(tt.at) {
				t.Errorf("expected window to contain %s", tt.at.Format(time.DateOnly))
			}
		})
	}

	t.Run("unknown_period", func(t *testing.T) {
		_, err := PeriodWindow(Period("daily"), Date(2024, 1, 1))
		if !errors.Is(err, ErrUnknownPeriod) {
			t.Errorf("expected ErrUnknownPeriod, got %v", err)
		}
	})
}

func TestNextWindow(t *testing.T) {
	w, _ := PeriodWindow(PeriodMonthly, Date(2024, 1, 15))
	next, err := NextWindow(PeriodMonthly, w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Start.Equal(Date(2024, 2, 1)) || !next.End.Equal(Date(2024, 3, 1)) {
		t.Errorf("unexpected next window %v", next)
	}
}

func TestMonthWindow(t *testing.T) {
	w := MonthWindow(2024, time.February)
	if w.Days() != 29 {
		t.Errorf("expected 29 days, got %d", w.Days())
	}
	if !w.Last().Equal(Date(2024, 2, 29)) {
		t.Errorf("expected last day 2024-02-29, got %s", w.Last())
	}
	if w.Contains(Date(2024, 3, 1)) {
		t.Error("window must exclude the first day of the next month")
	}
}

func TestAddMonths(t *testing.T) {
	if got := AddMonths(Date(2024, 1, 31), 1); !got.Equal(Date(2024, 2, 29)) {
		t.Errorf("expected 2024-02-29, got %s", got)
	}
	if got := AddMonths(Date(2024, 3, 15), -5); !got.Equal(Date(2023, 10, 15)) {
		t.Errorf("expected 2023-10-15, got %s", got)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(Date(2024, 1, 1), Date(2024, 3, 1)); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}
	if got := DaysBetween(Date(2024, 3, 1), Date(2024, 1, 1)); got != -60 {
		t.Errorf("expected -60, got %d", got)
	}
}

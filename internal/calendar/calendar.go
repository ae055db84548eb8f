// Package calendar provides the date arithmetic used by recurring entries,
// budget periods and reporting windows. All dates are normalized to midnight UTC.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Frequency is how often a recurring entry repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// DayOption selects the day of month used by monthly recurrences.
type DayOption string

const (
	FirstDay  DayOption = "first_day"
	LastDay   DayOption = "last_day"
	CustomDay DayOption = "custom"
)

// Valid reports whether o is a known day option. The empty option is valid
// for rules that are not monthly.
func (o DayOption) Valid() bool {
	switch o {
	case "", FirstDay, LastDay, CustomDay:
		return true
	}
	return false
}

// Period is the length of a budget window.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

var (
	ErrUnknownFrequency = errors.New("unknown recurrence frequency")
	ErrUnknownDayOption = errors.New("unknown day option")
	ErrInvalidCustomDay = errors.New("custom day must be between 1 and 31")
	ErrUnknownPeriod    = errors.New("unknown budget period")
)

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the calendar day t falls on in its own location.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// DaysBetween returns the whole number of days from a to b (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// AddMonths moves t by n months, clamping the day to the end of the target month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := Date(y, m, 1).AddDate(0, n, 0)
	return Date(first.Year(), first.Month(), min(d, DaysIn(first.Year(), first.Month())))
}

// NextOccurrence returns the occurrence that follows from for the given rule.
// customDay is only consulted when opt is CustomDay.
func NextOccurrence(freq Frequency, opt DayOption, customDay int, from time.Time) (time.Time, error) {
	from = Truncate(from)

	switch freq {
	case Daily:
		return from.AddDate(0, 0, 1), nil
	case Weekly:
		return from.AddDate(0, 0, 7), nil
	case Monthly:
		return nextMonthly(opt, customDay, from)
	case Yearly:
		return AddMonths(from, 12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
}

func nextMonthly(opt DayOption, customDay int, from time.Time) (time.Time, error) {
	first := Date(from.Year(), from.Month(), 1).AddDate(0, 1, 0)
	last := DaysIn(first.Year(), first.Month())

	switch opt {
	case FirstDay:
		return first, nil
	case LastDay:
		return Date(first.Year(), first.Month(), last), nil
	case CustomDay:
		if customDay < 1 || customDay > 31 {
			return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidCustomDay, customDay)
		}
		return Date(first.Year(), first.Month(), min(customDay, last)), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownDayOption, opt)
	}
}

// Window is a half-open range of days [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Last returns the final day inside the window.
func (w Window) Last() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// Days returns the number of days in the window.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End)
}

// MonthWindow returns the window covering a calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := Date(year, month, 1)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PeriodWindow returns the window of the given period that contains t.
// Weeks start on Monday.
func PeriodWindow(p Period, t time.Time) (Window, error) {
	day := Truncate(t)
	y, m, _ := day.Date()

	switch p {
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}, nil
	case PeriodMonthly:
		return MonthWindow(y, m), nil
	case PeriodQuarterly:
		start := Date(y, time.Month((int(m)-1)/3*3+1), 1)
		return Window{Start: start, End: start.AddDate(0, 3, 0)}, nil
	case PeriodYearly:
		start := Date(y, time.January, 1)
		return Window{Start: start, End: start.AddDate(1, 0, 0)}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
}

// NextWindow returns the window immediately after w for the given period.
func NextWindow(p Period, w Window) (Window, error) {
	return PeriodWindow(p, w.End)
}

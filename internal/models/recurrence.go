package models

import (
	"fmt"
	"time"

	"fintrack/internal/calendar"
)

// EntryKind distinguishes the two ledger tables that carry recurrence rules.
type EntryKind string

const (
	EntryKindIncome  EntryKind = "income"
	EntryKindExpense EntryKind = "expense"
)

// Recurrence is the repeat rule embedded in a recurring income or expense.
// NextOccurrence is the date of the next entry to materialize. Revision is
// bumped on every pointer change and guards concurrent advances.
type Recurrence struct {
	IsRecurring    bool               `gorm:"not null;default:false;index" json:"is_recurring"`
	Frequency      calendar.Frequency `gorm:"column:recurrence_type;size:20" json:"recurrence_type,omitempty"`
	DayOption      calendar.DayOption `gorm:"column:recurrence_day_option;size:20" json:"recurrence_day_option,omitempty"`
	CustomDay      int                `gorm:"column:recurrence_custom_day" json:"recurrence_custom_day,omitempty"`
	EndDate        *time.Time         `gorm:"column:recurrence_end_date" json:"recurrence_end_date,omitempty"`
	NextOccurrence *time.Time         `gorm:"index" json:"next_occurrence,omitempty"`
	LastProcessed  *time.Time         `json:"last_processed,omitempty"`
	Revision       int                `gorm:"not null;default:0" json:"-"`
}

// Validate checks the rule. A non-recurring entry is always valid.
func (r Recurrence) Validate() error {
	if !r.IsRecurring {
		return nil
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("unknown recurrence type %q", r.Frequency)
	}
	if !r.DayOption.Valid() {
		return fmt.Errorf("unknown day option %q", r.DayOption)
	}
	if r.Frequency == calendar.Monthly && r.DayOption == "" {
		return fmt.Errorf("monthly recurrence needs a day option")
	}
	if r.Frequency == calendar.Monthly && r.DayOption == calendar.CustomDay && (r.CustomDay < 1 || r.CustomDay > 31) {
		return fmt.Errorf("custom day %d must be between 1 and 31", r.CustomDay)
	}
	return nil
}

// AnchorDay pins a monthly rule without a day option to the day of date,
// so later months return to that day after a short month clamps it.
func (r *Recurrence) AnchorDay(date time.Time) {
	if r.IsRecurring && r.Frequency == calendar.Monthly && r.DayOption == "" {
		r.DayOption = calendar.CustomDay
		r.CustomDay = date.Day()
	}
}

// Next returns the occurrence after from under this rule.
func (r Recurrence) Next(from time.Time) (time.Time, error) {
	return calendar.NextOccurrence(r.Frequency, r.DayOption, r.CustomDay, from)
}

// IsDue reports whether the rule has an occurrence to materialize on or before asOf.
func (r Recurrence) IsDue(asOf time.Time) bool {
	if !r.IsRecurring || r.NextOccurrence == nil {
		return false
	}
	next := *r.NextOccurrence
	if next.After(calendar.Truncate(asOf)) {
		return false
	}
	return r.EndDate == nil || !r.EndDate.Before(next)
}

// Reschedule points NextOccurrence at the occurrence following anchor,
// the most recent date an entry exists for.
func (r *Recurrence) Reschedule(anchor time.Time) error {
	if !r.IsRecurring {
		r.NextOccurrence = nil
		r.Revision++
		return nil
	}
	next, err := r.Next(anchor)
	if err != nil {
		return err
	}
	r.NextOccurrence = &next
	r.Revision++
	return nil
}

// normalize strips the time of day from every date in the rule.
func (r *Recurrence) normalize() {
	if r.EndDate != nil {
		d := calendar.Truncate(*r.EndDate)
		r.EndDate = &d
	}
	if r.NextOccurrence != nil {
		d := calendar.Truncate(*r.NextOccurrence)
		r.NextOccurrence = &d
	}
	if r.DayOption != calendar.CustomDay {
		r.CustomDay = 0
	}
}

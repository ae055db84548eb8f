package services

import (
	"time"

	"gorm.io/gorm"

	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// prepareRule validates rule for an entry dated date and points its
// NextOccurrence at the occurrence after anchor. A non-recurring rule is
// cleared down to its bookkeeping fields. Either way the revision moves on.
func prepareRule(rule models.Recurrence, date, anchor time.Time) (models.Recurrence, error) {
	if !rule.IsRecurring {
		cleared := models.Recurrence{Revision: rule.Revision, LastProcessed: rule.LastProcessed}
		err := cleared.Reschedule(anchor)
		return cleared, err
	}
	rule.AnchorDay(calendar.Truncate(date))
	if err := rule.Validate(); err != nil {
		return rule, apperrors.WithMessage(apperrors.ErrInvalidRecurrence, err.Error())
	}
	if rule.EndDate != nil {
		end := calendar.Truncate(*rule.EndDate)
		if end.Before(calendar.Truncate(date)) {
			return rule, apperrors.WithMessage(apperrors.ErrInvalidRecurrence, "Recurrence end date cannot be before the entry date")
		}
		rule.EndDate = &end
	}
	if rule.DayOption != calendar.CustomDay {
		rule.CustomDay = 0
	}
	if err := rule.Reschedule(calendar.Truncate(anchor)); err != nil {
		return rule, apperrors.WithMessage(apperrors.ErrInvalidRecurrence, err.Error())
	}
	return rule, nil
}

// mergeRule applies the owner-editable parts of edit onto current, keeping
// the processor-owned bookkeeping.
func mergeRule(current, edit models.Recurrence) models.Recurrence {
	current.IsRecurring = edit.IsRecurring
	current.Frequency = edit.Frequency
	current.DayOption = edit.DayOption
	current.CustomDay = edit.CustomDay
	current.EndDate = edit.EndDate
	return current
}

// ruleColumns maps a rule onto its column names for map updates.
func ruleColumns(rule models.Recurrence) map[string]interface{} {
	return map[string]interface{}{
		"is_recurring":          rule.IsRecurring,
		"recurrence_type":       rule.Frequency,
		"recurrence_day_option": rule.DayOption,
		"recurrence_custom_day": rule.CustomDay,
		"recurrence_end_date":   rule.EndDate,
		"next_occurrence":       rule.NextOccurrence,
		"revision":              rule.Revision,
	}
}

// rescheduleAnchor is the most recent date an entry exists for under the
// definition: the later of its own date and its newest generated entry.
func rescheduleAnchor(db *gorm.DB, model interface{}, definitionID string, date time.Time) (time.Time, error) {
	var dates []time.Time
	err := db.Model(model).
		Where("source_id = ?", definitionID).
		Order("date DESC").
		Limit(1).
		Pluck("date", &dates).Error
	if err != nil {
		return time.Time{}, err
	}
	anchor := calendar.Truncate(date)
	if len(dates) > 0 && dates[0].After(anchor) {
		anchor = calendar.Truncate(dates[0])
	}
	return anchor, nil
}

// applyEntryFilter narrows an income or expense query.
func applyEntryFilter(q *gorm.DB, filter EntryFilter) *gorm.DB {
	if filter.FromDate != nil {
		q = q.Where("date >= ?", calendar.Truncate(*filter.FromDate))
	}
	if filter.ToDate != nil {
		q = q.Where("date <= ?", calendar.Truncate(*filter.ToDate))
	}
	if filter.Recurring != nil {
		q = q.Where("is_recurring = ?", *filter.Recurring)
	}
	if filter.AutoGenerated != nil {
		q = q.Where("auto_generated = ?", *filter.AutoGenerated)
	}
	return q
}

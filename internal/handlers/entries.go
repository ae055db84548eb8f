package handlers

import (
	"github.com/gin-gonic/gin"

	"fintrack/internal/calendar"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// RecurrenceRequest is the repeat rule accepted on incomes and expenses.
type RecurrenceRequest struct {
	IsRecurring       bool               `json:"is_recurring"`
	RecurrenceType    calendar.Frequency `json:"recurrence_type" binding:"omitempty,recurrence_type"`
	DayOption         calendar.DayOption `json:"recurrence_day_option" binding:"omitempty,day_option"`
	CustomDay         int                `json:"recurrence_custom_day" binding:"omitempty,min=1,max=31"`
	RecurrenceEndDate *string            `json:"recurrence_end_date"`
}

// rule converts the request into a recurrence rule; the service validates it.
func (r RecurrenceRequest) rule() (models.Recurrence, error) {
	end, err := parseOptionalDate("recurrence_end_date", r.RecurrenceEndDate)
	if err != nil {
		return models.Recurrence{}, err
	}
	return models.Recurrence{
		IsRecurring: r.IsRecurring,
		Frequency:   r.RecurrenceType,
		DayOption:   r.DayOption,
		CustomDay:   r.CustomDay,
		EndDate:     end,
	}, nil
}

// entryFilter reads the shared income and expense list filters.
func entryFilter(c *gin.Context) (services.EntryFilter, error) {
	var f services.EntryFilter
	var err error
	if f.FromDate, err = queryDate(c, "from_date"); err != nil {
		return f, err
	}
	if f.ToDate, err = queryDate(c, "to_date"); err != nil {
		return f, err
	}
	if f.Recurring, err = queryBool(c, "is_recurring"); err != nil {
		return f, err
	}
	if f.AutoGenerated, err = queryBool(c, "auto_generated"); err != nil {
		return f, err
	}
	return f, nil
}

package services

import (
	"errors"

	"gorm.io/gorm"

	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// incomeService handles income-related business logic.
type incomeService struct {
	db *gorm.DB
}

// NewIncomeService creates a new IncomeServicer.
func NewIncomeService(db *gorm.DB) IncomeServicer {
	return &incomeService{db: db}
}

// CreateIncome records an income. A recurring income is also the definition
// future entries are generated from; it counts as the first occurrence.
func (s *incomeService) CreateIncome(userID string, in IncomeInput) (*models.Income, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown income type")
	}
	if in.Date.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Date is required")
	}

	rule, err := prepareRule(in.Rule, in.Date, in.Date)
	if err != nil {
		return nil, err
	}

	income := &models.Income{
		UserID:      userID,
		Source:      in.Source,
		Type:        in.Type,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        calendar.Truncate(in.Date),
		Recurrence:  rule,
	}
	if err := s.db.Create(income).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return income, nil
}

// GetUserIncomes returns a paginated list of incomes, newest first.
func (s *incomeService) GetUserIncomes(userID string, page pagination.PageRequest, filter EntryFilter) (*pagination.PageResponse[models.Income], error) {
	base := applyEntryFilter(s.db.Model(&models.Income{}).Where("user_id = ?", userID), filter)

	result, err := pagination.Find[models.Income](base, page, "date DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return result, nil
}

// GetIncomeByID returns an income by ID if it belongs to the user.
func (s *incomeService) GetIncomeByID(userID, incomeID string) (*models.Income, error) {
	var income models.Income
	if err := s.db.Where("id = ? AND user_id = ?", incomeID, userID).First(&income).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrIncomeNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &income, nil
}

// UpdateIncome changes an income. Editing the rule, or the date of a
// recurring income, recomputes the next occurrence from the most recent
// entry so no occurrence is produced twice.
func (s *incomeService) UpdateIncome(userID, incomeID string, in IncomeUpdate) (*models.Income, error) {
	income, err := s.GetIncomeByID(userID, incomeID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if in.Source != nil {
		updates["source"] = *in.Source
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown income type")
		}
		updates["income_type"] = *in.Type
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.ErrInvalidAmount
		}
		updates["amount"] = *in.Amount
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}

	date := income.Date
	reschedule := false
	if in.Date != nil {
		date = calendar.Truncate(*in.Date)
		updates["date"] = date
		reschedule = income.IsRecurring
	}

	rule := income.Recurrence
	if in.Rule != nil {
		if income.AutoGenerated && in.Rule.IsRecurring {
			return nil, apperrors.ErrEntryAutoGenerated
		}
		rule = mergeRule(rule, *in.Rule)
		reschedule = true
	}

	if reschedule {
		anchor, err := rescheduleAnchor(s.db, &models.Income{}, income.ID, date)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		rule, err = prepareRule(rule, date, anchor)
		if err != nil {
			return nil, err
		}
		for column, value := range ruleColumns(rule) {
			updates[column] = value
		}
	}

	if len(updates) == 0 {
		return income, nil
	}

	result := s.db.Model(&models.Income{}).
		Where("id = ? AND revision = ?", income.ID, income.Revision).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrConflict
	}

	return s.GetIncomeByID(userID, incomeID)
}

// DeleteIncome soft-deletes an income. Entries already generated from a
// recurring income are kept.
func (s *incomeService) DeleteIncome(userID, incomeID string) error {
	income, err := s.GetIncomeByID(userID, incomeID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(income).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

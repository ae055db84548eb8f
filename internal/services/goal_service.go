package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrack/internal/analytics"
	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// upcomingDeadlines is how many deadlines GetSummary lists.
const upcomingDeadlines = 3

// goalService handles goal-related business logic.
type goalService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB) GoalServicer {
	return &goalService{db: db, now: time.Now}
}

// CreateGoal creates an active goal. An initial amount counts as a first
// contribution and completes the goal when it reaches the target.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*models.Goal, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if !in.TargetAmount.IsPositive() {
		return nil, apperrors.ErrInvalidAmount
	}
	if in.InitialAmount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Initial amount cannot be negative")
	}
	if in.Priority == "" {
		in.Priority = models.GoalPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown goal priority")
	}

	now := s.now()
	targetDate := calendar.Truncate(in.TargetDate)
	if !targetDate.After(calendar.Truncate(now)) {
		return nil, apperrors.ErrTargetDateInPast
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          in.Name,
		Description:   in.Description,
		Category:      in.Category,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		TargetDate:    targetDate,
		Priority:      in.Priority,
		Status:        models.GoalStatusActive,
	}
	if in.InitialAmount.IsPositive() {
		if err := goal.Contribute(in.InitialAmount, now); err != nil {
			return nil, err
		}
	}

	if err := s.db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	goal.Project(now)
	return goal, nil
}

// GetUserGoals returns a paginated list of goals ordered by target date.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error) {
	base := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)
	if status != nil {
		base = base.Where("status = ?", *status)
	}

	result, err := pagination.Find[models.Goal](base, page, "target_date ASC, id ASC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.now()
	for i := range result.Data {
		result.Data[i].Project(now)
	}

	return result, nil
}

// GetGoalByID returns a goal by ID if it belongs to the user.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	goal, err := findGoal(s.db, userID, goalID)
	if err != nil {
		return nil, err
	}
	goal.Project(s.now())
	return goal, nil
}

// UpdateGoal changes a goal's details. A new target amount re-evaluates completion.
func (s *goalService) UpdateGoal(userID, goalID string, in GoalUpdate) (*models.Goal, error) {
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Unknown goal priority")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
	}

	return s.mutate(userID, goalID, func(g *models.Goal, now time.Time) error {
		if in.TargetDate != nil {
			targetDate := calendar.Truncate(*in.TargetDate)
			if !targetDate.After(calendar.Truncate(now)) {
				return apperrors.ErrTargetDateInPast
			}
			g.TargetDate = targetDate
		}
		if in.TargetAmount != nil {
			if err := g.SetTarget(*in.TargetAmount, now); err != nil {
				return err
			}
		}
		if in.Name != nil {
			g.Name = *in.Name
		}
		if in.Description != nil {
			g.Description = *in.Description
		}
		if in.Category != nil {
			g.Category = *in.Category
		}
		if in.Priority != nil {
			g.Priority = *in.Priority
		}
		return nil
	})
}

// DeleteGoal soft-deletes a goal that holds no funds.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	goal, err := findGoal(s.db, userID, goalID)
	if err != nil {
		return err
	}
	if goal.CurrentAmount.IsPositive() {
		return apperrors.ErrGoalHasFunds
	}
	if err := s.db.Delete(goal).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Contribute adds funds to an active goal.
func (s *goalService) Contribute(userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	return s.mutate(userID, goalID, func(g *models.Goal, now time.Time) error {
		return g.Contribute(amount, now)
	})
}

// Withdraw takes funds out of a goal.
func (s *goalService) Withdraw(userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	return s.mutate(userID, goalID, func(g *models.Goal, now time.Time) error {
		return g.Withdraw(amount, now)
	})
}

// Pause suspends an active goal.
func (s *goalService) Pause(userID, goalID string) (*models.Goal, error) {
	return s.mutate(userID, goalID, func(g *models.Goal, _ time.Time) error {
		return g.Pause()
	})
}

// Resume reactivates a paused goal.
func (s *goalService) Resume(userID, goalID string) (*models.Goal, error) {
	return s.mutate(userID, goalID, func(g *models.Goal, _ time.Time) error {
		return g.Resume()
	})
}

// Cancel ends a goal.
func (s *goalService) Cancel(userID, goalID string) (*models.Goal, error) {
	return s.mutate(userID, goalID, func(g *models.Goal, _ time.Time) error {
		return g.Cancel()
	})
}

// GetSummary totals all of the user's goals.
func (s *goalService) GetSummary(userID string) (*GoalSummary, error) {
	var goals []models.Goal
	if err := s.db.Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.now()
	today := calendar.Truncate(now)
	summary := &GoalSummary{
		GoalsSummary:      analytics.SummarizeGoals(goals),
		ByPriority:        make(map[models.GoalPriority]PriorityTotals),
		UpcomingDeadlines: []UpcomingDeadline{},
	}

	var upcoming []models.Goal
	for _, g := range goals {
		switch g.Status {
		case models.GoalStatusPaused:
			summary.PausedGoals++
		case models.GoalStatusActive:
			totals, ok := summary.ByPriority[g.Priority]
			if !ok {
				totals = PriorityTotals{TotalTarget: decimal.Zero, TotalSaved: decimal.Zero}
			}
			totals.Count++
			totals.TotalTarget = totals.TotalTarget.Add(g.TargetAmount)
			totals.TotalSaved = totals.TotalSaved.Add(g.CurrentAmount)
			summary.ByPriority[g.Priority] = totals

			if g.TargetDate.After(today) {
				upcoming = append(upcoming, g)
			}
		case models.GoalStatusCompleted, models.GoalStatusCancelled:
		}
	}

	sort.Slice(upcoming, func(i, j int) bool {
		if !upcoming[i].TargetDate.Equal(upcoming[j].TargetDate) {
			return upcoming[i].TargetDate.Before(upcoming[j].TargetDate)
		}
		return upcoming[i].ID < upcoming[j].ID
	})
	if len(upcoming) > upcomingDeadlines {
		upcoming = upcoming[:upcomingDeadlines]
	}
	for _, g := range upcoming {
		summary.UpcomingDeadlines = append(summary.UpcomingDeadlines, UpcomingDeadline{
			ID:                 g.ID,
			Name:               g.Name,
			TargetDate:         g.TargetDate,
			DaysRemaining:      calendar.DaysBetween(now, g.TargetDate),
			ProgressPercentage: g.Progress(),
		})
	}

	return summary, nil
}

// mutate loads a goal under a row lock, applies fn and saves the result in one transaction.
func (s *goalService) mutate(userID, goalID string, fn func(g *models.Goal, now time.Time) error) (*models.Goal, error) {
	now := s.now()
	var goal *models.Goal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		goal, err = findGoal(forUpdate(tx), userID, goalID)
		if err != nil {
			return err
		}
		if err := fn(goal, now); err != nil {
			return err
		}
		if err := tx.Save(goal).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	goal.Project(now)
	return goal, nil
}

func findGoal(db *gorm.DB, userID, goalID string) (*models.Goal, error) {
	var goal models.Goal
	if err := db.Where("id = ? AND user_id = ?", goalID, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// forUpdate adds a row lock on dialects that support SELECT ... FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"fintrack/internal/analytics"
	"fintrack/internal/calendar"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
	"fintrack/internal/services"
)

const testGoalID = "0190a6a4-0000-7000-8000-0000000000f1"

// --- mock goal service ---

type mockGoalService struct {
	createGoalFn   func(userID string, in services.GoalInput) (*models.Goal, error)
	getUserGoalsFn func(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error)
	getGoalByIDFn  func(userID, goalID string) (*models.Goal, error)
	updateGoalFn   func(userID, goalID string, in services.GoalUpdate) (*models.Goal, error)
	deleteGoalFn   func(userID, goalID string) error
	contributeFn   func(userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
	withdrawFn     func(userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
	pauseFn        func(userID, goalID string) (*models.Goal, error)
	resumeFn       func(userID, goalID string) (*models.Goal, error)
	cancelFn       func(userID, goalID string) (*models.Goal, error)
	getSummaryFn   func(userID string) (*services.GoalSummary, error)
}

var _ services.GoalServicer = (*mockGoalService)(nil)

func (m *mockGoalService) CreateGoal(userID string, in services.GoalInput) (*models.Goal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(userID, in)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, page pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, page, status)
	}
	resp := pagination.NewPageResponse([]models.Goal{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockGoalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	if m.getGoalByIDFn != nil {
		return m.getGoalByIDFn(userID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) UpdateGoal(userID, goalID string, in services.GoalUpdate) (*models.Goal, error) {
	if m.updateGoalFn != nil {
		return m.updateGoalFn(userID, goalID, in)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) DeleteGoal(userID, goalID string) error {
	if m.deleteGoalFn != nil {
		return m.deleteGoalFn(userID, goalID)
	}
	return nil
}

func (m *mockGoalService) Contribute(userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	if m.contributeFn != nil {
		return m.contributeFn(userID, goalID, amount)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) Withdraw(userID, goalID string, amount decimal.Decimal) (*models.Goal, error) {
	if m.withdrawFn != nil {
		return m.withdrawFn(userID, goalID, amount)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) Pause(userID, goalID string) (*models.Goal, error) {
	if m.pauseFn != nil {
		return m.pauseFn(userID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) Resume(userID, goalID string) (*models.Goal, error) {
	if m.resumeFn != nil {
		return m.resumeFn(userID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) Cancel(userID, goalID string) (*models.Goal, error) {
	if m.cancelFn != nil {
		return m.cancelFn(userID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetSummary(userID string) (*services.GoalSummary, error) {
	if m.getSummaryFn != nil {
		return m.getSummaryFn(userID)
	}
	return &services.GoalSummary{}, nil
}

func setupGoalRouter(handler *GoalHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/goals", handler.CreateGoal)
	auth.GET("/goals", handler.GetGoals)
	auth.GET("/goals/summary", handler.GetGoalSummary)
	auth.GET("/goals/:id", handler.GetGoal)
	auth.GET("/goals/:id/history", handler.GetGoalHistory)
	auth.PUT("/goals/:id", handler.UpdateGoal)
	auth.DELETE("/goals/:id", handler.DeleteGoal)
	auth.POST("/goals/:id/contribute", handler.Contribute)
	auth.POST("/goals/:id/withdraw", handler.Withdraw)
	auth.POST("/goals/:id/pause", handler.PauseGoal)
	auth.POST("/goals/:id/resume", handler.ResumeGoal)
	auth.POST("/goals/:id/cancel", handler.CancelGoal)
	return r
}

func activeGoal(target, current int64) *models.Goal {
	return &models.Goal{
		Base:          models.Base{ID: testGoalID},
		Name:          "Emergency fund",
		TargetAmount:  decimal.NewFromInt(target),
		CurrentAmount: decimal.NewFromInt(current),
		TargetDate:    calendar.Date(2025, 1, 1),
		Priority:      models.GoalPriorityHigh,
		Status:        models.GoalStatusActive,
	}
}

func TestGoalHandler_CreateGoal(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var captured services.GoalInput
		svc := &mockGoalService{
			createGoalFn: func(_ string, in services.GoalInput) (*models.Goal, error) {
				captured = in
				g := activeGoal(1000, 0)
				g.Name = in.Name
				return g, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewGoalHandler(svc, audit)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals",
			`{"name":"Emergency fund","target_amount":"1000","initial_amount":"100","target_date":"2025-01-01","priority":"high"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.InitialAmount.Equal(decimal.NewFromInt(100)) || captured.Priority != models.GoalPriorityHigh {
			t.Errorf("unexpected input %+v", captured)
		}
		if !captured.TargetDate.Equal(calendar.Date(2025, 1, 1)) {
			t.Errorf("expected target date 2025-01-01, got %s", captured.TargetDate)
		}
		goal := parseJSON(t, rec)["goal"].(map[string]interface{})
		if goal["name"] != "Emergency fund" {
			t.Errorf("expected Emergency fund, got %v", goal["name"])
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_GOAL" {
			t.Errorf("expected CREATE_GOAL audit entry, got %v", audit.actions)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"target_amount":"1000","target_date":"2025-01-01"}`},
		{"missing target amount", `{"name":"Car","target_date":"2025-01-01"}`},
		{"missing target date", `{"name":"Car","target_amount":"1000"}`},
		{"unknown priority", `{"name":"Car","target_amount":"1000","target_date":"2025-01-01","priority":"urgent"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
			r := setupGoalRouter(handler)

			rec := doRequest(r, "POST", "/goals", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestGoalHandler_GetGoals(t *testing.T) {
	t.Run("passes status filter", func(t *testing.T) {
		var captured *models.GoalStatus
		svc := &mockGoalService{
			getUserGoalsFn: func(_ string, _ pagination.PageRequest, status *models.GoalStatus) (*pagination.PageResponse[models.Goal], error) {
				captured = status
				resp := pagination.NewPageResponse([]models.Goal{*activeGoal(1000, 250)}, 1, 20, 1)
				return &resp, nil
			},
		}
		handler := NewGoalHandler(svc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals?status=active", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured == nil || *captured != models.GoalStatusActive {
			t.Errorf("expected active filter, got %v", captured)
		}
	})

	t.Run("returns 400 on unknown status", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals?status=archived", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_GetGoalSummary(t *testing.T) {
	svc := &mockGoalService{
		getSummaryFn: func(_ string) (*services.GoalSummary, error) {
			return &services.GoalSummary{
				GoalsSummary: analytics.GoalsSummary{TotalGoals: 3, ActiveGoals: 2, CompletedGoals: 1},
				PausedGoals:  0,
				ByPriority: map[models.GoalPriority]services.PriorityTotals{
					models.GoalPriorityHigh: {Count: 2, TotalTarget: decimal.NewFromInt(3000), TotalSaved: decimal.NewFromInt(500)},
				},
				UpcomingDeadlines: []services.UpcomingDeadline{
					{ID: testGoalID, Name: "Emergency fund", TargetDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), DaysRemaining: 30},
				},
			}, nil
		},
	}
	handler := NewGoalHandler(svc, &mockAuditService{})
	r := setupGoalRouter(handler)

	rec := doRequest(r, "GET", "/goals/summary", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	if result["total_goals"].(float64) != 3 || result["active_goals"].(float64) != 2 {
		t.Errorf("unexpected counts %v", result)
	}
	byPriority := result["goals_by_priority"].(map[string]interface{})
	high := byPriority["high"].(map[string]interface{})
	if high["count"].(float64) != 2 {
		t.Errorf("expected 2 high priority goals, got %v", high["count"])
	}
	if len(result["upcoming_deadlines"].([]interface{})) != 1 {
		t.Error("expected one upcoming deadline")
	}
}

func TestGoalHandler_GetGoalHistory(t *testing.T) {
	t.Run("returns the goal trail", func(t *testing.T) {
		var resource string
		audit := &mockAuditService{
			historyFn: func(_, resourceType, resourceID string) ([]services.AuditEntry, error) {
				resource = resourceType + "/" + resourceID
				return []services.AuditEntry{
					{Action: "WITHDRAW_GOAL", Changes: map[string]interface{}{"amount": "50"}},
					{Action: "CONTRIBUTE_GOAL", Changes: map[string]interface{}{"amount": "150"}},
				}, nil
			},
		}
		handler := NewGoalHandler(&mockGoalService{}, audit)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals/"+testGoalID+"/history", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resource != "goal/"+testGoalID {
			t.Errorf("expected goal history lookup, got %s", resource)
		}
		history := parseJSON(t, rec)["history"].([]interface{})
		if len(history) != 2 || history[0].(map[string]interface{})["action"] != "WITHDRAW_GOAL" {
			t.Errorf("unexpected history %v", history)
		}
	})

	t.Run("returns 404 for another user's goal", func(t *testing.T) {
		called := false
		svc := &mockGoalService{
			getGoalByIDFn: func(_, _ string) (*models.Goal, error) {
				return nil, apperrors.ErrGoalNotFound
			},
		}
		audit := &mockAuditService{
			historyFn: func(_, _, _ string) ([]services.AuditEntry, error) {
				called = true
				return nil, nil
			},
		}
		handler := NewGoalHandler(svc, audit)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "GET", "/goals/"+testGoalID+"/history", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if called {
			t.Error("history must not be read before ownership is checked")
		}
	})
}

func TestGoalHandler_Contribute(t *testing.T) {
	t.Run("returns completed goal", func(t *testing.T) {
		var capturedAmount decimal.Decimal
		svc := &mockGoalService{
			contributeFn: func(_, _ string, amount decimal.Decimal) (*models.Goal, error) {
				capturedAmount = amount
				g := activeGoal(1000, 900)
				if err := g.Contribute(amount, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)); err != nil {
					return nil, err
				}
				return g, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewGoalHandler(svc, audit)
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/contribute", `{"amount":"150"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !capturedAmount.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected 150, got %s", capturedAmount)
		}
		goal := parseJSON(t, rec)["goal"].(map[string]interface{})
		if goal["status"] != "completed" || goal["current_amount"] != "1000" {
			t.Errorf("expected completed at 1000, got %v %v", goal["status"], goal["current_amount"])
		}
		if goal["completed_at"] == nil {
			t.Error("expected completed_at")
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CONTRIBUTE_GOAL" {
			t.Errorf("expected CONTRIBUTE_GOAL audit entry, got %v", audit.actions)
		}
		if amount, ok := audit.changes[0]["amount"].(decimal.Decimal); !ok || !amount.Equal(decimal.NewFromInt(150)) {
			t.Errorf("expected audited amount 150, got %v", audit.changes[0]["amount"])
		}
	})

	t.Run("returns 409 on paused goal", func(t *testing.T) {
		svc := &mockGoalService{
			contributeFn: func(_, _ string, _ decimal.Decimal) (*models.Goal, error) {
				return nil, apperrors.ErrGoalNotActive
			},
		}
		handler := NewGoalHandler(svc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/contribute", `{"amount":"10"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "GOAL_NOT_ACTIVE")
	})

	t.Run("returns 400 on missing amount", func(t *testing.T) {
		handler := NewGoalHandler(&mockGoalService{}, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/contribute", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGoalHandler_Withdraw(t *testing.T) {
	svc := &mockGoalService{
		withdrawFn: func(_, _ string, _ decimal.Decimal) (*models.Goal, error) {
			return nil, apperrors.ErrInsufficientGoalFunds
		},
	}
	audit := &mockAuditService{}
	handler := NewGoalHandler(svc, audit)
	r := setupGoalRouter(handler)

	rec := doRequest(r, "POST", "/goals/"+testGoalID+"/withdraw", `{"amount":"5000"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_GOAL_FUNDS")
	if len(audit.actions) != 0 {
		t.Errorf("failed withdrawal must not be audited, got %v", audit.actions)
	}
}

func TestGoalHandler_Transitions(t *testing.T) {
	t.Run("pause returns paused goal", func(t *testing.T) {
		svc := &mockGoalService{
			pauseFn: func(_, _ string) (*models.Goal, error) {
				g := activeGoal(1000, 100)
				return g, g.Pause()
			},
		}
		handler := NewGoalHandler(svc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/pause", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if parseJSON(t, rec)["goal"].(map[string]interface{})["status"] != "paused" {
			t.Error("expected paused goal")
		}
	})

	t.Run("resume on active goal is a conflict", func(t *testing.T) {
		svc := &mockGoalService{
			resumeFn: func(_, _ string) (*models.Goal, error) {
				return nil, apperrors.ErrInvalidGoalTransition
			},
		}
		handler := NewGoalHandler(svc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/resume", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_GOAL_TRANSITION")
	})

	t.Run("cancel uses the goal id from the path", func(t *testing.T) {
		var captured string
		svc := &mockGoalService{
			cancelFn: func(_, goalID string) (*models.Goal, error) {
				captured = goalID
				return &models.Goal{Status: models.GoalStatusCancelled}, nil
			},
		}
		handler := NewGoalHandler(svc, &mockAuditService{})
		r := setupGoalRouter(handler)

		rec := doRequest(r, "POST", "/goals/"+testGoalID+"/cancel", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured != testGoalID {
			t.Errorf("expected %s, got %s", testGoalID, captured)
		}
	})
}

func TestGoalHandler_DeleteGoal(t *testing.T) {
	svc := &mockGoalService{
		deleteGoalFn: func(_, _ string) error { return apperrors.ErrGoalHasFunds },
	}
	handler := NewGoalHandler(svc, &mockAuditService{})
	r := setupGoalRouter(handler)

	rec := doRequest(r, "DELETE", "/goals/"+testGoalID, "")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "GOAL_HAS_FUNDS")
}

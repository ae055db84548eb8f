package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/marketdata"
	"fintrack/internal/testutil"
)

const testPipelineKey = "test-pipeline-key"

// testApp holds the full application stack backed by an in-memory SQLite.
type testApp struct {
	DB     *gorm.DB
	Prices *marketdata.Cache
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	prices := marketdata.NewCache(nil, marketdata.Options{})
	srv := New(db, prices, Config{PipelineAPIKey: testPipelineKey, Workers: 1})
	return &testApp{DB: db, Prices: prices, Router: srv.Router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// runBatch triggers the pipeline batch for date.
func (app *testApp) runBatch(t *testing.T, date string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/batch?date="+date, nil)
	req.Header.Set("X-API-Key", testPipelineKey)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

// registerUser registers a new user and returns the token.
func (app *testApp) registerUser(t *testing.T, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	rec := app.request(http.MethodPost, "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)["token"].(string)
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// expectStatus fails the test unless rec has the wanted status and returns the parsed body.
func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) map[string]interface{} {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseJSON(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

// assertDecimalField compares a decimal serialized as a JSON string.
func assertDecimalField(t *testing.T, obj map[string]interface{}, key, want string) {
	t.Helper()
	raw, ok := obj[key].(string)
	if !ok {
		t.Fatalf("expected %s to be a decimal string, got %v", key, obj[key])
	}
	got, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("%s: %v", key, err)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected %s=%s, got %s", key, want, raw)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	rec := app.request(http.MethodGet, "/api/health", "", "")
	body := expectStatus(t, rec, http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("expected ok, got %v", body["status"])
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	app := setupApp(t)
	rec := app.request(http.MethodGet, "/api/v1/nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("expected NOT_FOUND, got %q", code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)
	for _, path := range []string{"/api/v1/incomes", "/api/v1/dashboard", "/api/v1/investments/portfolio"} {
		rec := app.request(http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestPipelineRequiresAPIKey(t *testing.T) {
	app := setupApp(t)
	rec := app.request(http.MethodPost, "/api/v1/pipeline/batch", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without API key, got %d", rec.Code)
	}
}

func TestRecurringExpenseFlow_BatchCatchUpAndBudgetRollover(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "recurring@test.com")

	// Monthly groceries budget of 500 starting January 2024, with rollover
	rec := app.request(http.MethodPost, "/api/v1/budgets",
		`{"name":"Groceries","category":"groceries","amount":"500","period":"monthly","rollover_enabled":true,"start_date":"2024-01-01"}`, token)
	budget := expectStatus(t, rec, http.StatusCreated)["budget"].(map[string]interface{})
	budgetID := budget["id"].(string)

	// Recurring expense on the 15th, linked to the budget; the created row is the January occurrence
	rec = app.request(http.MethodPost, "/api/v1/expenses",
		fmt.Sprintf(`{"category":"groceries","amount":"100","date":"2024-01-15","budget_id":%q,"is_recurring":true,"recurrence_type":"monthly","recurrence_day_option":"custom","recurrence_custom_day":15}`, budgetID), token)
	expense := expectStatus(t, rec, http.StatusCreated)["expense"].(map[string]interface{})
	if !strings.HasPrefix(expense["next_occurrence"].(string), "2024-02-15") {
		t.Errorf("expected next occurrence 2024-02-15, got %v", expense["next_occurrence"])
	}

	// Batch on March 20 catches up February 15 and March 15
	result := app.runBatch(t, "2024-03-20")
	if result["materialized"].(float64) != 2 {
		t.Errorf("expected 2 materialized, got %v", result["materialized"])
	}
	if result["budgets_rolled"].(float64) != 1 {
		t.Errorf("expected 1 budget rolled, got %v", result["budgets_rolled"])
	}

	// Running again for the same date creates nothing new
	result = app.runBatch(t, "2024-03-20")
	if result["materialized"].(float64) != 0 {
		t.Errorf("expected idempotent re-run, got %v materialized", result["materialized"])
	}
	if result["budgets_rolled"].(float64) != 0 {
		t.Errorf("expected no second rollover, got %v", result["budgets_rolled"])
	}

	rec = app.request(http.MethodGet, "/api/v1/expenses?auto_generated=true", "", token)
	page := expectStatus(t, rec, http.StatusOK)
	if page["total_items"].(float64) != 2 {
		t.Fatalf("expected 2 generated expenses, got %v", page["total_items"])
	}
	dates := map[string]bool{}
	for _, item := range page["data"].([]interface{}) {
		e := item.(map[string]interface{})
		dates[e["date"].(string)[:10]] = true
		if e["source_id"] != expense["id"] {
			t.Errorf("expected source_id %v, got %v", expense["id"], e["source_id"])
		}
		if e["budget_id"] != budgetID {
			t.Errorf("expected generated expense linked to budget, got %v", e["budget_id"])
		}
	}
	if !dates["2024-02-15"] || !dates["2024-03-15"] {
		t.Errorf("expected entries dated 2024-02-15 and 2024-03-15, got %v", dates)
	}

	// January and February each left 400 unspent
	rec = app.request(http.MethodGet, "/api/v1/budgets/"+budgetID, "", token)
	budget = expectStatus(t, rec, http.StatusOK)["budget"].(map[string]interface{})
	assertDecimalField(t, budget, "rollover_amount", "800")
	if !strings.HasPrefix(budget["period_start"].(string), "2024-03-01") {
		t.Errorf("expected period start 2024-03-01, got %v", budget["period_start"])
	}

	// The March dashboard sees the generated expense and no income
	rec = app.request(http.MethodGet, "/api/v1/dashboard?year=2024&month=3", "", token)
	report := expectStatus(t, rec, http.StatusOK)
	monthly := report["monthly_overview"].(map[string]interface{})
	assertDecimalField(t, monthly, "expenses", "100")
	assertDecimalField(t, monthly, "income", "0")
	if monthly["savings_rate"].(float64) != 0 {
		t.Errorf("expected savings rate 0 with no income, got %v", monthly["savings_rate"])
	}
}

func TestGoalFlow_ContributeCompletesAndWithdrawReopens(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "goal@test.com")

	rec := app.request(http.MethodPost, "/api/v1/goals",
		`{"name":"Emergency fund","target_amount":"1000","initial_amount":"900","target_date":"2099-01-01","priority":"high"}`, token)
	goal := expectStatus(t, rec, http.StatusCreated)["goal"].(map[string]interface{})
	goalID := goal["id"].(string)

	rec = app.request(http.MethodPost, "/api/v1/goals/"+goalID+"/contribute", `{"amount":"150"}`, token)
	goal = expectStatus(t, rec, http.StatusOK)["goal"].(map[string]interface{})
	assertDecimalField(t, goal, "current_amount", "1000")
	if goal["status"] != "completed" || goal["completed_at"] == nil {
		t.Errorf("expected completed with completed_at, got %v %v", goal["status"], goal["completed_at"])
	}

	rec = app.request(http.MethodPost, "/api/v1/goals/"+goalID+"/contribute", `{"amount":"10"}`, token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "GOAL_NOT_ACTIVE" {
		t.Errorf("expected 409 GOAL_NOT_ACTIVE, got %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request(http.MethodPost, "/api/v1/goals/"+goalID+"/withdraw", `{"amount":"50"}`, token)
	goal = expectStatus(t, rec, http.StatusOK)["goal"].(map[string]interface{})
	assertDecimalField(t, goal, "current_amount", "950")
	if goal["status"] != "active" {
		t.Errorf("expected active, got %v", goal["status"])
	}

	// A goal holding funds cannot be deleted
	rec = app.request(http.MethodDelete, "/api/v1/goals/"+goalID, "", token)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 deleting funded goal, got %d", rec.Code)
	}
}

func TestInvestmentFlow_ValueSellAndOversell(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "invest@test.com")

	rec := app.request(http.MethodPost, "/api/v1/investments",
		`{"symbol":"AAPL","name":"Apple Inc.","investment_type":"stock","quantity":"10","purchase_price":"100","purchase_date":"2024-01-02"}`, token)
	investment := expectStatus(t, rec, http.StatusCreated)["investment"].(map[string]interface{})
	investmentID := investment["id"].(string)
	assertDecimalField(t, investment, "total_invested", "1000")

	app.Prices.Seed("AAPL", decimal.NewFromInt(150), time.Now())

	rec = app.request(http.MethodGet, "/api/v1/investments/portfolio", "", token)
	portfolio := expectStatus(t, rec, http.StatusOK)
	assertDecimalField(t, portfolio, "current_value", "1500")
	assertDecimalField(t, portfolio, "total_return", "500")

	rec = app.request(http.MethodPost, "/api/v1/investments/"+investmentID+"/sell", `{"quantity":"10","price":"120"}`, token)
	sale := expectStatus(t, rec, http.StatusOK)
	sold := sale["investment"].(map[string]interface{})
	if sold["status"] != "sold" {
		t.Errorf("expected sold, got %v", sold["status"])
	}
	assertDecimalField(t, sale["transaction"].(map[string]interface{}), "realized_gain_loss", "200")

	rec = app.request(http.MethodPost, "/api/v1/investments/"+investmentID+"/sell", `{"quantity":"1","price":"120"}`, token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "INVESTMENT_ALREADY_SOLD" {
		t.Errorf("expected 409 INVESTMENT_ALREADY_SOLD, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUsersAreIsolated(t *testing.T) {
	app := setupApp(t)
	alice := app.registerUser(t, "alice@test.com")
	bob := app.registerUser(t, "bob@test.com")

	rec := app.request(http.MethodPost, "/api/v1/incomes",
		`{"source":"Employer","income_type":"salary","amount":"3000","date":"2024-01-31"}`, alice)
	income := expectStatus(t, rec, http.StatusCreated)["income"].(map[string]interface{})

	rec = app.request(http.MethodGet, "/api/v1/incomes/"+income["id"].(string), "", bob)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 reading another user's income, got %d", rec.Code)
	}

	rec = app.request(http.MethodGet, "/api/v1/incomes", "", bob)
	if page := expectStatus(t, rec, http.StatusOK); page["total_items"].(float64) != 0 {
		t.Errorf("expected no incomes for bob, got %v", page["total_items"])
	}
}

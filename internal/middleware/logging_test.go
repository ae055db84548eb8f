package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.Use(zap.New(core).Sugar())
	t.Cleanup(restore)
	return logs
}

// setupLoggedRouter mirrors the server chain: logging, then error rendering.
func setupLoggedRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogging(), ErrorHandler())
	r.GET("/goals/:id", func(c *gin.Context) {
		c.Set(userIDKey, "user-42")
		_ = c.Error(apperrors.ErrGoalNotFound)
	})
	r.POST("/pipeline/batch", PipelineAuthMiddleware("key"), func(c *gin.Context) {
		_ = c.Error(errors.New("connection reset"))
	})
	r.GET("/budgets", func(c *gin.Context) {
		RespondWithError(c, apperrors.ErrBudgetNotFound)
		_ = c.Error(errors.New("late error"))
	})
	return r
}

func requestLine(t *testing.T, logs *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	lines := logs.FilterMessage("request").All()
	if len(lines) != 1 {
		t.Fatalf("expected 1 request line, got %d", len(lines))
	}
	return lines[0]
}

func TestRequestLogging(t *testing.T) {
	t.Run("client_error_logs_user_route_and_code", func(t *testing.T) {
		logs := observeLogs(t)
		req := httptest.NewRequest(http.MethodGet, "/goals/abc", http.NoBody)
		rec := httptest.NewRecorder()
		setupLoggedRouter().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		line := requestLine(t, logs)
		if line.Level != zapcore.WarnLevel {
			t.Errorf("expected warn level, got %s", line.Level)
		}
		fields := line.ContextMap()
		if fields["user_id"] != "user-42" || fields["route"] != "/goals/:id" || fields["error_code"] != "GOAL_NOT_FOUND" {
			t.Errorf("unexpected fields %v", fields)
		}
	})

	t.Run("pipeline_failure_logs_trigger", func(t *testing.T) {
		logs := observeLogs(t)
		req := httptest.NewRequest(http.MethodPost, "/pipeline/batch", http.NoBody)
		req.Header.Set("X-API-Key", "key")
		rec := httptest.NewRecorder()
		setupLoggedRouter().ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		line := requestLine(t, logs)
		if line.Level != zapcore.ErrorLevel {
			t.Errorf("expected error level, got %s", line.Level)
		}
		fields := line.ContextMap()
		if fields["trigger"] != "pipeline" || fields["error_code"] != "INTERNAL_ERROR" {
			t.Errorf("unexpected fields %v", fields)
		}
		if len(logs.FilterMessage("unexpected error").All()) != 1 {
			t.Error("expected the internal error to be logged once")
		}
	})

	t.Run("reuses_caller_request_id", func(t *testing.T) {
		observeLogs(t)
		const id = "0190a6a4-0000-7000-8000-00000000abcd"
		req := httptest.NewRequest(http.MethodGet, "/goals/abc", http.NoBody)
		req.Header.Set("X-Request-ID", id)
		rec := httptest.NewRecorder()
		setupLoggedRouter().ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != id {
			t.Errorf("expected request id %s, got %s", id, got)
		}
	})

	t.Run("replaces_malformed_request_id", func(t *testing.T) {
		observeLogs(t)
		req := httptest.NewRequest(http.MethodGet, "/goals/abc", http.NoBody)
		req.Header.Set("X-Request-ID", "<script>")
		rec := httptest.NewRecorder()
		setupLoggedRouter().ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got == "<script>" || got == "" {
			t.Errorf("expected a generated request id, got %q", got)
		}
	})
}

func TestErrorHandler_KeepsFirstResponse(t *testing.T) {
	observeLogs(t)
	req := httptest.NewRequest(http.MethodGet, "/budgets", http.NoBody)
	rec := httptest.NewRecorder()
	setupLoggedRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errorCodeOf(t, rec); code != "BUDGET_NOT_FOUND" {
		t.Errorf("expected BUDGET_NOT_FOUND, got %s", code)
	}
}

package services

import (
	"context"
	"time"

	"fintrack/internal/calendar"
	"fintrack/internal/logger"
	"fintrack/internal/recurrence"
)

// DueProcessor materializes due recurring entries.
type DueProcessor interface {
	ProcessDue(ctx context.Context, asOf time.Time) (*recurrence.Result, error)
}

// Batch triggers.
const (
	TriggerPipeline  = "pipeline"
	TriggerScheduler = "scheduler"
	TriggerCLI       = "cli"
	TriggerManual    = "manual"
)

type triggerKey struct{}

// WithTrigger tags ctx with what started a batch run.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger set by WithTrigger, or TriggerManual.
func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return TriggerManual
}

// BatchResult reports one daily batch run.
type BatchResult struct {
	AsOf                 time.Time            `json:"as_of"`
	Trigger              string               `json:"trigger"`
	DefinitionsProcessed int                  `json:"definitions_processed"`
	Materialized         int                  `json:"materialized"`
	Failures             []recurrence.Failure `json:"failures"`
	BudgetsRolled        int                  `json:"budgets_rolled"`
	DurationMs           int64                `json:"duration_ms"`
}

// batchService runs the recurrence processor and the budget rollover together.
type batchService struct {
	processor DueProcessor
	budgets   BudgetServicer
	audit     AuditServicer
}

// NewBatchService creates a new BatchServicer.
func NewBatchService(processor DueProcessor, budgets BudgetServicer, audit AuditServicer) BatchServicer {
	return &batchService{processor: processor, budgets: budgets, audit: audit}
}

// Run materializes every recurring entry due on or before asOf, then rolls
// budgets whose window has ended. Budgets roll after recurrence so generated
// expenses count toward the window they fall in.
func (s *batchService) Run(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	trigger := TriggerFrom(ctx)
	log := logger.Named("batch").With("trigger", trigger)
	start := time.Now()
	asOf = calendar.Truncate(asOf)
	result := &BatchResult{AsOf: asOf, Trigger: trigger, Failures: []recurrence.Failure{}}

	rec, err := s.processor.ProcessDue(ctx, asOf)
	if rec != nil {
		result.DefinitionsProcessed = rec.DefinitionsProcessed
		result.Materialized = rec.Materialized
		if rec.Failures != nil {
			result.Failures = rec.Failures
		}
	}
	if err != nil {
		log.Errorw("recurrence processing failed", "as_of", asOf.Format(time.DateOnly), "error", err)
		return result, err
	}

	rolled, err := s.budgets.RollOver(ctx, asOf)
	result.BudgetsRolled = rolled
	if err != nil {
		log.Errorw("budget rollover failed", "as_of", asOf.Format(time.DateOnly), "error", err)
		return result, err
	}

	result.DurationMs = time.Since(start).Milliseconds()
	log.Infow("batch completed",
		"as_of", asOf.Format(time.DateOnly),
		"definitions_processed", result.DefinitionsProcessed,
		"materialized", result.Materialized,
		"failures", len(result.Failures),
		"budgets_rolled", result.BudgetsRolled,
		"duration_ms", result.DurationMs,
	)

	s.audit.Log("", "batch.run", "batch", asOf.Format(time.DateOnly), "", map[string]interface{}{
		"trigger":               trigger,
		"definitions_processed": result.DefinitionsProcessed,
		"materialized":          result.Materialized,
		"failures":              len(result.Failures),
		"budgets_rolled":        result.BudgetsRolled,
	})
	return result, nil
}

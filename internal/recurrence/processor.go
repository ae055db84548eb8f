// Package recurrence materializes due occurrences of recurring incomes and
// expenses into concrete ledger entries and advances their schedules.
package recurrence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/calendar"
	"fintrack/internal/logger"
	"fintrack/internal/models"
)

var (
	// ErrConcurrentAdvance is returned when a definition's pointer moved between reading and writing it.
	ErrConcurrentAdvance = errors.New("recurrence: definition advanced concurrently")
	// ErrNotDue is returned when asked to materialize a definition with nothing due.
	ErrNotDue = errors.New("recurrence: definition not due")
)

// Definition is a recurring income or expense as seen by the processor.
type Definition struct {
	Kind   models.EntryKind
	ID     string
	UserID string
	Rule   models.Recurrence
}

func (d Definition) key() string {
	return string(d.Kind) + ":" + d.ID
}

// Store is the storage the processor runs against.
type Store interface {
	// ListDue returns every definition with an occurrence due on or before asOf.
	ListDue(ctx context.Context, asOf time.Time) ([]Definition, error)
	// Load returns the current state of one definition.
	Load(ctx context.Context, kind models.EntryKind, id string) (Definition, error)
	// Materialize creates the entry for def's next occurrence and advances the
	// pointer in one transaction, returning the advanced definition. It fails
	// with ErrConcurrentAdvance if def is no longer current.
	Materialize(ctx context.Context, def Definition, asOf time.Time) (Definition, error)
}

// Failure records a definition that could not be brought up to date.
type Failure struct {
	Kind  models.EntryKind `json:"kind"`
	ID    string           `json:"id"`
	Error string           `json:"error"`
}

// Result summarizes one ProcessDue run.
type Result struct {
	AsOf                 time.Time `json:"as_of"`
	DefinitionsProcessed int       `json:"definitions_processed"`
	Materialized         int       `json:"materialized"`
	Failures             []Failure `json:"failures,omitempty"`
}

// Options tune a Processor. Zero values select the defaults.
type Options struct {
	// Workers is how many definitions are processed in parallel.
	Workers int
	// MaxCatchUp caps the entries materialized for one definition in one run.
	MaxCatchUp int
}

const (
	defaultWorkers    = 4
	defaultMaxCatchUp = 3660
)

// Processor brings recurring definitions up to date.
type Processor struct {
	store      Store
	locks      *keyedMutex
	workers    int
	maxCatchUp int
	log        *zap.SugaredLogger
}

// NewProcessor creates a Processor over store.
func NewProcessor(store Store, opts Options) *Processor {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxCatchUp <= 0 {
		opts.MaxCatchUp = defaultMaxCatchUp
	}
	return &Processor{
		store:      store,
		locks:      newKeyedMutex(),
		workers:    opts.Workers,
		maxCatchUp: opts.MaxCatchUp,
		log:        logger.Named("recurrence"),
	}
}

// ProcessDue materializes every occurrence due on or before asOf, one entry
// per occurrence, dated at the occurrence rather than at asOf. Definitions
// are independent: a failing one is reported in the result and retried on
// the next run. Running it again for the same asOf creates nothing new.
func (p *Processor) ProcessDue(ctx context.Context, asOf time.Time) (*Result, error) {
	asOf = calendar.Truncate(asOf)
	due, err := p.store.ListDue(ctx, asOf)
	if err != nil {
		return nil, err
	}

	result := &Result{AsOf: asOf}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, def := range due {
		g.Go(func() error {
			n, err := p.process(gctx, def, asOf)

			mu.Lock()
			defer mu.Unlock()
			result.Materialized += n
			if err != nil {
				p.log.Errorw("failed to process recurring definition",
					"kind", def.Kind, "id", def.ID, "materialized", n, "error", err)
				result.Failures = append(result.Failures, Failure{Kind: def.Kind, ID: def.ID, Error: err.Error()})
				return nil
			}
			result.DefinitionsProcessed++
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	p.log.Infow("recurrence run finished",
		"as_of", asOf.Format(time.DateOnly),
		"due", len(due),
		"processed", result.DefinitionsProcessed,
		"materialized", result.Materialized,
		"failures", len(result.Failures),
	)
	return result, nil
}

// process catches one definition up to asOf while holding its lock.
func (p *Processor) process(ctx context.Context, def Definition, asOf time.Time) (int, error) {
	unlock := p.locks.Lock(def.key())
	defer unlock()

	current, err := p.store.Load(ctx, def.Kind, def.ID)
	if err != nil {
		return 0, err
	}

	count := 0
	for current.Rule.IsDue(asOf) {
		if count >= p.maxCatchUp {
			p.log.Warnw("catch-up limit reached, remaining occurrences left for the next run",
				"kind", def.Kind, "id", def.ID, "next_occurrence", current.Rule.NextOccurrence)
			break
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}

		next, err := p.store.Materialize(ctx, current, asOf)
		if errors.Is(err, ErrConcurrentAdvance) || errors.Is(err, ErrNotDue) {
			p.log.Debugw("definition advanced elsewhere", "kind", def.Kind, "id", def.ID)
			break
		}
		if err != nil {
			return count, err
		}
		count++
		current = next
	}
	return count, nil
}

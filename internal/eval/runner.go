package eval

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rankeval/rank-eval/internal/bus"
	apperrors "github.com/rankeval/rank-eval/internal/pkg/errors"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
)

// Options controls how an approach run is scheduled.
type Options struct {
	// ShowProgress logs per-query progress at info level. Cosmetic only.
	ShowProgress bool

	// Parallel enables the bounded worker pool. When false, queries are
	// processed strictly in input order, one at a time.
	Parallel bool

	// MaxWorkers bounds concurrent query evaluations in parallel mode.
	MaxWorkers int

	// RequestDelay is the minimum pacing gap each worker observes
	// between its calls into the judge. It is not a total-throughput
	// limiter.
	RequestDelay time.Duration
}

// DefaultOptions returns the default run options.
func DefaultOptions() Options {
	return Options{
		ShowProgress: true,
		MaxWorkers:   4,
		RequestDelay: 100 * time.Millisecond,
	}
}

// ProgressPayload is the payload of evaluation lifecycle events.
type ProgressPayload struct {
	Approach  string `json:"approach"`
	QueryText string `json:"query_text,omitempty"`
	QueryID   string `json:"query_id,omitempty"`
	Completed int    `json:"completed,omitempty"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Evaluator runs search approaches over query sets and holds their
// results for comparison and reporting. Each evaluator owns its own
// store, keeping independent evaluation sessions isolated.
type Evaluator struct {
	judge Judge
	store *Store
	log   *logger.Logger
	bus   bus.Bus
}

// New creates an evaluator backed by the given judge.
func New(judge Judge, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Default()
	}
	return &Evaluator{
		judge: judge,
		store: NewStore(),
		log:   log,
	}
}

// WithBus attaches an event bus for lifecycle events. Publishing is
// best-effort and never affects evaluation results.
func (e *Evaluator) WithBus(b bus.Bus) *Evaluator {
	e.bus = b
	return e
}

// Store returns the evaluator's result store.
func (e *Evaluator) Store() *Store {
	return e.store
}

// EvaluateApproach runs a search approach over the query set, judges
// each query's results, aggregates metrics and publishes the outcome
// into the store under the approach name (overwriting any previous
// result for that name).
//
// Failures of the search function or the judge are isolated per query:
// the failing query is omitted from the detailed results and reported
// as a diagnostic. A run where every query fails returns an aggregation
// error and stores nothing.
//
// In sequential mode detailed results keep submission order; in
// parallel mode they are in completion order. Downstream consumers must
// not assume cross-mode ordering equivalence.
func (e *Evaluator) EvaluateApproach(ctx context.Context, name string, searchFn SearchFunc, queries []Query, opts Options) (*ApproachResult, error) {
	if name == "" {
		return nil, apperrors.ValidationError("approach name cannot be empty")
	}
	if searchFn == nil {
		return nil, apperrors.ValidationError("search function cannot be nil")
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultOptions().MaxWorkers
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}

	withIDs := make([]Query, len(queries))
	for i, q := range queries {
		withIDs[i] = q.EnsureID()
	}

	log := e.log.WithApproach(name)
	log.Info("evaluating approach", "queries", len(withIDs), "parallel", opts.Parallel)
	e.publish(ctx, bus.TopicApproachStarted, ProgressPayload{Approach: name, Total: len(withIDs)})

	var records []Record
	if opts.Parallel && opts.MaxWorkers > 1 {
		records = e.runParallel(ctx, name, searchFn, withIDs, opts, log)
	} else {
		records = e.runSequential(ctx, name, searchFn, withIDs, opts, log)
	}

	metrics, err := Aggregate(records)
	if err != nil {
		return nil, err
	}

	result := &ApproachResult{
		Name:            name,
		Metrics:         metrics,
		DetailedResults: records,
	}
	e.store.Put(name, result)

	e.publish(ctx, bus.TopicApproachCompleted, ProgressPayload{
		Approach:  name,
		Completed: len(records),
		Total:     len(withIDs),
	})
	log.Info("approach evaluated", "succeeded", len(records), "total", len(withIDs))

	return result, nil
}

// runSequential processes queries one at a time in input order.
func (e *Evaluator) runSequential(ctx context.Context, name string, searchFn SearchFunc, queries []Query, opts Options, log *logger.Logger) []Record {
	limiter := newPacer(opts.RequestDelay)
	records := make([]Record, 0, len(queries))

	for _, query := range queries {
		rec, err := e.evaluateQuery(ctx, searchFn, query, limiter)
		if err != nil {
			e.diagnose(ctx, log, name, query, err)
			continue
		}
		records = append(records, *rec)
		e.progress(ctx, log, name, query, len(records), len(queries), opts)
	}

	return records
}

// runParallel fans queries out to a fixed-size worker pool. Records are
// appended as workers complete, so the result order is completion order.
func (e *Evaluator) runParallel(ctx context.Context, name string, searchFn SearchFunc, queries []Query, opts Options, log *logger.Logger) []Record {
	jobs := make(chan Query)

	var mu sync.Mutex
	records := make([]Record, 0, len(queries))

	var g errgroup.Group
	for w := 0; w < opts.MaxWorkers; w++ {
		g.Go(func() error {
			// Pacing is per worker, so each worker owns its limiter.
			limiter := newPacer(opts.RequestDelay)
			for query := range jobs {
				rec, err := e.evaluateQuery(ctx, searchFn, query, limiter)
				if err != nil {
					e.diagnose(ctx, log, name, query, err)
					continue
				}
				mu.Lock()
				records = append(records, *rec)
				done := len(records)
				mu.Unlock()
				e.progress(ctx, log, name, query, done, len(queries), opts)
			}
			return nil
		})
	}

	for _, query := range queries {
		jobs <- query
	}
	close(jobs)

	// Workers swallow per-query failures, so Wait only synchronizes.
	_ = g.Wait()

	return records
}

// evaluateQuery executes the search function and submits its hits to
// the judge, observing the pacing gap before the judge call.
func (e *Evaluator) evaluateQuery(ctx context.Context, searchFn SearchFunc, query Query, limiter *rate.Limiter) (*Record, error) {
	result, err := searchFn(ctx, query)
	if err != nil {
		return nil, apperrors.SearchFnError("search function failed", err)
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeTimeout, "request pacing interrupted", err)
		}
	}

	return e.judge.EvaluateSearch(ctx, query, result.Hits)
}

// diagnose reports a skipped query, identifying it by text and id.
func (e *Evaluator) diagnose(ctx context.Context, log *logger.Logger, name string, query Query, err error) {
	log.WithQuery(query.Text, query.ID).WithError(err).Warn("skipping query after evaluation failure")
	e.publish(ctx, bus.TopicQueryFailed, ProgressPayload{
		Approach:  name,
		QueryText: query.Text,
		QueryID:   query.ID,
		Error:     err.Error(),
	})
}

func (e *Evaluator) progress(ctx context.Context, log *logger.Logger, name string, query Query, completed, total int, opts Options) {
	if opts.ShowProgress {
		log.Info("query evaluated", "completed", completed, "total", total)
	} else {
		log.Debug("query evaluated", "completed", completed, "total", total)
	}
	e.publish(ctx, bus.TopicQueryEvaluated, ProgressPayload{
		Approach:  name,
		QueryText: query.Text,
		QueryID:   query.ID,
		Completed: completed,
		Total:     total,
	})
}

// publish sends a lifecycle event when a bus is attached. Errors are
// logged and dropped; progress is a side channel.
func (e *Evaluator) publish(ctx context.Context, topic string, payload ProgressPayload) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, topic, bus.NewEvent(topic, "evaluator", payload)); err != nil {
		e.log.Debug("failed to publish lifecycle event", "topic", topic, "error", err)
	}
}

// newPacer returns a limiter enforcing the pacing gap, or nil when no
// gap is configured.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// CompareApproaches compares all evaluated approaches. It returns a
// comparison error when nothing has been evaluated yet.
func (e *Evaluator) CompareApproaches() (*Comparison, error) {
	return Compare(e.store)
}

// BestPerQuery selects the winning approach per query and metric.
func (e *Evaluator) BestPerQuery() map[string]map[string]QueryBest {
	return BestPerQuery(e.store)
}

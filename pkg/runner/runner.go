// Package runner drives one sequential batch run over a source: load the
// store, enumerate the work universe, fetch every item that is not yet a
// success, and persist after each commit so an interrupted run loses at
// most the item in flight.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wanderdata/tripfetch/pkg/catalog"
	"github.com/wanderdata/tripfetch/pkg/fetch"
	"github.com/wanderdata/tripfetch/pkg/source"
	"github.com/wanderdata/tripfetch/pkg/store"
)

// Prometheus metrics for batch runs.
var (
	itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_items_processed_total",
		Help: "Items processed per run by source and outcome",
	}, []string{"source", "outcome"})

	backoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripfetch_backoffs_total",
		Help: "Long rate-limit backoffs taken, by source",
	}, []string{"source"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripfetch_run_duration_seconds",
		Help:    "Wall-clock duration of a batch run",
		Buckets: []float64{1, 10, 60, 300, 1800, 7200},
	}, []string{"source"})
)

// DefaultBackoff is how long a run sleeps after the provider signals
// quota exhaustion. Hourly quotas reset well within this window.
const DefaultBackoff = 30 * time.Minute

// Config holds the runner configuration.
type Config struct {
	// StorePath is the JSON store file for the source being run.
	StorePath string

	// Backoff is the long sleep taken on a rate-limit failure before
	// retrying the same item. Zero means DefaultBackoff.
	Backoff time.Duration

	// PersistEvery persists the store after every Nth committed item.
	// Zero or one persists after every item; the final state is always
	// persisted regardless.
	PersistEvery int
}

// Summary reports the outcome of one run.
type Summary struct {
	Source    string
	Universe  int
	Skipped   int
	Attempted int
	Succeeded int
	Failed    int
	Backoffs  int
	Duration  time.Duration
}

// Runner executes batch runs. It is single-threaded by construction:
// one item is in flight at any time, and items are processed in the
// source's enumeration order.
type Runner struct {
	client *fetch.Client
	config Config
	logger zerolog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a runner over a fetch client.
func New(client *fetch.Client, cfg Config) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("fetch client is required")
	}
	if cfg.StorePath == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Backoff < 0 {
		return nil, fmt.Errorf("backoff must not be negative (got %v)", cfg.Backoff)
	}
	if cfg.PersistEvery < 1 {
		cfg.PersistEvery = 1
	}
	return &Runner{
		client: client,
		config: cfg,
		logger: log.With().Str("component", "runner").Logger(),
		sleep:  sleepCtx,
	}, nil
}

// Plan loads the store and reports which item IDs a run would fetch,
// without fetching anything.
func (r *Runner) Plan(ctx context.Context, src source.Source) ([]string, error) {
	items, err := src.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", src.Name(), err)
	}
	st, err := store.Load(r.config.StorePath)
	if err != nil {
		return nil, err
	}
	return st.Remaining(catalog.IDs(items)), nil
}

// Run executes one batch run over the source. Successes from earlier
// runs are skipped; failures are retried. A rate-limit failure is
// committed and persisted, then the runner sleeps out the backoff and
// retries the same item, as often as it takes. The only errors Run
// returns are fatal: enumeration failure, a corrupt or unwritable
// store, or context cancellation. Per-item failures are recorded in
// the store, not returned.
func (r *Runner) Run(ctx context.Context, src source.Source) (Summary, error) {
	name := src.Name()
	start := time.Now()
	defer func() {
		runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	summary := Summary{Source: name}

	items, err := src.Items(ctx)
	if err != nil {
		return summary, fmt.Errorf("enumerate %s: %w", name, err)
	}
	summary.Universe = len(items)

	st, err := store.Load(r.config.StorePath)
	if err != nil {
		return summary, err
	}
	// The store never shrinks: a run may only grow or update it, so
	// whatever is on disk now is the floor for every later persist.
	minRecords := st.Len()

	byID := make(map[string]catalog.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	remaining := st.Remaining(catalog.IDs(items))
	summary.Skipped = summary.Universe - len(remaining)

	r.logger.Info().
		Str("source", name).
		Int("universe", summary.Universe).
		Int("skipped", summary.Skipped).
		Int("remaining", len(remaining)).
		Msg("Starting run")

	sinceLastPersist := 0
	for _, id := range remaining {
		item := byID[id]

		for {
			if err := ctx.Err(); err != nil {
				return r.finish(st, minRecords, summary, start, err)
			}

			rec := r.client.Fetch(ctx, src, item)
			summary.Attempted++

			changed := st.Commit(rec)
			if changed {
				sinceLastPersist++
			}
			if sinceLastPersist >= r.config.PersistEvery {
				if err := st.Persist(r.config.StorePath, minRecords); err != nil {
					return summary, fmt.Errorf("persist store: %w", err)
				}
				sinceLastPersist = 0
			}

			if rec.Status == store.StatusSuccess {
				summary.Succeeded++
				itemsProcessed.WithLabelValues(name, "success").Inc()
				break
			}

			if rec.Error != nil && rec.Error.Kind == store.KindRateLimited {
				// Progress is on disk; sleep out the quota window and
				// try the same item again.
				summary.Backoffs++
				backoffsTotal.WithLabelValues(name).Inc()
				if sinceLastPersist > 0 {
					if err := st.Persist(r.config.StorePath, minRecords); err != nil {
						return summary, fmt.Errorf("persist store: %w", err)
					}
					sinceLastPersist = 0
				}
				r.logger.Warn().
					Str("source", name).
					Str("item", id).
					Dur("backoff", r.config.Backoff).
					Msg("Rate limited, backing off")
				if err := r.sleep(ctx, r.config.Backoff); err != nil {
					return r.finish(st, minRecords, summary, start, err)
				}
				continue
			}

			summary.Failed++
			itemsProcessed.WithLabelValues(name, "failure").Inc()
			r.logger.Warn().
				Str("source", name).
				Str("item", id).
				Str("kind", string(rec.Error.Kind)).
				Int("status", rec.Error.StatusCode).
				Str("detail", rec.Error.Detail).
				Msg("Item failed")
			break
		}
	}

	return r.finish(st, minRecords, summary, start, nil)
}

// finish persists the final store state and logs the run summary. A
// cancellation error from the caller wins over a persist error, since
// the persist is retried on the next run anyway.
func (r *Runner) finish(st *store.Store, minRecords int, summary Summary, start time.Time, cause error) (Summary, error) {
	summary.Duration = time.Since(start)

	persistErr := st.Persist(r.config.StorePath, minRecords)
	if persistErr != nil {
		r.logger.Error().Err(persistErr).Str("source", summary.Source).Msg("Final persist failed")
	}

	evt := r.logger.Info()
	if summary.Failed > 0 || cause != nil {
		evt = r.logger.Warn()
	}
	evt.
		Str("source", summary.Source).
		Int("universe", summary.Universe).
		Int("skipped", summary.Skipped).
		Int("attempted", summary.Attempted).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("backoffs", summary.Backoffs).
		Int("successes_total", st.SuccessCount()).
		Dur("duration", summary.Duration).
		Msg("Run finished")

	if cause != nil {
		return summary, cause
	}
	return summary, persistErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

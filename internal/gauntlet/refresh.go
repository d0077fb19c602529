package gauntlet

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/groundsight/prospector/internal/store"
)

// Default refresh parameters.
const (
	DefaultRefreshDaysOld = 7
	DefaultRefreshLimit   = 50
	DefaultDispatchDelay  = 100 * time.Millisecond
)

// RunFunc executes one gauntlet run; the Refresher takes it as a dependency
// so tests can substitute a stub.
type RunFunc func(ctx context.Context, companyNumber string) (*RunResult, error)

// RefreshError records one failed dispatch, keyed by company number.
type RefreshError struct {
	CompanyNumber string `json:"company_number"`
	Error         string `json:"error"`
}

// RefreshSummary reports the outcome of one refresh batch.
type RefreshSummary struct {
	TotalNeedingRefresh int            `json:"total_needing_refresh"`
	Enqueued            int            `json:"enqueued"`
	Errors              []RefreshError `json:"errors,omitempty"`
}

// Refresher re-runs the gauntlet for stale prospects.
type Refresher struct {
	store store.Store
	run   RunFunc
	delay time.Duration
	now   func() time.Time
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithDispatchDelay sets the pause between dispatches.
func WithDispatchDelay(d time.Duration) RefresherOption {
	return func(f *Refresher) {
		f.delay = d
	}
}

// WithRefreshClock overrides the time source (for tests).
func WithRefreshClock(now func() time.Time) RefresherOption {
	return func(f *Refresher) {
		f.now = now
	}
}

// NewRefresher creates a Refresher.
func NewRefresher(st store.Store, run RunFunc, opts ...RefresherOption) *Refresher {
	f := &Refresher{
		store: st,
		run:   run,
		delay: DefaultDispatchDelay,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Refresh selects prospects whose last run is older than daysOld, caps the
// working set at limit and dispatches each run fire-and-forget with a small
// delay between dispatches so the registers are not saturated. Run failures
// are logged and pushed onto an error channel; whatever has arrived by the
// time dispatching finishes is included in the summary. There is no retry:
// a failed prospect simply stays stale and is picked up next time.
func (f *Refresher) Refresh(ctx context.Context, daysOld, limit int) (*RefreshSummary, error) {
	if daysOld <= 0 {
		daysOld = DefaultRefreshDaysOld
	}
	if limit <= 0 {
		limit = DefaultRefreshLimit
	}
	log := zap.L().With(zap.Int("days_old", daysOld), zap.Int("limit", limit))

	cutoff := f.now().AddDate(0, 0, -daysOld)
	stale, err := f.store.ListStaleProspects(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "refresh: list stale prospects")
	}

	summary := &RefreshSummary{TotalNeedingRefresh: len(stale)}
	batch := stale
	if len(batch) > limit {
		batch = batch[:limit]
	}
	log.Info("refresh: dispatching batch", zap.Int("stale", len(stale)), zap.Int("batch", len(batch)))

	errs := make(chan RefreshError, len(batch))
	for i, p := range batch {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, RefreshError{CompanyNumber: p.CompanyNumber, Error: ctx.Err().Error()})
			continue
		}

		companyNumber := p.CompanyNumber
		// Dispatched runs complete independently of the scheduler; no
		// cancellation propagates into them.
		runCtx := context.WithoutCancel(ctx)
		go func() {
			if _, runErr := f.run(runCtx, companyNumber); runErr != nil {
				zap.L().Error("refresh: run failed", zap.String("company_number", companyNumber), zap.Error(runErr))
				errs <- RefreshError{CompanyNumber: companyNumber, Error: runErr.Error()}
			}
		}()
		summary.Enqueued++

		if i < len(batch)-1 && f.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(f.delay):
			}
		}
	}

	// Collect whatever failures surfaced during dispatch; late ones are
	// logged by the run goroutines.
	for {
		select {
		case e := <-errs:
			summary.Errors = append(summary.Errors, e)
		default:
			log.Info("refresh: batch dispatched",
				zap.Int("total_needing_refresh", summary.TotalNeedingRefresh),
				zap.Int("enqueued", summary.Enqueued),
				zap.Int("errors", len(summary.Errors)),
			)
			return summary, nil
		}
	}
}

// Package extract drives a RecordSource page by page and accumulates a raw
// dataset, enforcing the directory service's rate-limit protocol.
//
// EXTRACTION IS A BATCH JOB:
// This code runs in cmd/extract, never inside the query service. It is
// strictly sequential — one in-flight request, blocking waits — because the
// source enforces a global per-credential rate limit, so parallel fetching
// would only trip it faster.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"golang.org/x/time/rate"

	"github.com/sakif/github-users/internal/apperror"
	"github.com/sakif/github-users/internal/model"
	"github.com/sakif/github-users/internal/source"
)

// Default extraction parameters. These match how the dataset was originally
// collected; everything is overridable through Options.
const (
	DefaultMaxRecords       = 3000
	DefaultPageSize         = 100
	DefaultInterRequestWait = time.Second

	// DefaultMaxRateLimitWait clamps how long we are willing to sleep for a
	// quota reset. GitHub's window resets hourly, so 90 minutes covers a full
	// window plus clock skew. A reset further away than this fails the run
	// instead of hanging it.
	DefaultMaxRateLimitWait = 90 * time.Minute
)

// State is the extractor's lifecycle state.
//
// State machine: Idle → Fetching → {RateLimited → Fetching} → Completed | Failed.
// Completed and Failed are terminal.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateRateLimited
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRateLimited:
		return "rate-limited"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures one extraction run.
type Options struct {
	MaxRecords       int           // stop once this many records are accumulated
	PageSize         int           // records requested per page
	InterRequestWait time.Duration // minimum spacing between page fetches
	MaxRateLimitWait time.Duration // clamp on sleep-until-reset waits
}

// withDefaults fills zero fields so a partially specified Options is usable.
func (o Options) withDefaults() Options {
	if o.MaxRecords <= 0 {
		o.MaxRecords = DefaultMaxRecords
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.InterRequestWait <= 0 {
		o.InterRequestWait = DefaultInterRequestWait
	}
	if o.MaxRateLimitWait <= 0 {
		o.MaxRateLimitWait = DefaultMaxRateLimitWait
	}
	return o
}

// Extractor accumulates a raw dataset from a RecordSource.
//
// An Extractor is single-use: Run may be called once. The source is injected
// as an interface so tests drive the loop with a fake instead of the network.
type Extractor struct {
	src    source.RecordSource
	opts   Options
	logger *slog.Logger
	state  State

	// now and sleep are injected for tests — waiting out a real quota reset
	// in a unit test is not an option.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Extractor. Zero-valued Options fields fall back to the
// package defaults.
func New(src source.RecordSource, opts Options, logger *slog.Logger) *Extractor {
	return &Extractor{
		src:    src,
		opts:   opts.withDefaults(),
		logger: logger,
		state:  StateIdle,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// State reports the extractor's current lifecycle state. After Run returns
// it is either StateCompleted or StateFailed.
func (e *Extractor) State() State {
	return e.state
}

// Run executes the extraction loop and returns the raw dataset.
//
// LOOP SHAPE:
// fetch page → append records → advance cursor, until the source reports no
// next page, the accumulator reaches MaxRecords, or an error occurs. The
// final page is truncated so the cap is exact, and no page beyond the first
// one that reaches the cap is ever fetched.
//
// RATE-LIMIT PROTOCOL:
// If the previous response reported zero remaining quota — or a fetch comes
// back with a RateLimitError — we sleep until the reported reset time
// (clamped to MaxRateLimitWait) and retry the SAME page. That wait-and-retry
// is the only retry in the system: transport, auth, and decode errors
// propagate immediately, because retrying a bad credential or a garbled
// response cannot succeed.
//
// Pacing between requests uses a rate.Limiter rather than a bare sleep after
// each fetch: Wait blocks just long enough to keep fetches at least
// InterRequestWait apart, and aborts promptly if ctx is cancelled.
//
// CANCELLATION:
// ctx is honoured between page fetches and during waits. A cancelled run
// returns ctx.Err() and discards the partial dataset — partial output is
// never published.
func (e *Extractor) Run(ctx context.Context) (model.Dataset, error) {
	runID := xid.New().String()
	logger := e.logger.With(slog.String("run_id", runID))

	logger.Info("extraction starting",
		slog.Int("max_records", e.opts.MaxRecords),
		slog.Int("page_size", e.opts.PageSize),
	)

	// Burst 1: every fetch waits its turn, the first one passes immediately.
	limiter := rate.NewLimiter(rate.Every(e.opts.InterRequestWait), 1)

	var (
		dataset model.Dataset
		cursor  *source.Cursor
		lastRL  = source.RateLimit{Remaining: -1}
		page    = 0
	)

	for {
		if err := ctx.Err(); err != nil {
			return e.fail(logger, err)
		}

		// Quota already exhausted by the previous response — wait out the
		// reset before issuing the next request.
		if lastRL.Remaining == 0 {
			if err := e.waitForReset(ctx, logger, lastRL.ResetAt); err != nil {
				return e.fail(logger, err)
			}
			lastRL.Remaining = -1
		}

		if err := limiter.Wait(ctx); err != nil {
			return e.fail(logger, err)
		}

		e.state = StateFetching
		result, err := e.src.FetchPage(ctx, cursor, e.opts.PageSize)
		if err != nil {
			// A rate-limit rejection gets one wait-and-retry of the same
			// page. A second consecutive rejection fails the run.
			var rlErr *apperror.RateLimitError
			if errors.As(err, &rlErr) {
				if waitErr := e.waitForReset(ctx, logger, rlErr.ResetAt); waitErr != nil {
					return e.fail(logger, waitErr)
				}
				result, err = e.src.FetchPage(ctx, cursor, e.opts.PageSize)
			}
			if err != nil {
				return e.fail(logger, err)
			}
		}
		page++
		lastRL = result.RateLimit

		records := result.Records
		if len(dataset)+len(records) > e.opts.MaxRecords {
			records = records[:e.opts.MaxRecords-len(dataset)]
		}
		dataset = append(dataset, records...)

		logger.Info("page fetched",
			slog.Int("page", page),
			slog.Int("records", len(records)),
			slog.Int("total", len(dataset)),
			slog.Int("rate_limit_remaining", result.RateLimit.Remaining),
		)

		if len(dataset) >= e.opts.MaxRecords || result.NextCursor == nil {
			break
		}
		cursor = result.NextCursor
	}

	e.state = StateCompleted
	logger.Info("extraction completed", slog.Int("records", len(dataset)))
	return dataset, nil
}

// waitForReset sleeps until the quota reset time, or fails if the wait would
// exceed the configured clamp.
func (e *Extractor) waitForReset(ctx context.Context, logger *slog.Logger, resetAt time.Time) error {
	e.state = StateRateLimited

	wait := resetAt.Sub(e.now())
	if wait < 0 {
		wait = 0
	}
	if wait > e.opts.MaxRateLimitWait {
		return &apperror.AppError{
			Err: apperror.ErrRateLimit,
			Message: fmt.Sprintf("quota reset is %s away, beyond the %s limit",
				wait.Round(time.Second), e.opts.MaxRateLimitWait),
		}
	}

	logger.Warn("rate limit exhausted, waiting for reset",
		slog.Duration("wait", wait.Round(time.Second)),
		slog.Time("reset_at", resetAt),
	)
	return e.sleep(ctx, wait)
}

// fail marks the run failed and discards the partial dataset.
func (e *Extractor) fail(logger *slog.Logger, err error) (model.Dataset, error) {
	e.state = StateFailed
	logger.Error("extraction failed", slog.String("error", err.Error()))
	return nil, err
}

// sleepCtx blocks for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package scheduler fans out month-window fetches in bounded, paced batches
// so acquisition stays under the police API's burst rate limit.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/couchcryptid/crime-data-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher executes one (coordinates, window, kind) fetch. Implementations
// must be safe for concurrent use; the scheduler runs up to one call per
// window in a batch simultaneously.
type Fetcher interface {
	FetchWindow(ctx context.Context, coords domain.Coordinates, window domain.MonthWindow, kind domain.RecordKind) ([]domain.RawRecord, error)
}

// Config tunes batch shape and pacing.
type Config struct {
	// BatchSize is both the partition length and the maximum number of
	// in-flight requests.
	BatchSize int
	// Cooldown is the pause inserted between batches regardless of how long
	// the batch itself took.
	Cooldown time.Duration
	// RateLimitRetries bounds how many times a batch's rate-limited windows
	// are retried with a lengthened cooldown before the operation fails.
	RateLimitRetries int
}

// Scheduler dispatches window fetches in fixed-size concurrent batches with
// an enforced inter-batch cooldown. Batches run sequentially; cancellation
// is honored between batches while in-flight requests complete.
type Scheduler struct {
	fetcher          Fetcher
	batchSize        int
	cooldown         time.Duration
	rateLimitRetries int
	clock            clockwork.Clock
	logger           *slog.Logger
	metrics          *observability.Metrics
}

// New creates a Scheduler.
func New(fetcher Fetcher, cfg Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		fetcher:          fetcher,
		batchSize:        cfg.BatchSize,
		cooldown:         cfg.Cooldown,
		rateLimitRetries: cfg.RateLimitRetries,
		clock:            clock,
		logger:           logger,
		metrics:          metrics,
	}
}

// windowFailure pairs a failed window with its error.
type windowFailure struct {
	window domain.MonthWindow
	err    error
}

// FetchAll fetches every window and returns the merged raw records in batch
// submission order. Within a batch result order follows window order, which
// callers must not rely on. If any window cannot be fetched the whole
// operation fails with *domain.PartialWindowError listing which windows
// succeeded and which did not; no partial dataset is returned silently.
func (s *Scheduler) FetchAll(ctx context.Context, coords domain.Coordinates, windows []domain.MonthWindow, kind domain.RecordKind) ([]domain.RawRecord, error) {
	var merged []domain.RawRecord
	var succeeded []domain.MonthWindow

	for start := 0; start < len(windows); start += s.batchSize {
		end := min(start+s.batchSize, len(windows))
		batch := windows[start:end]

		// Cooldown between batches, and the cancellation point: a caller
		// may abort here without wasting already-issued requests.
		if start > 0 {
			if !s.sleep(ctx, s.cooldown) {
				return nil, partialError(succeeded, windows[start:], ctx.Err())
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, partialError(succeeded, windows[start:], err)
		}

		records, failures := s.dispatch(ctx, coords, batch, kind)

		// Rate limiting is a back-off signal, not a fault: retry the
		// throttled windows with a doubled cooldown while the budget lasts.
		cooldown := s.cooldown
		for retry := 0; len(failures) > 0 && allRateLimited(failures) && retry < s.rateLimitRetries; retry++ {
			cooldown = lengthen(cooldown, s.cooldown)
			s.metrics.RateLimitRetries.Inc()
			s.logger.Warn("rate limited, extending cooldown",
				"cooldown", cooldown,
				"windows", len(failures),
				"retry", retry+1,
			)

			retryWindows := failedWindows(failures)
			if !s.sleep(ctx, cooldown) {
				return nil, partialError(succeeded, append(retryWindows, windows[end:]...), ctx.Err())
			}
			var retried []domain.RawRecord
			retried, failures = s.dispatch(ctx, coords, retryWindows, kind)
			records = append(records, retried...)
		}

		if len(failures) > 0 {
			for _, w := range batch {
				if !containsWindow(failures, w) {
					succeeded = append(succeeded, w)
				}
			}
			failed := append(failedWindows(failures), windows[end:]...)
			return nil, partialError(succeeded, failed, failures[0].err)
		}

		merged = append(merged, records...)
		succeeded = append(succeeded, batch...)
	}

	return merged, nil
}

// dispatch runs one concurrent fetch batch and collects results in window
// order. The goroutine-per-window fan-out is bounded by the batch length.
func (s *Scheduler) dispatch(ctx context.Context, coords domain.Coordinates, batch []domain.MonthWindow, kind domain.RecordKind) ([]domain.RawRecord, []windowFailure) {
	start := s.clock.Now()
	s.metrics.BatchesDispatched.Inc()

	type slot struct {
		records []domain.RawRecord
		err     error
	}
	slots := make([]slot, len(batch))

	var wg sync.WaitGroup
	for i, window := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := s.fetcher.FetchWindow(ctx, coords, window, kind)
			slots[i] = slot{records: records, err: err}
		}()
	}
	wg.Wait()

	var records []domain.RawRecord
	var failures []windowFailure
	for i, res := range slots {
		if res.err != nil {
			failures = append(failures, windowFailure{window: batch[i], err: res.err})
			continue
		}
		records = append(records, res.records...)
	}

	s.metrics.BatchDuration.Observe(s.clock.Since(start).Seconds())
	s.logger.Debug("batch complete",
		"windows", len(batch),
		"records", len(records),
		"failures", len(failures),
	)
	return records, failures
}

// sleep pauses for d or until the context is cancelled. Returns false on
// cancellation.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}

// lengthen doubles the cooldown, capped at 8x the base.
func lengthen(current, base time.Duration) time.Duration {
	next := current * 2
	if limit := base * 8; next > limit {
		return limit
	}
	return next
}

func allRateLimited(failures []windowFailure) bool {
	for _, f := range failures {
		if !errors.Is(f.err, domain.ErrRateLimited) {
			return false
		}
	}
	return true
}

func failedWindows(failures []windowFailure) []domain.MonthWindow {
	windows := make([]domain.MonthWindow, len(failures))
	for i, f := range failures {
		windows[i] = f.window
	}
	return windows
}

func containsWindow(failures []windowFailure, w domain.MonthWindow) bool {
	for _, f := range failures {
		if f.window == w {
			return true
		}
	}
	return false
}

func partialError(succeeded, failed []domain.MonthWindow, err error) *domain.PartialWindowError {
	return &domain.PartialWindowError{
		Succeeded: succeeded,
		Failed:    failed,
		Err:       err,
	}
}

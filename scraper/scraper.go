// Package scraper holds the pieces shared by every ingestion job: the pooled
// HTTP client, the error taxonomy and the Runner that wraps a job's
// fetch→parse→store pass in a bounded retry loop with run tracking.
package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
)

// Stats summarizes what a single scrape pass did to the store.
type Stats struct {
	Records int `json:"records"` // normalized records that reached the store layer
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"` // sentinel/unparseable records filtered out
}

// Job is one ingestion source. Scrape runs a full fetch→parse→store pass and
// reports what it stored. Implementations keep no mutable state between runs.
type Job interface {
	Name() string
	Scrape(ctx context.Context) (Stats, error)
}

// RunTracker records job executions. Every started run gets exactly one
// terminal transition: Succeed or Fail.
type RunTracker interface {
	Begin(ctx context.Context, scraperName string) (runID uint, err error)
	Succeed(ctx context.Context, runID uint, stats Stats) error
	Fail(ctx context.Context, runID uint, errMessage string) error
}

// Runner executes jobs with a fixed-delay retry loop and records each attempt
// cycle in the RunTracker.
type Runner struct {
	tracker  RunTracker
	log      *slog.Logger
	attempts uint
	delay    time.Duration
}

func NewRunner(tracker RunTracker, attempts uint, delay time.Duration) *Runner {
	if attempts == 0 {
		attempts = 1
	}
	return &Runner{
		tracker:  tracker,
		log:      slog.Default(),
		attempts: attempts,
		delay:    delay,
	}
}

// Run executes one job to a terminal state. The returned error is the last
// attempt's error once all retries are exhausted; the run row is always
// completed either way.
func (r *Runner) Run(ctx context.Context, job Job) (Stats, error) {
	runID, err := r.tracker.Begin(ctx, job.Name())
	if err != nil {
		r.log.Error("could not record run start", "scraper", job.Name(), "error", err)
		return Stats{}, err
	}

	var stats Stats
	attempt := 0
	err = retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			attempt++
			r.log.Info("starting scrape", "scraper", job.Name(), "attempt", attempt, "max_attempts", r.attempts)
			s, err := job.Scrape(ctx)
			if err != nil {
				r.log.Error("scrape attempt failed", "scraper", job.Name(), "attempt", attempt, "error", err)
				return err
			}
			stats = s
			return nil
		},
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	if err != nil {
		if trackErr := r.tracker.Fail(ctx, runID, err.Error()); trackErr != nil {
			r.log.Error("could not record run failure", "scraper", job.Name(), "error", trackErr)
		}
		return Stats{}, err
	}

	if trackErr := r.tracker.Succeed(ctx, runID, stats); trackErr != nil {
		r.log.Error("could not record run success", "scraper", job.Name(), "error", trackErr)
	}
	r.log.Info("scrape finished", "scraper", job.Name(),
		"records", stats.Records, "created", stats.Created, "updated", stats.Updated, "skipped", stats.Skipped)
	return stats, nil
}

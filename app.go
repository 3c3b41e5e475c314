package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"github.com/freight-pulse/freight-pulse/depot"
	"github.com/freight-pulse/freight-pulse/scraper"
	"github.com/freight-pulse/freight-pulse/scraper/awards"
	"github.com/freight-pulse/freight-pulse/scraper/cassindex"
	"github.com/freight-pulse/freight-pulse/scraper/flows"
	"github.com/freight-pulse/freight-pulse/scraper/fred"
	"github.com/freight-pulse/freight-pulse/scraper/fuel"
	"github.com/freight-pulse/freight-pulse/scraper/news"
	"github.com/freight-pulse/freight-pulse/scraper/tonnage"
)

// App wires the storage layer, the shared HTTP client and the job set.
type App struct {
	cfg    *Config
	depot  *depot.Depot
	client *scraper.Client
	runner *scraper.Runner
	sentry *SentryKit
	log    *slog.Logger
}

func NewApp(cfg *Config, dp *depot.Depot, sentryKit *SentryKit) *App {
	return &App{
		cfg:    cfg,
		depot:  dp,
		client: scraper.NewClient(),
		runner: scraper.NewRunner(dp.Entities.Runs, cfg.retryAttempts, cfg.retryDelay),
		sentry: sentryKit,
		log:    slog.Default(),
	}
}

// buildJobs assembles the ordered job list. The flow-ranking job is opt-in
// since its source blocks unattended downloads more often than not; `only`
// narrows the set to a single named job.
func (a *App) buildJobs(only string, withFlows bool) ([]scraper.Job, error) {
	newsJob := news.New(a.depot, a.client, nil)
	if a.cfg.withFullText {
		newsJob.WithFullText()
	}

	jobs := []scraper.Job{
		newsJob,
		fuel.New(a.depot, a.client, a.cfg.env.EIAAPIKey),
		fred.New(a.depot, a.client, a.cfg.env.FREDAPIKey),
		cassindex.New(a.depot, a.client),
		tonnage.New(a.depot, a.client),
		awards.New(a.depot, a.client),
	}
	if withFlows || only == "flows" {
		jobs = append(jobs, flows.New(a.depot, a.client))
	}

	if only == "" {
		return jobs, nil
	}
	for _, job := range jobs {
		if job.Name() == only {
			return []scraper.Job{job}, nil
		}
	}
	return nil, fmt.Errorf("unknown job %q", only)
}

// RunAll executes every job to a terminal state. One job's failure never
// stops its siblings; the report carries the aggregate outcome.
func (a *App) RunAll(ctx context.Context, jobs []scraper.Job) *Report {
	report := &Report{}
	for _, job := range jobs {
		stats, err := a.runner.Run(ctx, job)
		if err != nil {
			a.sentry.CaptureJobError(job.Name(), err)
		}
		report.Add(job.Name(), stats, err)
	}
	return report
}

// startScheduler runs the full job set on a fixed interval until the context
// is cancelled. The first pass fires immediately.
func (a *App) startScheduler(ctx context.Context, jobs []scraper.Job) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("error creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(a.cfg.scrapeInterval),
		gocron.NewTask(func() {
			report := a.RunAll(ctx, jobs)
			report.Log(a.log)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("error scheduling jobs: %w", err)
	}

	sched.Start()
	a.log.Info("scheduler started", "jobs", len(jobs), "interval", a.cfg.scrapeInterval)

	<-ctx.Done()
	return sched.Shutdown()
}

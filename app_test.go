package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/freight-pulse/freight-pulse/scraper"
)

type stubTracker struct{}

func (stubTracker) Begin(context.Context, string) (uint, error)        { return 1, nil }
func (stubTracker) Succeed(context.Context, uint, scraper.Stats) error { return nil }
func (stubTracker) Fail(context.Context, uint, string) error           { return nil }

type stubJob struct {
	name string
	err  error
	ran  bool
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Scrape(context.Context) (scraper.Stats, error) {
	j.ran = true
	if j.err != nil {
		return scraper.Stats{}, j.err
	}
	return scraper.Stats{Records: 1, Created: 1}, nil
}

func newTestApp() *App {
	cfg := NewConfig(&Env{})
	return &App{
		cfg:    cfg,
		client: scraper.NewClient(),
		runner: scraper.NewRunner(stubTracker{}, 1, 0),
		sentry: &SentryKit{log: slog.Default()},
		log:    slog.Default(),
	}
}

func TestApp_RunAll_failureDoesNotStopSiblings(t *testing.T) {
	app := newTestApp()

	first := &stubJob{name: "news"}
	second := &stubJob{name: "fuel", err: errors.New("upstream down")}
	third := &stubJob{name: "fred"}

	report := app.RunAll(context.Background(), []scraper.Job{first, second, third})

	for _, job := range []*stubJob{first, second, third} {
		if !job.ran {
			t.Errorf("job %s did not run", job.name)
		}
	}
	if got := report.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if got := report.ExitCode(); got != 1 {
		t.Errorf("ExitCode() = %d, want 1", got)
	}
}

func TestApp_buildJobs(t *testing.T) {
	app := newTestApp()

	jobs, err := app.buildJobs("", false)
	if err != nil {
		t.Fatalf("buildJobs() error = %v", err)
	}
	wantOrder := []string{"news", "fuel", "fred", "cassindex", "tonnage", "awards"}
	if len(jobs) != len(wantOrder) {
		t.Fatalf("buildJobs() returned %d jobs, want %d", len(jobs), len(wantOrder))
	}
	for i, name := range wantOrder {
		if jobs[i].Name() != name {
			t.Errorf("buildJobs()[%d] = %s, want %s", i, jobs[i].Name(), name)
		}
	}
}

func TestApp_buildJobs_flowsIsOptIn(t *testing.T) {
	app := newTestApp()

	jobs, err := app.buildJobs("", true)
	if err != nil {
		t.Fatalf("buildJobs() error = %v", err)
	}
	if jobs[len(jobs)-1].Name() != "flows" {
		t.Error("buildJobs() with flows enabled should append the flows job")
	}

	jobs, err = app.buildJobs("flows", false)
	if err != nil {
		t.Fatalf("buildJobs() error = %v", err)
	}
	if len(jobs) != 1 || jobs[0].Name() != "flows" {
		t.Errorf("buildJobs(only=flows) = %v, want just the flows job", jobs)
	}
}

func TestApp_buildJobs_unknownName(t *testing.T) {
	app := newTestApp()
	if _, err := app.buildJobs("nope", false); err == nil {
		t.Error("buildJobs() expected error for unknown job name")
	}
}

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/freight-pulse/freight-pulse/scraper"
)

// JobResult is one job's outcome within a full run.
type JobResult struct {
	Name  string
	Stats scraper.Stats
	Err   error
}

// Report collects per-job outcomes for one orchestrated pass. A run always
// completes every job; the report carries the failures instead of aborting.
type Report struct {
	results []JobResult
}

func (r *Report) Add(name string, stats scraper.Stats, err error) {
	r.results = append(r.results, JobResult{Name: name, Stats: stats, Err: err})
}

// Failed returns how many jobs ended in error.
func (r *Report) Failed() int {
	failed := 0
	for _, res := range r.results {
		if res.Err != nil {
			failed++
		}
	}
	return failed
}

// ExitCode maps the aggregate outcome to a process exit code for automation.
func (r *Report) ExitCode() int {
	if r.Failed() > 0 {
		return 1
	}
	return 0
}

// String renders the per-job summary table.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-12s %-8s %8s %8s %8s %8s\n",
		"JOB", "STATUS", "RECORDS", "CREATED", "UPDATED", "SKIPPED"))

	for _, res := range r.results {
		status := "ok"
		if res.Err != nil {
			status = "failed"
		}
		b.WriteString(fmt.Sprintf("%-12s %-8s %8d %8d %8d %8d\n",
			res.Name, status,
			res.Stats.Records, res.Stats.Created, res.Stats.Updated, res.Stats.Skipped))
	}

	if failed := r.Failed(); failed > 0 {
		b.WriteString(fmt.Sprintf("\n%d of %d jobs failed\n", failed, len(r.results)))
	}
	return b.String()
}

// Log writes the outcome of every job through the structured logger.
func (r *Report) Log(log *slog.Logger) {
	for _, res := range r.results {
		if res.Err != nil {
			log.Error("job finished", "job", res.Name, "status", "failed", "error", res.Err)
			continue
		}
		log.Info("job finished", "job", res.Name, "status", "ok",
			"records", res.Stats.Records, "created", res.Stats.Created,
			"updated", res.Stats.Updated, "skipped", res.Stats.Skipped)
	}
}

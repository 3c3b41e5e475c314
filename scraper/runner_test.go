package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeTracker struct {
	beganWith   string
	succeededID uint
	succeeded   *Stats
	failedID    uint
	failedMsg   string
}

func (f *fakeTracker) Begin(_ context.Context, scraperName string) (uint, error) {
	f.beganWith = scraperName
	return 42, nil
}

func (f *fakeTracker) Succeed(_ context.Context, runID uint, stats Stats) error {
	f.succeededID = runID
	f.succeeded = &stats
	return nil
}

func (f *fakeTracker) Fail(_ context.Context, runID uint, errMessage string) error {
	f.failedID = runID
	f.failedMsg = errMessage
	return nil
}

type fakeJob struct {
	name     string
	attempts int
	failTil  int
	stats    Stats
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Scrape(context.Context) (Stats, error) {
	j.attempts++
	if j.attempts <= j.failTil {
		return Stats{}, errors.New("upstream flaked")
	}
	return j.stats, nil
}

func TestRunner_Run_succeedsFirstAttempt(t *testing.T) {
	tracker := &fakeTracker{}
	runner := NewRunner(tracker, 3, time.Millisecond)
	job := &fakeJob{name: "news", stats: Stats{Records: 7, Created: 7}}

	stats, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.attempts != 1 {
		t.Errorf("Run() attempts = %d, want 1", job.attempts)
	}
	if stats.Created != 7 {
		t.Errorf("Run() stats = %+v, want 7 created", stats)
	}
	if tracker.beganWith != "news" {
		t.Errorf("Begin() recorded %q, want news", tracker.beganWith)
	}
	if tracker.succeeded == nil || tracker.succeededID != 42 {
		t.Error("Succeed() was not recorded for the run")
	}
	if tracker.failedMsg != "" {
		t.Errorf("Fail() should not have been called, got %q", tracker.failedMsg)
	}
}

func TestRunner_Run_retriesThenSucceeds(t *testing.T) {
	tracker := &fakeTracker{}
	runner := NewRunner(tracker, 3, time.Millisecond)
	job := &fakeJob{name: "fuel", failTil: 2, stats: Stats{Records: 1}}

	_, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if job.attempts != 3 {
		t.Errorf("Run() attempts = %d, want 3", job.attempts)
	}
	if tracker.succeeded == nil {
		t.Error("Succeed() was not recorded after recovery")
	}
}

func TestRunner_Run_exhaustsRetries(t *testing.T) {
	tracker := &fakeTracker{}
	runner := NewRunner(tracker, 3, time.Millisecond)
	job := &fakeJob{name: "fred", failTil: 99}

	_, err := runner.Run(context.Background(), job)
	if err == nil {
		t.Fatal("Run() expected error after exhausting retries")
	}
	if job.attempts != 3 {
		t.Errorf("Run() attempts = %d, want 3", job.attempts)
	}
	if tracker.failedID != 42 || tracker.failedMsg == "" {
		t.Error("Fail() was not recorded with the final error")
	}
	if tracker.succeeded != nil {
		t.Error("Succeed() must not be called on a failed run")
	}
}

func TestRunner_Run_cancelledContext(t *testing.T) {
	tracker := &fakeTracker{}
	runner := NewRunner(tracker, 5, time.Millisecond)
	job := &fakeJob{name: "awards", failTil: 99}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, job)
	if err == nil {
		t.Fatal("Run() expected error for cancelled context")
	}
	if job.attempts != 0 {
		t.Errorf("Run() attempts = %d, want 0 after cancellation", job.attempts)
	}
	if tracker.failedMsg == "" {
		t.Error("Fail() should record the cancellation")
	}
}

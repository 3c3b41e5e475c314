package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/freight-pulse/freight-pulse/scraper"
)

func TestReport(t *testing.T) {
	r := &Report{}
	r.Add("news", scraper.Stats{Records: 40, Created: 12, Updated: 28}, nil)
	r.Add("fuel", scraper.Stats{}, errors.New("transport error: connection refused"))
	r.Add("fred", scraper.Stats{Records: 900, Updated: 900, Skipped: 4}, nil)

	if got := r.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if got := r.ExitCode(); got != 1 {
		t.Errorf("ExitCode() = %d, want 1", got)
	}

	out := r.String()
	for _, want := range []string{"news", "fuel", "fred", "failed", "1 of 3 jobs failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q in:\n%s", want, out)
		}
	}
}

func TestReport_allGreen(t *testing.T) {
	r := &Report{}
	r.Add("news", scraper.Stats{Records: 5, Created: 5}, nil)

	if got := r.ExitCode(); got != 0 {
		t.Errorf("ExitCode() = %d, want 0", got)
	}
	if strings.Contains(r.String(), "jobs failed") {
		t.Errorf("String() should not report failures:\n%s", r.String())
	}
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryKit is a wrapper around the sentry-go SDK. It degrades to log-only
// when no DSN is configured, so every call site stays unconditional.
type SentryKit struct {
	enabled bool
	log     *slog.Logger
}

func NewSentryKit(dsn string, log *slog.Logger) (*SentryKit, error) {
	kit := &SentryKit{log: log}
	if dsn == "" {
		return kit, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing sentry: %w", err)
	}
	kit.enabled = true
	return kit, nil
}

// CaptureJobError logs a job failure and reports it upstream with the job
// name tagged.
func (s *SentryKit) CaptureJobError(jobName string, err error) {
	s.log.Error("job failed", "job", jobName, "error", err)
	if !s.enabled {
		return
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("job", jobName)
		scope.SetLevel(sentry.LevelError)
	})
	hub.CaptureException(err)
}

// Flush drains pending events before the process exits.
func (s *SentryKit) Flush() {
	if s.enabled {
		sentry.Flush(2 * time.Second)
	}
}

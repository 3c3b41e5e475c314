package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/freight-pulse/freight-pulse/depot"
)

func main() {
	only := flag.String("only", "", "run a single job by name (news, fuel, fred, cassindex, tonnage, awards, flows)")
	schedule := flag.Bool("schedule", false, "keep running and execute the full job set on an interval")
	withFlows := flag.Bool("with-flows", false, "include the bulk flow-ranking job in full runs")
	fullText := flag.Bool("full-text", false, "fetch article pages for full news text")
	flag.Parse()

	log := slog.Default()

	env, err := loadEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	cfg := NewConfig(env)
	cfg.withFullText = *fullText

	sentryKit, err := NewSentryKit(env.SentryDSN, log)
	if err != nil {
		log.Error("sentry init failed", "error", err)
		os.Exit(1)
	}
	defer sentryKit.Flush()

	dp, err := depot.NewDepot(env.PostgresDSN)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}

	app := NewApp(cfg, dp, sentryKit)

	jobs, err := app.buildJobs(*only, *withFlows)
	if err != nil {
		log.Error("invalid job selection", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule {
		if err := app.startScheduler(ctx, jobs); err != nil {
			log.Error("scheduler stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	report := app.RunAll(ctx, jobs)
	fmt.Print(report.String())
	sentryKit.Flush()
	os.Exit(report.ExitCode())
}

package main

import (
	"context"
	"coursewatch-backend/internal/app"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/config"
	"coursewatch-backend/lib/serviceutil"
	"flag"
	"log/slog"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", "config.json5", "Path to the configuration file.")
	refreshNow := flag.Bool("refresh", false, "Trigger a full refresh immediately on run.")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	cfg, err := config.Read(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	shutdown := InitTelemetry(ctx, cfg, *verbose)
	defer shutdown()

	tel := telemetry.SlogAPI{}
	a, err := app.Open(cfg, chrono.StandardTime{}, tel)
	if err != nil {
		serviceutil.Fatal("init app", err)
	}
	defer a.Close()

	cron := chrono.NewStandardCron(ctx, a.Clock, tel)
	err = cron.Schedule("poll watched courses", cfg.Watch.Schedule, func(ctx context.Context) {
		report := a.Watchlist.Poll(ctx)
		slog.Info("polled watched courses", "checked", report.Checked, "changed", report.Changed, "failed", report.Failed)
	})
	if err != nil {
		serviceutil.Fatal("schedule poller", err)
	}

	runRefresh := func(ctx context.Context) {
		slog.Info("starting full course refresh")
		report := a.Refresh.Run(ctx)
		slog.Info(
			"full course refresh completed",
			"terms", report.Terms,
			"subjects", report.Subjects,
			"courses", report.Courses,
			"failed_terms", report.FailedTerms,
			"failed_subjects", report.FailedSubjects,
		)
	}
	if !cfg.Refresh.Disabled {
		err = cron.Schedule("refresh courses", cfg.Refresh.Schedule, runRefresh)
		if err != nil {
			serviceutil.Fatal("schedule refresh", err)
		}
	}
	if *refreshNow {
		go runRefresh(ctx)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Http.Port, a.HttpServer(cfg, tel).Handler())
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
}

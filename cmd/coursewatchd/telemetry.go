package main

import (
	"context"
	"coursewatch-backend/internal/config"
	"coursewatch-backend/lib/serviceutil"
	"coursewatch-backend/lib/telemetry"
	"log/slog"
)

// InitTelemetry sets up logging and the otlp exporters, the returned
// function flushes them.
func InitTelemetry(ctx context.Context, cfg config.Config, verbose bool) func() {
	telemetry.InitSlog(verbose)

	t, err := telemetry.Setup(ctx, "coursewatchd", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	if cfg.Telemetry.PerfStats {
		telemetry.InstrumentPerfStats(ctx)
	}

	return func() {
		err := t.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}
}

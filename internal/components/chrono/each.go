package chrono

import (
	"context"
	"coursewatch-backend/internal/components/telemetry"
	"fmt"
)

// Each calls fn for every unit in order. A unit that returns an error or
// panics is reported under `id` and skipped, the remaining units still run.
// It stops early only when ctx is done, and returns how many units failed.
func Each[T any](ctx context.Context, tel telemetry.API, id string, units []T, fn func(ctx context.Context, unit T) error) (failed int) {
	for _, unit := range units {
		if ctx.Err() != nil {
			tel.ReportWarning(id, fmt.Errorf("stopped early: %w", ctx.Err()))
			return failed
		}
		err := runIsolated(ctx, unit, fn)
		if err != nil {
			tel.ReportBroken(id, err, unit)
			failed++
		}
	}
	return failed
}

func runIsolated[T any](ctx context.Context, unit T, fn func(ctx context.Context, unit T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, unit)
}

package chrono

import (
	"context"
	"coursewatch-backend/internal/components/telemetry"
	"fmt"

	"github.com/robfig/cron/v3"
)

const report_cron_job = "cron.job"

// CronAPI is the interface that anything depending on things to happen on a cron job should use.
type CronAPI interface {
	// Schedule runs job on every tick of spec, a tick is skipped while the
	// previous run of the same job is still going.
	Schedule(name, spec string, job func(ctx context.Context)) error
}

// StandardCron is the standard implementation of CronAPI using `github.com/robfig/cron/v3`
type StandardCron struct {
	ctx  context.Context
	cron *cron.Cron
	tel  telemetry.API
}

// NewStandardCron starts a scheduler, jobs receive ctx and the scheduler
// stops once ctx is done.
func NewStandardCron(ctx context.Context, clock TimeAPI, tel telemetry.API) StandardCron {
	logger := cronLogger{tel: tel}
	cronner := cron.New(
		cron.WithLogger(logger),
		cron.WithLocation(clock.Location()),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	cronner.Start()

	go func() {
		<-ctx.Done()
		<-cronner.Stop().Done()
	}()

	return StandardCron{ctx: ctx, cron: cronner, tel: tel}
}

func (s StandardCron) Schedule(name, spec string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.tel.ReportDebug("cron: running job", name)
		job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(fmt.Sprintf("cron: %s", msg), l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		report_cron_job,
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}

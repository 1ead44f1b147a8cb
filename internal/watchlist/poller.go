// Package watchlist remembers the seat counts and schedule of watched
// sections and reports when they change.
package watchlist

import (
	"context"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrCourseNotFound = errors.New("course not found")

const (
	report_poller_row       = "poller.row"
	report_poller_list      = "poller.list"
	report_poller_notify    = "poller.notify"
	report_poller_changed   = "poller.changed"
	report_poller_unchanged = "poller.unchanged"
)

// DefaultRowTimeout bounds the work done for one watched section per poll.
const DefaultRowTimeout = 2 * time.Minute

// DetailSource fetches a section's live detail page.
type DetailSource interface {
	GetCourseDetail(ctx context.Context, term, crn string) (banner.CourseDetail, bool, error)
}

type Options struct {
	RowTimeout time.Duration
}

type Poller struct {
	qry        *db.Queries
	makeTx     db.MakeTx
	source     DetailSource
	notifier   Notifier
	tel        telemetry.API
	rowTimeout time.Duration
}

func NewPoller(database *sql.DB, source DetailSource, notifier Notifier, tel telemetry.API, opts Options) *Poller {
	assert.NotNil(database)
	assert.NotNil(source)
	assert.NotNil(notifier)
	assert.NotNil(tel)

	rowTimeout := opts.RowTimeout
	if rowTimeout <= 0 {
		rowTimeout = DefaultRowTimeout
	}
	return &Poller{
		qry:        db.New(database),
		makeTx:     db.NewMakeTx(database),
		source:     source,
		notifier:   notifier,
		tel:        telemetry.NewScopedAPI("watchlist", tel),
		rowTimeout: rowTimeout,
	}
}

func validate(term, crn string) error {
	if !registrar.ValidTerm(term) || !registrar.ValidCRN(crn) {
		return fmt.Errorf("%w: term %q crn %q", registrar.ErrInvalidArgument, term, crn)
	}
	return nil
}

// Subscribe starts watching a section, seeding (or overwriting) its
// snapshot from a live detail fetch.
func (p *Poller) Subscribe(ctx context.Context, term, crn string) (Watched, error) {
	err := validate(term, crn)
	if err != nil {
		return Watched{}, err
	}

	detail, found, err := p.source.GetCourseDetail(ctx, term, crn)
	if err != nil {
		return Watched{}, err
	}
	if !found {
		return Watched{}, fmt.Errorf("%w: %s in %s", ErrCourseNotFound, crn, term)
	}
	snapshot := SnapshotOf(detail)

	tx, discard, commit, err := p.makeTx(ctx)
	if err != nil {
		return Watched{}, err
	}
	defer discard()

	err = tx.UpsertWatchedCourse(ctx, db.UpsertWatchedCourseParams{
		Term:                  term,
		Crn:                   crn,
		LastSeatsRemaining:    snapshot.SeatsRemaining,
		LastWaitlistRemaining: snapshot.WaitlistRemaining,
		LastScheduleHash:      snapshot.ScheduleHash,
	})
	if err != nil {
		return Watched{}, err
	}
	row, err := tx.GetWatchedCourse(ctx, db.GetWatchedCourseParams{Term: term, Crn: crn})
	if err != nil {
		return Watched{}, err
	}
	err = commit()
	if err != nil {
		return Watched{}, err
	}
	return watchedFromRow(row), nil
}

// Unsubscribe stops watching a section, it is not an error if the section
// was not watched.
func (p *Poller) Unsubscribe(ctx context.Context, term, crn string) error {
	err := validate(term, crn)
	if err != nil {
		return err
	}
	return p.qry.DeleteWatchedCourse(ctx, db.DeleteWatchedCourseParams{Term: term, Crn: crn})
}

func (p *Poller) List(ctx context.Context) ([]Watched, error) {
	rows, err := p.qry.ListWatchedCourses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Watched, len(rows))
	for i, row := range rows {
		out[i] = watchedFromRow(row)
	}
	return out, nil
}

type Report struct {
	Checked   int `json:"checked"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// Poll checks every watched section once, one at a time in watch order.
// A section that cannot be fetched is reported and skipped, it stays on the
// watch list. The snapshot is only written when something differs.
func (p *Poller) Poll(ctx context.Context) Report {
	rows, err := p.qry.ListWatchedCourses(ctx)
	if err != nil {
		p.tel.ReportBroken(report_poller_list, err)
		return Report{}
	}

	report := Report{Checked: len(rows)}
	report.Failed = chrono.Each(ctx, p.tel, report_poller_row, rows, func(ctx context.Context, row db.WatchedCourse) error {
		ctx, cancel := context.WithTimeout(ctx, p.rowTimeout)
		defer cancel()

		changed, err := p.pollRow(ctx, row)
		if err != nil {
			return err
		}
		if changed {
			report.Changed++
		} else {
			report.Unchanged++
		}
		return nil
	})

	p.tel.ReportCount(report_poller_changed, int64(report.Changed))
	p.tel.ReportCount(report_poller_unchanged, int64(report.Unchanged))
	return report
}

func (p *Poller) pollRow(ctx context.Context, row db.WatchedCourse) (bool, error) {
	detail, found, err := p.source.GetCourseDetail(ctx, row.Term, row.Crn)
	if err != nil {
		return false, fmt.Errorf("fetch %s/%s: %w", row.Term, row.Crn, err)
	}
	if !found {
		return false, fmt.Errorf("fetch %s/%s: %w", row.Term, row.Crn, ErrCourseNotFound)
	}

	change := Change{
		Term:     row.Term,
		CRN:      row.Crn,
		Title:    detail.Title,
		Previous: snapshotOfRow(row),
		Current:  SnapshotOf(detail),
	}
	change.Changed = change.Previous != change.Current

	if change.Changed {
		err = p.qry.UpsertWatchedCourse(ctx, db.UpsertWatchedCourseParams{
			Term:                  row.Term,
			Crn:                   row.Crn,
			LastSeatsRemaining:    change.Current.SeatsRemaining,
			LastWaitlistRemaining: change.Current.WaitlistRemaining,
			LastScheduleHash:      change.Current.ScheduleHash,
		})
		if err != nil {
			return false, fmt.Errorf("save snapshot %s/%s: %w", row.Term, row.Crn, err)
		}
	}

	err = p.notifier.Notify(ctx, change)
	if err != nil {
		// the snapshot is already saved
		p.tel.ReportWarning(report_poller_notify, err, row.Term, row.Crn)
	}
	return change.Changed, nil
}

package watchlist

import (
	"context"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/lib/testutil"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mutex     sync.Mutex
	details   map[string]banner.CourseDetail
	failing   map[string]bool
	panicking map[string]bool
	calls     []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		details:   map[string]banner.CourseDetail{},
		failing:   map[string]bool{},
		panicking: map[string]bool{},
	}
}

func (f *fakeSource) set(crn string, seats, waitlist string, meetings ...banner.MeetingPattern) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	detail := banner.CourseDetail{
		CRN:      crn,
		Title:    "Course - " + crn + " - CSC 101 - 01",
		Schedule: meetings,
	}
	if seats != "" {
		detail.Seats = &banner.Availability{Capacity: "30", Actual: "0", Remaining: seats}
	}
	if waitlist != "" {
		detail.Waitlist = &banner.Availability{Capacity: "10", Actual: "0", Remaining: waitlist}
	}
	f.details[crn] = detail
}

func (f *fakeSource) GetCourseDetail(ctx context.Context, term, crn string) (banner.CourseDetail, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls = append(f.calls, crn)
	if f.panicking[crn] {
		panic("malformed page")
	}
	if f.failing[crn] {
		return banner.CourseDetail{}, false, banner.ErrFetchFailed
	}
	detail, ok := f.details[crn]
	return detail, ok, nil
}

type recordingNotifier struct {
	mutex   sync.Mutex
	changes []Change
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, change Change) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.changes = append(n.changes, change)
	return n.err
}

var lecture = banner.MeetingPattern{
	Type:         "Class",
	Time:         "9:25 am - 10:45 am",
	Days:         "MW",
	Where:        "Whitman Hall 101",
	DateRange:    "Jan 21, 2025 - May 13, 2025",
	ScheduleType: "Lecture",
	Instructor:   "Jane Doe",
}

type fixture struct {
	database *sql.DB
	source   *fakeSource
	notifier *recordingNotifier
	rec      *telemetry.Recorder
	poller   *Poller
}

func setup(t testing.TB) fixture {
	res := testutil.SetupService(t, testutil.ServiceParams{DbSchema: db.Schema})

	// counts every update so tests can tell whether a poll wrote
	_, err := res.DB.Exec(`
create table snapshot_writes (crn text);
create trigger count_snapshot_writes after update on watched_courses
begin
	insert into snapshot_writes (crn) values (new.crn);
end;`)
	require.NoError(t, err)

	f := fixture{
		database: res.DB,
		source:   newFakeSource(),
		notifier: &recordingNotifier{},
		rec:      &telemetry.Recorder{},
	}
	f.poller = NewPoller(res.DB, f.source, f.notifier, f.rec, Options{})
	return f
}

func (f fixture) writes(t testing.TB) int {
	var n int
	err := f.database.QueryRow("select count(*) from snapshot_writes").Scan(&n)
	require.NoError(t, err)
	return n
}

func count(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: true}
}

func TestScheduleHash(t *testing.T) {
	require.Equal(t, ScheduleHash(nil), ScheduleHash([]banner.MeetingPattern{}))
	require.Len(t, ScheduleHash(nil), 32)

	moved := lecture
	moved.Where = "Lupton Hall 110"
	require.NotEqual(t, ScheduleHash([]banner.MeetingPattern{lecture}), ScheduleHash([]banner.MeetingPattern{moved}))
	require.Equal(t, ScheduleHash([]banner.MeetingPattern{lecture}), ScheduleHash([]banner.MeetingPattern{lecture}))
}

func TestSubscribe(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.source.set("10001", "10", "", lecture)

	watched, err := f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)
	require.Equal(t, "10001", watched.CRN)
	require.Equal(t, int64(10), *watched.SeatsRemaining)
	require.Nil(t, watched.WaitlistRemaining)
	require.Equal(t, ScheduleHash([]banner.MeetingPattern{lecture}), watched.ScheduleHash)

	// subscribing again overwrites the snapshot
	f.source.set("10001", "7", "3", lecture)
	_, err = f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)

	list, err := f.poller.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(7), *list[0].SeatsRemaining)
	require.Equal(t, int64(3), *list[0].WaitlistRemaining)
}

func TestSubscribeNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.poller.Subscribe(ctx, "202510", "99999")
	require.ErrorIs(t, err, ErrCourseNotFound)

	f.source.failing["10001"] = true
	_, err = f.poller.Subscribe(ctx, "202510", "10001")
	require.ErrorIs(t, err, banner.ErrFetchFailed)

	_, err = f.poller.Subscribe(ctx, "2025", "10001")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)

	list, err := f.poller.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.source.set("10001", "10", "0")

	_, err := f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)
	require.NoError(t, f.poller.Unsubscribe(ctx, "202510", "10001"))
	require.NoError(t, f.poller.Unsubscribe(ctx, "202510", "10001"))

	list, err := f.poller.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPollChangeDetection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.source.set("10001", "10", "0", lecture)

	_, err := f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)
	hash := ScheduleHash([]banner.MeetingPattern{lecture})

	f.source.set("10001", "8", "0", lecture)
	report := f.poller.Poll(ctx)
	require.Equal(t, Report{Checked: 1, Changed: 1}, report)
	require.Equal(t, 1, f.writes(t))

	row, err := db.New(f.database).GetWatchedCourse(ctx, db.GetWatchedCourseParams{Term: "202510", Crn: "10001"})
	require.NoError(t, err)
	require.Equal(t, count(8), row.LastSeatsRemaining)
	require.Equal(t, count(0), row.LastWaitlistRemaining)
	require.Equal(t, hash, row.LastScheduleHash)

	require.Len(t, f.notifier.changes, 1)
	change := f.notifier.changes[0]
	require.True(t, change.Changed)
	require.Equal(t, Snapshot{SeatsRemaining: count(10), WaitlistRemaining: count(0), ScheduleHash: hash}, change.Previous)
	require.Equal(t, Snapshot{SeatsRemaining: count(8), WaitlistRemaining: count(0), ScheduleHash: hash}, change.Current)
	require.Contains(t, change.Summary(), "seats remaining 10 -> 8")

	// an identical result does not write
	report = f.poller.Poll(ctx)
	require.Equal(t, Report{Checked: 1, Unchanged: 1}, report)
	require.Equal(t, 1, f.writes(t))
	require.Len(t, f.notifier.changes, 2)
	require.False(t, f.notifier.changes[1].Changed)
}

func TestPollScheduleChange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.source.set("10001", "10", "0", lecture)
	_, err := f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)

	moved := lecture
	moved.Time = "11:00 am - 12:20 pm"
	f.source.set("10001", "10", "0", moved)

	report := f.poller.Poll(ctx)
	require.Equal(t, 1, report.Changed)
	require.Equal(t, []string{"meeting schedule changed"}, f.notifier.changes[0].Previous.Differences(f.notifier.changes[0].Current))
}

func TestPollIsolatesFailures(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, crn := range []string{"10001", "10002", "10003", "10004"} {
		f.source.set(crn, "5", "0")
		_, err := f.poller.Subscribe(ctx, "202510", crn)
		require.NoError(t, err)
	}
	f.source.calls = nil

	f.source.failing["10001"] = true
	f.source.panicking["10002"] = true
	delete(f.source.details, "10003")
	f.source.set("10004", "4", "0")

	report := f.poller.Poll(ctx)
	require.Equal(t, Report{Checked: 4, Changed: 1, Failed: 3}, report)
	require.Equal(t, []string{"10001", "10002", "10003", "10004"}, f.source.calls)
	require.Len(t, f.rec.Reports("broken"), 3)

	// failing rows stay watched
	list, err := f.poller.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
}

func TestPollNotifyFailureKeepsSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.source.set("10001", "10", "0")
	_, err := f.poller.Subscribe(ctx, "202510", "10001")
	require.NoError(t, err)

	f.notifier.err = errors.New("smtp down")
	f.source.set("10001", "9", "0")
	report := f.poller.Poll(ctx)
	require.Equal(t, Report{Checked: 1, Changed: 1}, report)
	require.Len(t, f.rec.Reports("warning"), 1)

	list, err := f.poller.List(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(9), *list[0].SeatsRemaining)
}

func TestPollStopsWhenCancelled(t *testing.T) {
	f := setup(t)
	f.source.set("10001", "10", "0")
	_, err := f.poller.Subscribe(context.Background(), "202510", "10001")
	require.NoError(t, err)
	f.source.calls = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := f.poller.Poll(ctx)
	require.Equal(t, 0, report.Changed+report.Unchanged)
	require.Empty(t, f.source.calls)
}

func TestMultiNotifier(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first")}
	second := &recordingNotifier{}
	err := MultiNotifier{first, second, LogNotifier{}}.Notify(context.Background(), Change{CRN: "10001", Changed: true})
	require.ErrorContains(t, err, "first")
	require.Len(t, first.changes, 1)
	require.Len(t, second.changes, 1)
}

func TestEmailNotifierIgnoresUnchanged(t *testing.T) {
	n := NewEmailNotifier(SmtpConfig{Server: "127.0.0.1", Port: 1, EmailAddress: "a@example.edu", To: []string{"b@example.edu"}})
	require.NoError(t, n.Notify(context.Background(), Change{CRN: "10001"}))
}

func TestSmtpConfigEnabled(t *testing.T) {
	require.False(t, SmtpConfig{}.Enabled())
	require.False(t, SmtpConfig{Server: "smtp.example.edu", EmailAddress: "a@example.edu"}.Enabled())
	require.True(t, SmtpConfig{Server: "smtp.example.edu", EmailAddress: "a@example.edu", To: []string{"b@example.edu"}}.Enabled())
}

package registrar_test

import (
	"context"
	"coursewatch-backend/internal/cachestore"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/internal/scrapers/banner/bannertest"
	"coursewatch-backend/lib/testutil"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv   *bannertest.Server
	svc   *registrar.Service
	clock *chrono.FakeTime
	rec   *telemetry.Recorder
}

func setup(t testing.TB) fixture {
	res := testutil.SetupService(t, testutil.ServiceParams{DbSchema: db.Schema})

	srv := bannertest.NewServer()
	t.Cleanup(srv.Close)

	rec := &telemetry.Recorder{}
	client, err := banner.NewClient(banner.Options{BaseUrl: srv.BaseUrl()}, rec)
	require.NoError(t, err)

	clock := chrono.NewFakeTime(time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC))
	store := cachestore.NewStore(res.DB, clock, rec, cachestore.Options{})

	return fixture{
		srv:   srv,
		svc:   registrar.NewService(client, store, rec, registrar.Options{}),
		clock: clock,
		rec:   rec,
	}
}

func lecture(days, clock, instructor string) []bannertest.Meeting {
	return []bannertest.Meeting{{
		Type:         "Class",
		Time:         clock,
		Days:         days,
		Where:        "Whitman Hall 101",
		DateRange:    "Jan 21, 2025 - May 13, 2025",
		ScheduleType: "Lecture",
		Instructor:   instructor,
	}}
}

func seedTerm(f fixture) {
	f.srv.AddTerm("202510", "Spring 2025",
		bannertest.Subject{Code: "CSC", Name: "Computer Science"},
		bannertest.Subject{Code: "MTH", Name: "Mathematics"},
	)
	f.srv.AddTerm("202490", "Fall 2024", bannertest.Subject{Code: "CSC", Name: "Computer Science"})
	f.srv.AddSections("202510",
		bannertest.Section{CRN: "10001", Name: "Intro to Programming", Subject: "CSC", Number: "101", Section: "01", Meetings: lecture("MW", "9:25 am - 10:45 am", "Jane Doe")},
		bannertest.Section{CRN: "10002", Name: "Intro to Programming", Subject: "CSC", Number: "101", Section: "02", Meetings: lecture("TR", "1:00 pm - 2:15 pm", "Alan Turing")},
		bannertest.Section{CRN: "20001", Name: "Calculus I", Subject: "MTH", Number: "151", Section: "01", Meetings: lecture("MWF", "8:00 am - 8:50 am", "Emmy Noether")},
	)
}

func crns(listings []banner.CourseListing) []string {
	out := []string{}
	for _, l := range listings {
		out = append(out, l.CRN)
	}
	return out
}

func TestSubjectCoursesCacheThenLive(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	ctx := context.Background()

	live, err := f.svc.SubjectCourses(ctx, "202510", "CSC")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceLive, live.Source)
	require.Equal(t, 2, live.Count)
	require.Equal(t, []string{"10001", "10002"}, crns(live.Courses))
	require.Len(t, f.srv.Requests("bwckschd.p_get_crse_unsec"), 1)
	require.Empty(t, f.srv.Requests("bwckgens.p_proc_term_date"))

	before := f.srv.RequestCount()
	cached, err := f.svc.SubjectCourses(ctx, "202510", "csc")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, cached.Source)
	require.Equal(t, before, f.srv.RequestCount())
	if diff := cmp.Diff(live.Courses, cached.Courses); diff != "" {
		t.Fatalf("cached courses differ (-live +cached):\n%s", diff)
	}

	f.clock.Advance(25 * time.Hour)
	stale, err := f.svc.SubjectCourses(ctx, "202510", "CSC")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceLive, stale.Source)
	require.Len(t, f.srv.Requests("bwckschd.p_get_crse_unsec"), 2)
}

func TestInvalidArguments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SubjectCourses(ctx, "2025", "CSC")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.SubjectCourses(ctx, "202510", "C5C")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.SubjectCourses(ctx, "202510", "COMPSCI")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.TermCourses(ctx, "abcdef")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.CourseDetail(ctx, "202510", "1234")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.Catalog(ctx, "202510", "CSC", "10/1")
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)
	_, err = f.svc.FindCourses(ctx, "202510", []string{"10001", "x"})
	require.ErrorIs(t, err, registrar.ErrInvalidArgument)

	require.Zero(t, f.srv.RequestCount())
}

func TestTerms(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	ctx := context.Background()

	terms, source, err := f.svc.Terms(ctx)
	require.NoError(t, err)
	require.Equal(t, registrar.SourceLive, source)
	require.Equal(t, []registrar.TermSummary{
		{TermName: "Spring 2025", TermCode: "202510", SubjectCount: 2, Subjects: []string{"CSC", "MTH"}},
		{TermName: "Fall 2024", TermCode: "202490", SubjectCount: 1, Subjects: []string{"CSC"}},
	}, terms)

	before := f.srv.RequestCount()
	cached, source, err := f.svc.Terms(ctx)
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, source)
	require.Equal(t, terms, cached)
	require.Equal(t, before, f.srv.RequestCount())
}

func TestNoTerms(t *testing.T) {
	f := setup(t)
	_, _, err := f.svc.Terms(context.Background())
	require.ErrorIs(t, err, registrar.ErrNoTerms)
}

func TestTermCourses(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	ctx := context.Background()

	all, err := f.svc.TermCourses(ctx, "202510")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceLive, all.Source)
	require.ElementsMatch(t, []string{"10001", "10002", "20001"}, crns(all.Courses))

	before := f.srv.RequestCount()
	cached, err := f.svc.TermCourses(ctx, "202510")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, cached.Source)
	require.Equal(t, all.Courses, cached.Courses)

	subject, err := f.svc.SubjectCourses(ctx, "202510", "MTH")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, subject.Source)
	require.Equal(t, before, f.srv.RequestCount())
}

func TestTermCoursesNoSubjects(t *testing.T) {
	f := setup(t)
	f.srv.AddTerm("202510", "Spring 2025")
	_, err := f.svc.TermCourses(context.Background(), "202510")
	require.ErrorIs(t, err, registrar.ErrNoSubjects)
}

func TestTermCoursesSubjectFailure(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	f.srv.FailNext("bwckschd.p_get_crse_unsec", "", 1)

	_, err := f.svc.TermCourses(context.Background(), "202510")
	require.ErrorIs(t, err, banner.ErrFetchFailed)
}

func TestCourseDetailMerge(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	f.srv.UpdateSection("202510", "10001", func(s *bannertest.Section) {
		s.Seats = &bannertest.Seats{Capacity: 30, Actual: 20, Remaining: 10}
	})
	ctx := context.Background()

	uncached, err := f.svc.CourseDetail(ctx, "202510", "10001")
	require.NoError(t, err)
	require.Equal(t, "N/A", uncached.Instructor)
	require.Empty(t, uncached.Schedule)
	require.Equal(t, "10", uncached.Seats.Remaining)
	require.Nil(t, uncached.Waitlist)

	_, err = f.svc.SubjectCourses(ctx, "202510", "CSC")
	require.NoError(t, err)

	merged, err := f.svc.CourseDetail(ctx, "202510", "10001")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", merged.Instructor)
	require.Len(t, merged.Schedule, 1)
	require.Equal(t, "MW", merged.Schedule[0].Days)

	// a real instructor on the detail page wins
	f.srv.UpdateSection("202510", "10001", func(s *bannertest.Section) {
		s.DetailInstructor = "Grace Hopper"
	})
	detail, err := f.svc.CourseDetail(ctx, "202510", "10001")
	require.NoError(t, err)
	require.Equal(t, "Grace Hopper", detail.Instructor)

	// detail pages are never served from the cache
	require.Len(t, f.srv.Requests("bwckschd.p_disp_detail_sched"), 3)
}

func TestCourseDetailNotFound(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	_, err := f.svc.CourseDetail(context.Background(), "202510", "99999")
	require.ErrorIs(t, err, registrar.ErrNotFound)
}

func TestCatalog(t *testing.T) {
	f := setup(t)
	f.srv.SetCatalogPage("202510", "CSC", "101", `<html><body><table>
<tr><td class="nttitle"><a href="#">CSC 101 - Intro to Programming</a></td></tr>
<tr><td class="ntdefault">Programming basics.<br>3.000 Credit hours<br></td></tr>
</table></body></html>`)
	ctx := context.Background()

	live, err := f.svc.Catalog(ctx, "202510", "csc", "101")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceLive, live.Source)
	require.Equal(t, 1, live.Count)
	require.Equal(t, "Programming basics.", live.Entries[0].Description)

	cached, err := f.svc.Catalog(ctx, "202510", "CSC", "101")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, cached.Source)
	require.Equal(t, live.Entries, cached.Entries)

	// fallback entries are cached too
	fallback, err := f.svc.Catalog(ctx, "202510", "CSC", "999")
	require.NoError(t, err)
	require.True(t, fallback.Entries[0].Fallback)
	again, err := f.svc.Catalog(ctx, "202510", "CSC", "999")
	require.NoError(t, err)
	require.Equal(t, registrar.SourceCache, again.Source)

	require.Len(t, f.srv.Requests("bwckctlg.p_display_courses"), 2)
}

func TestAttachCatalog(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	f.srv.SetCatalogPage("202510", "CSC", "101", `<html><body><table>
<tr><td class="nttitle">CSC 101 - Intro to Programming</td></tr>
<tr><td class="ntdefault">Programming basics.<br></td></tr>
<tr><td class="nttitle">CSC 101L - Intro to Programming Lab</td></tr>
<tr><td class="ntdefault">Lab.<br></td></tr>
</table></body></html>`)
	ctx := context.Background()

	result, err := f.svc.SubjectCourses(ctx, "202510", "CSC")
	require.NoError(t, err)
	listings := f.svc.AttachCatalog(ctx, "202510", result.Courses)

	require.Len(t, listings, 2)
	for _, listing := range listings {
		require.NotNil(t, listing.Catalog)
		require.Equal(t, "CSC 101 - Intro to Programming", listing.Catalog.Title)
	}
	require.Nil(t, result.Courses[0].Catalog)
	require.Len(t, f.srv.Requests("bwckctlg.p_display_courses"), 1)
}

func TestFindCourses(t *testing.T) {
	f := setup(t)
	seedTerm(f)
	ctx := context.Background()

	_, err := f.svc.TermCourses(ctx, "202510")
	require.NoError(t, err)
	f.srv.AddSections("202510", bannertest.Section{
		CRN: "30001", Name: "Late Addition", Subject: "CSC", Number: "499", Section: "01",
		Meetings: lecture("F", "1:00 pm - 3:50 pm", "Ada Lovelace"), DetailMeetings: true,
	})

	found, err := f.svc.FindCourses(ctx, "202510", []string{"20001", "30001", "10001"})
	require.NoError(t, err)
	require.Equal(t, []string{"20001", "30001", "10001"}, crns(found))
	require.Equal(t, "Late Addition", found[1].CourseName)
	require.Equal(t, "Ada Lovelace", found[1].Instructor)
	require.Len(t, f.srv.Requests("bwckschd.p_disp_detail_sched"), 1)

	_, err = f.svc.FindCourses(ctx, "202510", []string{"99999"})
	require.ErrorIs(t, err, registrar.ErrNotFound)
}

func TestFilterCourses(t *testing.T) {
	listings := []banner.CourseListing{
		{CRN: "10001", CourseName: "Intro to Programming", SubjectCode: "CSC", CourseNumber: "101", Instructor: "Jane Doe"},
		{CRN: "20001", CourseName: "Calculus I", SubjectCode: "MTH", CourseNumber: "151", Instructor: "Emmy Noether"},
		{CRN: "20002", CourseName: "Statistics", SubjectCode: "MTH", CourseNumber: "110", Instructor: "N/A"},
	}

	cases := []struct {
		query    string
		expected []string
	}{
		{"", []string{"10001", "20001", "20002"}},
		{"programming", []string{"10001"}},
		{"csc101", []string{"10001"}},
		{"MTH 1", []string{"20001", "20002"}},
		{"noether", []string{"20001"}},
		{"calculas", []string{"20001"}},
		{"20002", []string{"20002"}},
		{"biology", []string{}},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, crns(registrar.FilterCourses(listings, test.query)), test.query)
	}
}

func TestKeys(t *testing.T) {
	require.Equal(t, "courses_202510_CSC", registrar.SubjectCoursesKey("202510", "CSC"))
	require.Equal(t, "allcourses_202510", registrar.TermCoursesKey("202510"))
	require.Equal(t, "catalog:202510:CSC:101", registrar.CatalogKey("202510", "CSC", "101"))
	require.Equal(t, "terms", registrar.TermsKey)
}

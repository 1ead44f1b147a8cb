package refresh_test

import (
	"context"
	"coursewatch-backend/internal/cachestore"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/refresh"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/internal/scrapers/banner/bannertest"
	"coursewatch-backend/lib/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv   *bannertest.Server
	store *cachestore.Store
	rec   *telemetry.Recorder
	job   *refresh.Job
}

func setup(t testing.TB) fixture {
	res := testutil.SetupService(t, testutil.ServiceParams{DbSchema: db.Schema})

	srv := bannertest.NewServer()
	t.Cleanup(srv.Close)

	client, err := banner.NewClient(banner.Options{BaseUrl: srv.BaseUrl()}, &telemetry.Recorder{})
	require.NoError(t, err)

	clock := chrono.NewFakeTime(time.Date(2025, time.January, 21, 9, 0, 0, 0, time.UTC))
	store := cachestore.NewStore(res.DB, clock, &telemetry.Recorder{}, cachestore.Options{})

	rec := &telemetry.Recorder{}
	f := fixture{
		srv:   srv,
		store: store,
		rec:   rec,
		job:   refresh.NewJob(client, store, rec),
	}

	srv.AddTerm("202510", "Spring 2025",
		bannertest.Subject{Code: "CSC", Name: "Computer Science"},
		bannertest.Subject{Code: "MTH", Name: "Mathematics"},
	)
	srv.AddTerm("202490", "Fall 2024", bannertest.Subject{Code: "CSC", Name: "Computer Science"})
	srv.AddSections("202510",
		bannertest.Section{CRN: "10001", Name: "Intro to Programming", Subject: "CSC", Number: "101", Section: "01"},
		bannertest.Section{CRN: "10002", Name: "Data Structures", Subject: "CSC", Number: "201", Section: "01"},
		bannertest.Section{CRN: "20001", Name: "Calculus I", Subject: "MTH", Number: "151", Section: "01"},
	)
	srv.AddSections("202490",
		bannertest.Section{CRN: "30001", Name: "Intro to Programming", Subject: "CSC", Number: "101", Section: "01"},
	)
	return f
}

func cachedCrns(t testing.TB, f fixture, key string) []string {
	var listings []banner.CourseListing
	hit, err := f.store.Get(context.Background(), key, &listings)
	require.NoError(t, err)
	require.True(t, hit, key)
	out := []string{}
	for _, l := range listings {
		out = append(out, l.CRN)
	}
	return out
}

func TestRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// a fresh entry is still overwritten
	err := f.store.Set(ctx, registrar.SubjectCoursesKey("202510", "CSC"), []banner.CourseListing{{CRN: "99999"}})
	require.NoError(t, err)

	report := f.job.Run(ctx)
	require.Equal(t, refresh.Report{Terms: 2, Subjects: 3, Courses: 4}, report)
	require.Empty(t, f.rec.Reports("broken"))

	require.Equal(t, []string{"10001", "10002"}, cachedCrns(t, f, "courses_202510_CSC"))
	require.Equal(t, []string{"20001"}, cachedCrns(t, f, "courses_202510_MTH"))
	require.Equal(t, []string{"30001"}, cachedCrns(t, f, "courses_202490_CSC"))
	require.Equal(t, []string{"10001", "10002", "20001"}, cachedCrns(t, f, "allcourses_202510"))
	require.Equal(t, []string{"30001"}, cachedCrns(t, f, "allcourses_202490"))
	require.Len(t, f.srv.Requests("bwckschd.p_get_crse_unsec"), 3)
}

func TestRunIsolatesSubjects(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.srv.FailNext("bwckschd.p_get_crse_unsec", "", 1)
	report := f.job.Run(ctx)
	require.Equal(t, refresh.Report{Terms: 2, Subjects: 3, Courses: 2, FailedSubjects: 1}, report)
	require.Len(t, f.rec.Reports("broken"), 1)

	require.Equal(t, []string{"20001"}, cachedCrns(t, f, "allcourses_202510"))
	require.Equal(t, []string{"30001"}, cachedCrns(t, f, "allcourses_202490"))
}

func TestRunKeepsPreviousSubjectEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.job.Run(ctx)
	f.srv.AddSections("202510", bannertest.Section{CRN: "20002", Name: "Calculus II", Subject: "MTH", Number: "152", Section: "01"})

	f.srv.FailNext("bwckschd.p_get_crse_unsec", "", 1)
	report := f.job.Run(ctx)
	require.Equal(t, 1, report.FailedSubjects)

	// the failed subject contributes its last good entry
	require.Equal(t, []string{"10001", "10002", "20001", "20002"}, cachedCrns(t, f, "allcourses_202510"))
}

func TestRunIsolatesTerms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.srv.FailNext("bwckgens.p_proc_term_date", "", 1)
	report := f.job.Run(ctx)
	require.Equal(t, refresh.Report{Terms: 2, Subjects: 1, Courses: 1, FailedTerms: 1}, report)

	require.Equal(t, []string{"30001"}, cachedCrns(t, f, "allcourses_202490"))
	var listings []banner.CourseListing
	hit, err := f.store.Get(ctx, "allcourses_202510", &listings)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestRunWithoutTerms(t *testing.T) {
	f := setup(t)
	f.srv.Close()

	report := f.job.Run(context.Background())
	require.Equal(t, refresh.Report{}, report)
	require.Len(t, f.rec.Reports("broken"), 1)
}

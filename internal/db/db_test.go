package db

import (
	"context"
	"coursewatch-backend/lib/testutil"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatchedCourseQueries(t *testing.T) {
	res := testutil.SetupService(t, testutil.ServiceParams{DbSchema: Schema})
	qry := New(res.DB)
	ctx := context.Background()

	err := qry.UpsertWatchedCourse(ctx, UpsertWatchedCourseParams{
		Term:               "202510",
		Crn:                "10001",
		LastSeatsRemaining: sql.NullInt64{Int64: 5, Valid: true},
		LastScheduleHash:   "abc",
	})
	require.NoError(t, err)
	err = qry.UpsertWatchedCourse(ctx, UpsertWatchedCourseParams{
		Term:               "202510",
		Crn:                "10001",
		LastSeatsRemaining: sql.NullInt64{Int64: 4, Valid: true},
		LastScheduleHash:   "def",
	})
	require.NoError(t, err)

	rows, err := qry.ListWatchedCourses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(4), rows[0].LastSeatsRemaining.Int64)
	require.False(t, rows[0].LastWaitlistRemaining.Valid)
	require.Equal(t, "def", rows[0].LastScheduleHash)

	require.NoError(t, qry.DeleteWatchedCourse(ctx, DeleteWatchedCourseParams{Term: "202510", Crn: "10001"}))
	require.NoError(t, qry.DeleteWatchedCourse(ctx, DeleteWatchedCourseParams{Term: "202510", Crn: "10001"}))
	_, err = qry.GetWatchedCourse(ctx, GetWatchedCourseParams{Term: "202510", Crn: "10001"})
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMakeTx(t *testing.T) {
	res := testutil.SetupService(t, testutil.ServiceParams{DbSchema: Schema})
	makeTx := NewMakeTx(res.DB)
	ctx := context.Background()

	tx, discard, _, err := makeTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.UpsertCacheEntry(ctx, UpsertCacheEntryParams{Key: "k", Data: "{}", Timestamp: 1}))
	require.NoError(t, discard())

	_, err = New(res.DB).GetCacheEntry(ctx, "k")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

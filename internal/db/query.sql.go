package db

import (
	"context"
	"database/sql"
)

const getCacheEntry = `-- name: GetCacheEntry :one
SELECT key, data, timestamp FROM cache
WHERE key = ?
`

func (q *Queries) GetCacheEntry(ctx context.Context, key string) (Cache, error) {
	row := q.db.QueryRowContext(ctx, getCacheEntry, key)
	var i Cache
	err := row.Scan(&i.Key, &i.Data, &i.Timestamp)
	return i, err
}

const upsertCacheEntry = `-- name: UpsertCacheEntry :exec
INSERT INTO cache (key, data, timestamp) VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    data = excluded.data,
    timestamp = excluded.timestamp
`

type UpsertCacheEntryParams struct {
	Key       string
	Data      string
	Timestamp int64
}

func (q *Queries) UpsertCacheEntry(ctx context.Context, arg UpsertCacheEntryParams) error {
	_, err := q.db.ExecContext(ctx, upsertCacheEntry, arg.Key, arg.Data, arg.Timestamp)
	return err
}

const listWatchedCourses = `-- name: ListWatchedCourses :many
SELECT term, crn, last_seats_remaining, last_waitlist_remaining, last_schedule_hash FROM watched_courses
ORDER BY rowid
`

func (q *Queries) ListWatchedCourses(ctx context.Context) ([]WatchedCourse, error) {
	rows, err := q.db.QueryContext(ctx, listWatchedCourses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WatchedCourse
	for rows.Next() {
		var i WatchedCourse
		if err := rows.Scan(
			&i.Term,
			&i.Crn,
			&i.LastSeatsRemaining,
			&i.LastWaitlistRemaining,
			&i.LastScheduleHash,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getWatchedCourse = `-- name: GetWatchedCourse :one
SELECT term, crn, last_seats_remaining, last_waitlist_remaining, last_schedule_hash FROM watched_courses
WHERE term = ? AND crn = ?
`

type GetWatchedCourseParams struct {
	Term string
	Crn  string
}

func (q *Queries) GetWatchedCourse(ctx context.Context, arg GetWatchedCourseParams) (WatchedCourse, error) {
	row := q.db.QueryRowContext(ctx, getWatchedCourse, arg.Term, arg.Crn)
	var i WatchedCourse
	err := row.Scan(
		&i.Term,
		&i.Crn,
		&i.LastSeatsRemaining,
		&i.LastWaitlistRemaining,
		&i.LastScheduleHash,
	)
	return i, err
}

const upsertWatchedCourse = `-- name: UpsertWatchedCourse :exec
INSERT INTO watched_courses (
    term, crn, last_seats_remaining, last_waitlist_remaining, last_schedule_hash
) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (term, crn) DO UPDATE SET
    last_seats_remaining = excluded.last_seats_remaining,
    last_waitlist_remaining = excluded.last_waitlist_remaining,
    last_schedule_hash = excluded.last_schedule_hash
`

type UpsertWatchedCourseParams struct {
	Term                  string
	Crn                   string
	LastSeatsRemaining    sql.NullInt64
	LastWaitlistRemaining sql.NullInt64
	LastScheduleHash      string
}

func (q *Queries) UpsertWatchedCourse(ctx context.Context, arg UpsertWatchedCourseParams) error {
	_, err := q.db.ExecContext(ctx, upsertWatchedCourse,
		arg.Term,
		arg.Crn,
		arg.LastSeatsRemaining,
		arg.LastWaitlistRemaining,
		arg.LastScheduleHash,
	)
	return err
}

const deleteWatchedCourse = `-- name: DeleteWatchedCourse :exec
DELETE FROM watched_courses
WHERE term = ? AND crn = ?
`

type DeleteWatchedCourseParams struct {
	Term string
	Crn  string
}

func (q *Queries) DeleteWatchedCourse(ctx context.Context, arg DeleteWatchedCourseParams) error {
	_, err := q.db.ExecContext(ctx, deleteWatchedCourse, arg.Term, arg.Crn)
	return err
}

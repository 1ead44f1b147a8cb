package db

import (
	"database/sql"
)

type Cache struct {
	Key       string
	Data      string
	Timestamp int64
}

type WatchedCourse struct {
	Term                  string
	Crn                   string
	LastSeatsRemaining    sql.NullInt64
	LastWaitlistRemaining sql.NullInt64
	LastScheduleHash      string
}

package watchlist

import (
	"coursewatch-backend/internal/db"
	"coursewatch-backend/internal/scrapers/banner"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ScheduleHash is the hex md5 of the JSON encoded meeting list. A nil list
// hashes like an empty one.
func ScheduleHash(meetings []banner.MeetingPattern) string {
	if meetings == nil {
		meetings = []banner.MeetingPattern{}
	}
	encoded, err := json.Marshal(meetings)
	if err != nil {
		// a slice of plain string structs always encodes
		panic(err)
	}
	sum := md5.Sum(encoded)
	return hex.EncodeToString(sum[:])
}

// Snapshot is what is remembered about a watched section between polls.
type Snapshot struct {
	SeatsRemaining    sql.NullInt64
	WaitlistRemaining sql.NullInt64
	ScheduleHash      string
}

func remaining(a *banner.Availability) sql.NullInt64 {
	n, ok := a.RemainingCount()
	return sql.NullInt64{Int64: n, Valid: ok}
}

func SnapshotOf(detail banner.CourseDetail) Snapshot {
	return Snapshot{
		SeatsRemaining:    remaining(detail.Seats),
		WaitlistRemaining: remaining(detail.Waitlist),
		ScheduleHash:      ScheduleHash(detail.Schedule),
	}
}

func snapshotOfRow(row db.WatchedCourse) Snapshot {
	return Snapshot{
		SeatsRemaining:    row.LastSeatsRemaining,
		WaitlistRemaining: row.LastWaitlistRemaining,
		ScheduleHash:      row.LastScheduleHash,
	}
}

func formatCount(n sql.NullInt64) string {
	if !n.Valid {
		return "n/a"
	}
	return fmt.Sprint(n.Int64)
}

// Differences lists the human readable differences between two snapshots.
func (s Snapshot) Differences(current Snapshot) []string {
	var out []string
	if s.SeatsRemaining != current.SeatsRemaining {
		out = append(out, fmt.Sprintf("seats remaining %s -> %s", formatCount(s.SeatsRemaining), formatCount(current.SeatsRemaining)))
	}
	if s.WaitlistRemaining != current.WaitlistRemaining {
		out = append(out, fmt.Sprintf("waitlist remaining %s -> %s", formatCount(s.WaitlistRemaining), formatCount(current.WaitlistRemaining)))
	}
	if s.ScheduleHash != current.ScheduleHash {
		out = append(out, "meeting schedule changed")
	}
	return out
}

// Watched is a watch list row as shown to users.
type Watched struct {
	Term              string `json:"term"`
	CRN               string `json:"crn"`
	SeatsRemaining    *int64 `json:"seatsRemaining"`
	WaitlistRemaining *int64 `json:"waitlistRemaining"`
	ScheduleHash      string `json:"scheduleHash"`
}

func nullablePtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func watchedFromRow(row db.WatchedCourse) Watched {
	return Watched{
		Term:              row.Term,
		CRN:               row.Crn,
		SeatsRemaining:    nullablePtr(row.LastSeatsRemaining),
		WaitlistRemaining: nullablePtr(row.LastWaitlistRemaining),
		ScheduleHash:      row.LastScheduleHash,
	}
}

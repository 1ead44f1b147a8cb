package schedule

import (
	"coursewatch-backend/internal/scrapers/banner"
	"sort"
	"time"
)

// Block is one weekly occurrence of a meeting.
type Block struct {
	Day time.Weekday
	TimeRange
}

// Blocks expands a meeting into one block per day. Unscheduled or
// unparseable meetings have no blocks.
func Blocks(meeting banner.MeetingPattern) []Block {
	if IsUnscheduled(meeting.Days) || IsUnscheduled(meeting.Time) {
		return nil
	}
	span, ok := ParseTimeRange(meeting.Time)
	if !ok {
		return nil
	}
	var blocks []Block
	for _, day := range ParseDays(meeting.Days) {
		blocks = append(blocks, Block{Day: day, TimeRange: span})
	}
	return blocks
}

// Conflict is a pair of sections that meet at the same time.
type Conflict struct {
	Day    time.Weekday
	First  string
	Second string
}

type placed struct {
	crn   string
	block Block
}

// Conflicts finds every pair of sections with overlapping blocks, at most
// one conflict is reported per pair and day.
func Conflicts(listings []banner.CourseListing) []Conflict {
	var all []placed
	for _, listing := range listings {
		for _, meeting := range listing.Schedule {
			for _, block := range Blocks(meeting) {
				all = append(all, placed{crn: listing.CRN, block: block})
			}
		}
	}

	type pairKey struct {
		day           time.Weekday
		first, second string
	}
	seen := map[pairKey]bool{}
	var conflicts []Conflict
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			a, b := all[i], all[j]
			if a.crn == b.crn || a.block.Day != b.block.Day || !a.block.Overlaps(b.block.TimeRange) {
				continue
			}
			first, second := a.crn, b.crn
			if second < first {
				first, second = second, first
			}
			key := pairKey{day: a.block.Day, first: first, second: second}
			if seen[key] {
				continue
			}
			seen[key] = true
			conflicts = append(conflicts, Conflict{Day: a.block.Day, First: first, Second: second})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].First != conflicts[j].First {
			return conflicts[i].First < conflicts[j].First
		}
		if conflicts[i].Second != conflicts[j].Second {
			return conflicts[i].Second < conflicts[j].Second
		}
		return weekIndex(conflicts[i].Day) < weekIndex(conflicts[j].Day)
	})
	return conflicts
}

func weekIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

// Package schedule turns the raw meeting strings shown by the registration
// site into weekly time blocks.
package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unscheduledRegex = regexp.MustCompile(`(?i)TBA|ARR|TBD`)

// IsUnscheduled reports whether a days or time string is a placeholder
// ("TBA", "ARR", "TBD") rather than a concrete slot.
func IsUnscheduled(s string) bool {
	return unscheduledRegex.MatchString(s)
}

// longer names come first so they win over their own prefixes
var dayTokenRegex = regexp.MustCompile(`MONDAY|TUESDAY|WEDNESDAY|THURSDAY|FRIDAY|SATURDAY|SUNDAY|MON|TUES|TUE|WEDS|WED|THURS|THU|TH|FRI|SAT|SUN|M|T|W|R|F|S|U`)

var dayTokens = map[string]time.Weekday{
	"MONDAY": time.Monday, "MON": time.Monday, "M": time.Monday,
	"TUESDAY": time.Tuesday, "TUES": time.Tuesday, "TUE": time.Tuesday, "T": time.Tuesday,
	"WEDNESDAY": time.Wednesday, "WEDS": time.Wednesday, "WED": time.Wednesday, "W": time.Wednesday,
	"THURSDAY": time.Thursday, "THURS": time.Thursday, "THU": time.Thursday, "TH": time.Thursday, "R": time.Thursday,
	"FRIDAY": time.Friday, "FRI": time.Friday, "F": time.Friday,
	"SATURDAY": time.Saturday, "SAT": time.Saturday, "S": time.Saturday,
	"SUNDAY": time.Sunday, "SUN": time.Sunday, "U": time.Sunday,
}

// WeekOrder is the order days are listed in, Monday first.
var WeekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ParseDays reads a days string such as "MWF", "T R" or "Mon, Wed". Each
// letter is its own day, "MF" is Monday and Friday. The result is in
// WeekOrder without duplicates, nil when unscheduled or unrecognized.
func ParseDays(s string) []time.Weekday {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == "" || IsUnscheduled(raw) {
		return nil
	}

	found := map[time.Weekday]bool{}
	for _, token := range dayTokenRegex.FindAllString(raw, -1) {
		found[dayTokens[token]] = true
	}

	var days []time.Weekday
	for _, day := range WeekOrder {
		if found[day] {
			days = append(days, day)
		}
	}
	return days
}

// TimeRange is a span within a day in minutes since midnight.
type TimeRange struct {
	Start int
	End   int
}

func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func formatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("3:04 pm")
}

func (r TimeRange) String() string {
	return formatClock(r.Start) + " - " + formatClock(r.End)
}

var clockRegex = regexp.MustCompile(`(?i)(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s*m?\.?|(\d{1,2}):(\d{2})`)

// ParseTimeRange reads "9:25 am - 10:45 am" (or 24 hour "13:00 - 14:15").
// It fails for placeholders, for anything without two times and for a
// range that does not end after it starts.
func ParseTimeRange(s string) (TimeRange, bool) {
	if IsUnscheduled(s) {
		return TimeRange{}, false
	}
	matches := clockRegex.FindAllStringSubmatch(s, -1)
	if len(matches) < 2 {
		return TimeRange{}, false
	}

	start, ok := clockMinutes(matches[0])
	if !ok {
		return TimeRange{}, false
	}
	end, ok := clockMinutes(matches[1])
	if !ok || end <= start {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}

func clockMinutes(groups []string) (int, bool) {
	if groups[4] != "" {
		hour, _ := strconv.Atoi(groups[4])
		minute, _ := strconv.Atoi(groups[5])
		if hour > 23 || minute > 59 {
			return 0, false
		}
		return hour*60 + minute, true
	}

	hour, _ := strconv.Atoi(groups[1])
	minute := 0
	if groups[2] != "" {
		minute, _ = strconv.Atoi(groups[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, false
	}
	hour %= 12
	if strings.EqualFold(groups[3], "p") {
		hour += 12
	}
	return hour*60 + minute, true
}

// DateRange is an inclusive range of calendar days, both ends at midnight.
type DateRange struct {
	Start time.Time
	End   time.Time
}

const dateLayout = "Jan 2, 2006"

// ParseDateRange reads "Jan 21, 2025 - May 13, 2025" in loc.
func ParseDateRange(s string, loc *time.Location) (DateRange, bool) {
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return DateRange{}, false
	}
	start, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[0]), loc)
	if err != nil {
		return DateRange{}, false
	}
	end, err := time.ParseInLocation(dateLayout, strings.TrimSpace(parts[1]), loc)
	if err != nil || end.Before(start) {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

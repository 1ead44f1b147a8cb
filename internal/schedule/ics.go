package schedule

import (
	"coursewatch-backend/internal/scrapers/banner"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// weeksWithoutDates bounds a recurrence when the meeting has no usable
// date range.
const weeksWithoutDates = 15

var icsDays = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

type CalendarOptions struct {
	Name     string
	Location *time.Location
	// Now is the DTSTAMP of every event and the first week of meetings
	// without a date range.
	Now time.Time
}

func sectionLabel(listing banner.CourseListing) string {
	return fmt.Sprintf("%s %s-%s %s", listing.SubjectCode, listing.CourseNumber, listing.Section, listing.CourseName)
}

// firstOccurrence is the first day on or after `from` that is one of `days`.
func firstOccurrence(from time.Time, days []time.Weekday) time.Time {
	for i := 0; i < 7; i++ {
		day := from.AddDate(0, 0, i)
		for _, d := range days {
			if day.Weekday() == d {
				return day
			}
		}
	}
	return from
}

func atMinutes(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
}

// ExportICS builds a calendar with one weekly recurring event per scheduled
// meeting. Unscheduled meetings are listed in the calendar description.
func ExportICS(listings []banner.CourseListing, opts CalendarOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now.In(loc)
	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{loc.String()}}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//coursewatch//schedule//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	var unscheduled []string
	for _, listing := range listings {
		for i, meeting := range listing.Schedule {
			days := ParseDays(meeting.Days)
			span, ok := ParseTimeRange(meeting.Time)
			if !ok || len(days) == 0 {
				unscheduled = append(unscheduled, fmt.Sprintf("%s (%s)", sectionLabel(listing), meeting.Type))
				continue
			}

			var byDay []string
			for _, d := range days {
				byDay = append(byDay, icsDays[d])
			}
			rule := "FREQ=WEEKLY;BYDAY=" + strings.Join(byDay, ",")

			from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
			dates, hasDates := ParseDateRange(meeting.DateRange, loc)
			if hasDates {
				from = dates.Start
				until := time.Date(dates.End.Year(), dates.End.Month(), dates.End.Day(), 23, 59, 59, 0, loc)
				rule += ";UNTIL=" + until.UTC().Format("20060102T150405Z")
			} else {
				rule += fmt.Sprintf(";COUNT=%d", weeksWithoutDates*len(days))
			}
			day := firstOccurrence(from, days)

			event := cal.AddEvent(fmt.Sprintf("%s-%d@coursewatch", listing.CRN, i))
			event.SetDtStampTime(now)
			event.SetSummary(sectionLabel(listing))
			if meeting.Where != "" {
				event.SetLocation(meeting.Where)
			}
			event.SetDescription(fmt.Sprintf("CRN %s, %s, %s", listing.CRN, meeting.ScheduleType, meeting.Instructor))
			event.SetProperty(ics.ComponentPropertyDtStart, atMinutes(day, span.Start).Format("20060102T150405"), tzid)
			event.SetProperty(ics.ComponentPropertyDtEnd, atMinutes(day, span.End).Format("20060102T150405"), tzid)
			event.AddProperty(ics.ComponentPropertyRrule, rule)
		}
	}

	if len(unscheduled) > 0 {
		cal.SetXWRCalDesc("Unscheduled: " + strings.Join(unscheduled, "; "))
	}
	return cal.Serialize()
}

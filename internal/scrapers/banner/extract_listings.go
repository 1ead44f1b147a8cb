package banner

import (
	"coursewatch-backend/lib/htmlutil"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	limitNotice     = "All results could not be displayed"
	noResultsNotice = "No classes were found"
)

const meetingTableSelector = `table.datadisplaytable[summary*="scheduled meeting times"]`

type sectionTitle struct {
	name         string
	crn          string
	subject      string
	courseNumber string
	section      string
}

// parseSectionTitle splits "<name> - <crn> - <SUBJ NUM> - <section>". The
// fixed fields are taken from the right so names containing " - " survive.
func parseSectionTitle(title string) (sectionTitle, bool) {
	parts := strings.Split(title, " - ")
	if len(parts) < 4 {
		return sectionTitle{}, false
	}
	n := len(parts)

	out := sectionTitle{
		name:    strings.TrimSpace(strings.Join(parts[:n-3], " - ")),
		crn:     strings.TrimSpace(parts[n-3]),
		section: strings.TrimSpace(parts[n-1]),
	}
	code := strings.Fields(parts[n-2])
	if len(code) > 0 {
		out.subject = code[0]
	}
	if len(code) > 1 {
		out.courseNumber = code[1]
	}
	return out, true
}

func cleanInstructor(raw string) string {
	if idx := strings.Index(raw, "("); idx >= 0 {
		raw = raw[:idx]
	}
	return htmlutil.Clean(raw)
}

// extractMeetings reads a meeting table, the header row and rows with
// fewer than 7 cells are skipped.
func extractMeetings(table *goquery.Selection) []MeetingPattern {
	meetings := []MeetingPattern{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 7 {
			return
		}
		text := func(i int) string {
			return htmlutil.SelectionText(cells.Eq(i))
		}
		meetings = append(meetings, MeetingPattern{
			Type:         text(0),
			Time:         text(1),
			Days:         text(2),
			Where:        text(3),
			DateRange:    text(4),
			ScheduleType: text(5),
			Instructor:   cleanInstructor(cells.Eq(6).Text()),
		})
	})
	return meetings
}

func primaryInstructor(meetings []MeetingPattern) string {
	if len(meetings) == 0 || meetings[0].Instructor == "" {
		return "N/A"
	}
	return meetings[0].Instructor
}

type ListingPage struct {
	Listings []CourseListing
	LimitHit bool
	// Anomalies describes the rows that were skipped.
	Anomalies []string
}

// ExtractListings reads a course search result page. `subject` is used for
// listings whose title does not carry a subject code.
func ExtractListings(doc *goquery.Document, subject string) ListingPage {
	page := ListingPage{
		Listings: []CourseListing{},
		LimitHit: strings.Contains(doc.Text(), limitNotice),
	}
	seen := map[string]bool{}

	doc.Find("th.ddtitle").Each(func(_ int, th *goquery.Selection) {
		title := htmlutil.SelectionText(th.Find("a").First())
		if title == "" {
			title = htmlutil.SelectionText(th)
		}

		parsed, ok := parseSectionTitle(title)
		if !ok {
			page.Anomalies = append(page.Anomalies, fmt.Sprintf("malformed title %q", title))
			return
		}
		if !crnRegex.MatchString(parsed.crn) {
			page.Anomalies = append(page.Anomalies, fmt.Sprintf("invalid crn in title %q", title))
			return
		}
		if seen[parsed.crn] {
			page.Anomalies = append(page.Anomalies, fmt.Sprintf("duplicate crn %s", parsed.crn))
			return
		}
		seen[parsed.crn] = true

		table := th.Closest("tr").Next().Find(meetingTableSelector).First()
		meetings := extractMeetings(table)

		subjectCode := parsed.subject
		if subjectCode == "" {
			subjectCode = subject
		}
		page.Listings = append(page.Listings, CourseListing{
			CRN:          parsed.crn,
			CourseName:   parsed.name,
			SubjectCode:  subjectCode,
			CourseNumber: parsed.courseNumber,
			Section:      parsed.section,
			Instructor:   primaryInstructor(meetings),
			Schedule:     meetings,
		})
	})

	return page
}

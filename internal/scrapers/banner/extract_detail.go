package banner

import (
	"coursewatch-backend/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func extractAvailability(doc *goquery.Document) (seats, waitlist *Availability) {
	table := doc.Find("table caption").FilterFunction(func(_ int, caption *goquery.Selection) bool {
		return strings.Contains(caption.Text(), "Registration Availability")
	}).First().Closest("table")

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := htmlutil.SelectionText(row.ChildrenFiltered("th"))
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 3 {
			return
		}
		availability := &Availability{
			Capacity:  htmlutil.SelectionText(cells.Eq(0)),
			Actual:    htmlutil.SelectionText(cells.Eq(1)),
			Remaining: htmlutil.SelectionText(cells.Eq(2)),
		}
		switch label {
		case "Seats":
			seats = availability
		case "Waitlist Seats":
			waitlist = availability
		}
	})
	return seats, waitlist
}

// ExtractDetail reads a section's detail page, false means the page has no
// section title (the CRN does not exist in the term).
func ExtractDetail(doc *goquery.Document, crn string) (CourseDetail, bool) {
	label := doc.Find("th.ddlabel").First()
	title := htmlutil.FirstText(label)
	if title == "" {
		return CourseDetail{}, false
	}

	detail := CourseDetail{
		CRN:      crn,
		Title:    title,
		Schedule: []MeetingPattern{},
	}
	if parsed, ok := parseSectionTitle(title); ok {
		detail.CourseName = parsed.name
		detail.SubjectCode = parsed.subject
		detail.CourseNumber = parsed.courseNumber
		detail.Section = parsed.section
		if crnRegex.MatchString(parsed.crn) {
			detail.CRN = parsed.crn
		}
	}

	block := label.Closest("tr").Next().Find("td.dddefault").First()
	fields := detailFields.parse(htmlutil.Lines(block, htmlutil.LinesOptions{SkipTables: true}))
	detail.AssociatedTerm = fields.get(field_associated_term)
	detail.Levels = fields.get(field_levels)
	detail.Credits = fields.get(field_credits)

	detail.Seats, detail.Waitlist = extractAvailability(doc)

	table := doc.Find(meetingTableSelector).First()
	if table.Length() > 0 {
		detail.Schedule = extractMeetings(table)
	}

	detail.Instructor = cleanInstructor(fields.get(field_instructors))
	if detail.Instructor == "" {
		detail.Instructor = primaryInstructor(detail.Schedule)
	}
	return detail, true
}

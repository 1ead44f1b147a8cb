package bannertest

import (
	"fmt"
	"html"
	"strings"
)

const pageHeader = `<!DOCTYPE html>
<html lang="en">
<head><title>Class Schedule Listing</title></head>
<body>
<div class="pagetitlediv"><h2>Class Schedule Listing</h2></div>
<div class="pagebodydiv">
`

const pageFooter = `</div>
<div class="pagefooterdiv">Release: 8.7.2</div>
</body>
</html>
`

func esc(s string) string {
	return html.EscapeString(s)
}

func renderTerms(terms []Term) string {
	var b strings.Builder
	b.WriteString(pageHeader)
	b.WriteString(`<form action="/pls/prod/bwckgens.p_proc_term_date" method="post">
<table class="dataentrytable" summary="This layout table is used for term selection.">
<tr><td class="dedefault"><label for="term_input_id"><span class="fieldlabeltext">Search by Term: </span></label>
<select name="p_term" size="1" id="term_input_id">
<option value="">None</option>
`)
	for _, term := range terms {
		fmt.Fprintf(&b, "<option value=\"%s\">%s</option>\n", esc(term.Code), esc(term.Name))
	}
	b.WriteString("</select></td></tr></table></form>\n")
	b.WriteString(pageFooter)
	return b.String()
}

func renderSubjects(subjects []Subject) string {
	var b strings.Builder
	b.WriteString(pageHeader)
	b.WriteString(`<form action="/pls/prod/bwckschd.p_get_crse_unsec" method="post">
<table class="dataentrytable" summary="Table is used for layout purposes only.">
<tr><td class="delabel"><label for="subj_id"><span class="fieldlabeltext">Subject:</span></label></td>
<td class="dedefault"><select name="sel_subj" size="10" multiple id="subj_id">
<option value="%">All</option>
`)
	for _, subject := range subjects {
		fmt.Fprintf(&b, "<option value=\"%s\">%s</option>\n", esc(subject.Code), esc(subject.Name))
	}
	b.WriteString("</select></td></tr></table></form>\n")
	b.WriteString(pageFooter)
	return b.String()
}

func (s Section) title() string {
	return fmt.Sprintf("%s - %s - %s %s - %s", s.Name, s.CRN, s.Subject, s.Number, s.Section)
}

func renderMeetingTable(meetings []Meeting) string {
	var b strings.Builder
	b.WriteString(`<table class="datadisplaytable" summary="This table lists the scheduled meeting times and assigned instructors for this class..">
<caption class="captiontext">Scheduled Meeting Times</caption>
<tr>
<th class="ddheader" scope="col">Type</th><th class="ddheader" scope="col">Time</th><th class="ddheader" scope="col">Days</th>
<th class="ddheader" scope="col">Where</th><th class="ddheader" scope="col">Date Range</th><th class="ddheader" scope="col">Schedule Type</th>
<th class="ddheader" scope="col">Instructors</th>
</tr>
`)
	for _, m := range meetings {
		instructor := esc(m.Instructor)
		if m.Instructor != "" && m.Instructor != "TBA" {
			instructor += ` (<abbr title="Primary">P</abbr>)<a href="mailto:someone@example.edu" target="Jane"><img src="/wtlgifs/web_email.gif" alt="E-mail"></a>`
		}
		fmt.Fprintf(
			&b,
			"<tr>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n<td class=\"dddefault\">%s</td>\n</tr>\n",
			esc(m.Type), esc(m.Time), esc(m.Days), esc(m.Where), esc(m.DateRange), esc(m.ScheduleType), instructor,
		)
	}
	b.WriteString("</table>\n")
	return b.String()
}

func renderSearch(sections []Section, truncated bool) string {
	var b strings.Builder
	b.WriteString(pageHeader)
	if truncated {
		b.WriteString(`<span class="warningtext">All results could not be displayed. Please narrow your search criteria.</span><br>` + "\n")
	}
	if len(sections) == 0 {
		b.WriteString(`<span class="warningtext">No classes were found that meet your search criteria</span>` + "\n")
	}
	b.WriteString(`<table class="datadisplaytable" summary="This layout table is used to present the sections found" width="100%">
<caption class="captiontext">Sections Found</caption>
`)
	for _, s := range sections {
		fmt.Fprintf(
			&b,
			"<tr>\n<th class=\"ddtitle\" scope=\"colgroup\"><a href=\"/pls/prod/bwckschd.p_disp_detail_sched?term_in=%s&amp;crn_in=%s\">%s</a></th>\n</tr>\n",
			esc(s.term), esc(s.CRN), esc(s.title()),
		)
		b.WriteString("<tr>\n<td class=\"dddefault\">\n")
		fmt.Fprintf(&b, "<span class=\"fieldlabeltext\">Associated Term: </span>%s\n<br>\n", esc(s.termName))
		b.WriteString("<span class=\"fieldlabeltext\">Levels: </span>Undergraduate\n<br>\n<br>\n")
		fmt.Fprintf(&b, "%s Credits\n<br>\n", esc(s.credits()))
		b.WriteString(`<a href="/pls/prod/bwckctlg.p_display_courses">View Catalog Entry</a>` + "\n<br>\n<br>\n")
		b.WriteString(renderMeetingTable(s.Meetings))
		b.WriteString("<br>\n<br>\n</td>\n</tr>\n")
	}
	b.WriteString("</table>\n")
	b.WriteString(pageFooter)
	return b.String()
}

func renderAvailabilityRow(label string, seats *Seats) string {
	if seats == nil {
		return ""
	}
	return fmt.Sprintf(
		"<tr>\n<th class=\"ddlabel\" scope=\"row\"><span class=\"fieldlabeltext\">%s</span></th>\n<td class=\"dddefault\">%d</td>\n<td class=\"dddefault\">%d</td>\n<td class=\"dddefault\">%d</td>\n</tr>\n",
		esc(label), seats.Capacity, seats.Actual, seats.Remaining,
	)
}

func renderDetail(s *Section) string {
	var b strings.Builder
	b.WriteString(pageHeader)
	if s == nil {
		b.WriteString(`<span class="errortext">No detailed class information found</span>` + "\n")
		b.WriteString(pageFooter)
		return b.String()
	}

	b.WriteString(`<table class="datadisplaytable" summary="This table is used to present the detailed class information." width="100%">` + "\n")
	fmt.Fprintf(&b, "<tr>\n<th class=\"ddlabel\" scope=\"row\">%s<br><br></th>\n</tr>\n", esc(s.title()))
	b.WriteString("<tr>\n<td class=\"dddefault\">\n")
	fmt.Fprintf(&b, "<span class=\"fieldlabeltext\">Associated Term: </span>%s\n<br>\n", esc(s.termName))
	b.WriteString("<span class=\"fieldlabeltext\">Registration Dates: </span>Nov 04, 2024 to Jan 27, 2025\n<br>\n")
	b.WriteString("<span class=\"fieldlabeltext\">Levels: </span>Undergraduate\n<br>\n")
	if s.DetailInstructor != "" {
		fmt.Fprintf(&b, "<span class=\"fieldlabeltext\">Instructors: </span>%s (P)\n<br>\n", esc(s.DetailInstructor))
	}
	b.WriteString("<br>\nMain Campus\n<br>\nLecture Schedule Type\n<br>\n")
	fmt.Fprintf(&b, "       %s Credits\n<br>\n<br>\n", esc(s.credits()))

	if s.Seats != nil || s.Waitlist != nil {
		b.WriteString(`<table class="datadisplaytable" summary="This layout table is used to present the seating numbers." width="50%">
<caption class="captiontext">Registration Availability</caption>
<tr>
<td class="dddead">&nbsp;</td>
<th class="ddheader" scope="col"><span class="fieldlabeltext">Capacity</span></th>
<th class="ddheader" scope="col"><span class="fieldlabeltext">Actual</span></th>
<th class="ddheader" scope="col"><span class="fieldlabeltext">Remaining</span></th>
</tr>
`)
		b.WriteString(renderAvailabilityRow("Seats", s.Seats))
		b.WriteString(renderAvailabilityRow("Waitlist Seats", s.Waitlist))
		b.WriteString("</table>\n<br>\n")
	}
	if s.DetailMeetings {
		b.WriteString(renderMeetingTable(s.Meetings))
	}
	b.WriteString("<br>\n</td>\n</tr>\n</table>\n")
	b.WriteString(pageFooter)
	return b.String()
}

func renderCatalogMissing() string {
	return pageHeader + "<p>No courses were found that meet your search criteria.</p>\n" + pageFooter
}

package banner

import (
	"coursewatch-backend/lib/htmlutil"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const fallbackDescriptionLimit = 4000

func parseHours(value string) *float64 {
	if value == "" {
		return nil
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &n
}

func catalogEntryFromLines(title string, lines []string) CatalogEntry {
	fields := catalogFields.parse(lines)

	entry := CatalogEntry{
		Title:         title,
		Description:   strings.Join(fields.lead, " "),
		Prerequisites: fields.get(field_prerequisites),
		Corequisites:  fields.get(field_corequisites),
		Restrictions:  fields.get(field_restrictions),
		ScheduleTypes: splitList(fields.get(field_schedule_types)),
		Attributes:    splitList(fields.get(field_attributes)),
		Department:    fields.get(field_department),
		Levels:        fields.get(field_levels),
		RawText:       strings.Join(lines, "\n"),
	}

	credits := Credits{
		CreditHours:  parseHours(fields.get(field_credits)),
		LectureHours: parseHours(fields.get(field_lecture_hours)),
		LabHours:     parseHours(fields.get(field_lab_hours)),
	}
	if credits.CreditHours != nil || credits.LectureHours != nil || credits.LabHours != nil {
		entry.Credits = &credits
	}
	return entry
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

// ExtractCatalog reads a course catalog page. Every title cell (td.nttitle)
// starts an entry whose body is the next td.ntdefault in document order, this
// covers both the listing layout (one small table per course, linked titles)
// and the single course layout (one unlinked title block). A page with no
// title cells yields a single fallback entry holding the page text.
func ExtractCatalog(doc *goquery.Document, subject, courseNumber string) []CatalogEntry {
	var entries []CatalogEntry

	type pending struct {
		title string
		body  *goquery.Selection
	}
	var current *pending
	flush := func() {
		if current == nil {
			return
		}
		var lines []string
		if current.body != nil {
			lines = htmlutil.Lines(current.body, htmlutil.LinesOptions{})
		}
		entries = append(entries, catalogEntryFromLines(current.title, lines))
		current = nil
	}

	doc.Find("td.nttitle, td.ntdefault").Each(func(_ int, cell *goquery.Selection) {
		if cell.HasClass("nttitle") {
			flush()
			title := htmlutil.SelectionText(cell.Find("a").First())
			if title == "" {
				title = htmlutil.SelectionText(cell)
			}
			current = &pending{title: title}
			return
		}
		if current != nil && current.body == nil {
			current.body = cell
		}
	})
	flush()

	if len(entries) > 0 {
		return entries
	}
	return []CatalogEntry{fallbackCatalogEntry(doc, subject, courseNumber)}
}

func fallbackCatalogEntry(doc *goquery.Document, subject, courseNumber string) CatalogEntry {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	lines := htmlutil.Lines(body, htmlutil.LinesOptions{})
	return CatalogEntry{
		Title:       fmt.Sprintf("%s %s (catalog fallback)", subject, courseNumber),
		Description: truncateRunes(htmlutil.Clean(strings.Join(lines, " ")), fallbackDescriptionLimit),
		RawText:     strings.Join(lines, "\n"),
		Fallback:    true,
	}
}

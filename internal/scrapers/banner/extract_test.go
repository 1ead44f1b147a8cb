package banner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadDocument(t testing.TB, name string) *goquery.Document {
	body, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := parseDocument(body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func float(n float64) *float64 {
	return &n
}

func TestExtractTerms(t *testing.T) {
	doc := loadDocument(t, "terms.html")
	require.Equal(t, []Term{
		{Code: "202610", Name: "Spring 2026"},
		{Code: "202590", Name: "Fall 2025 (View only)"},
	}, ExtractTerms(doc))
	require.Equal(t, []string{"ACC", "CSC"}, ExtractSubjects(doc))
}

func TestParseSectionTitle(t *testing.T) {
	cases := []struct {
		title    string
		expected sectionTitle
		ok       bool
	}{
		{
			title:    "Intro to Programming - 10001 - CSC 101 - 01",
			expected: sectionTitle{name: "Intro to Programming", crn: "10001", subject: "CSC", courseNumber: "101", section: "01"},
			ok:       true,
		},
		{
			title:    "Special Topics - Data - 10002 - CSC 490 - W1",
			expected: sectionTitle{name: "Special Topics - Data", crn: "10002", subject: "CSC", courseNumber: "490", section: "W1"},
			ok:       true,
		},
		{title: "Broken Title - 10003", ok: false},
	}
	for _, test := range cases {
		parsed, ok := parseSectionTitle(test.title)
		require.Equal(t, test.ok, ok, test.title)
		require.Equal(t, test.expected, parsed, test.title)
	}
}

func TestExtractListings(t *testing.T) {
	page := ExtractListings(loadDocument(t, "search_results.html"), "CSC")

	require.True(t, page.LimitHit)
	require.Len(t, page.Anomalies, 3)

	expected := []CourseListing{
		{
			CRN:          "10001",
			CourseName:   "Intro to Programming",
			SubjectCode:  "CSC",
			CourseNumber: "101",
			Section:      "01",
			Instructor:   "Jane Q. Doe",
			Schedule: []MeetingPattern{
				{
					Type:         "Class",
					Time:         "9:25 am - 10:45 am",
					Days:         "MW",
					Where:        "Whitman Hall 101",
					DateRange:    "Jan 21, 2025 - May 13, 2025",
					ScheduleType: "Lecture",
					Instructor:   "Jane Q. Doe",
				},
				{
					Type:         "Lab",
					Time:         "TBA",
					Days:         "",
					Where:        "TBA",
					DateRange:    "Jan 21, 2025 - May 13, 2025",
					ScheduleType: "Laboratory",
					Instructor:   "TBA",
				},
			},
		},
		{
			CRN:          "10002",
			CourseName:   "Special Topics - Data",
			SubjectCode:  "CSC",
			CourseNumber: "490",
			Section:      "W1",
			Instructor:   "N/A",
			Schedule:     []MeetingPattern{},
		},
	}
	if diff := cmp.Diff(expected, page.Listings); diff != "" {
		t.Fatalf("listings mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractListingsEmpty(t *testing.T) {
	doc, err := parseDocument([]byte(`<html><body><span class="warningtext">No classes were found that meet your search criteria</span></body></html>`))
	require.NoError(t, err)
	page := ExtractListings(doc, "CSC")
	require.False(t, page.LimitHit)
	require.NotNil(t, page.Listings)
	require.Empty(t, page.Listings)
}

func TestExtractDetail(t *testing.T) {
	detail, ok := ExtractDetail(loadDocument(t, "detail.html"), "10001")
	require.True(t, ok)

	expected := CourseDetail{
		CRN:            "10001",
		Title:          "Intro to Programming - 10001 - CSC 101 - 01",
		CourseName:     "Intro to Programming",
		SubjectCode:    "CSC",
		CourseNumber:   "101",
		Section:        "01",
		AssociatedTerm: "Spring 2025",
		Levels:         "Undergraduate",
		Credits:        "3.000",
		Seats:          &Availability{Capacity: "30", Actual: "32", Remaining: "-2"},
		Waitlist:       &Availability{Capacity: "10", Actual: "0", Remaining: "10"},
		Instructor:     "N/A",
		Schedule:       []MeetingPattern{},
	}
	if diff := cmp.Diff(expected, detail); diff != "" {
		t.Fatalf("detail mismatch (-want +got):\n%s", diff)
	}

	remaining, ok := detail.Seats.RemainingCount()
	require.True(t, ok)
	require.Equal(t, int64(-2), remaining)
}

func TestExtractDetailMissing(t *testing.T) {
	doc, err := parseDocument([]byte(`<html><body><span class="errortext">No detailed class information found</span></body></html>`))
	require.NoError(t, err)
	_, ok := ExtractDetail(doc, "99999")
	require.False(t, ok)
}

func TestRemainingCount(t *testing.T) {
	var missing *Availability
	_, ok := missing.RemainingCount()
	require.False(t, ok)

	n, ok := (&Availability{Remaining: " 12 "}).RemainingCount()
	require.True(t, ok)
	require.Equal(t, int64(12), n)

	_, ok = (&Availability{Remaining: "n/a"}).RemainingCount()
	require.False(t, ok)
}

func TestExtractCatalogListing(t *testing.T) {
	entries := ExtractCatalog(loadDocument(t, "catalog_listing.html"), "CSC", "101")
	require.Len(t, entries, 2)

	first := entries[0]
	first.RawText = ""
	expected := CatalogEntry{
		Title:         "CSC 101 - Intro to Programming",
		Description:   "An introduction to programming using a high level language. Topics include variables, control flow and functions.",
		Prerequisites: "Undergraduate level MTH 117 Minimum Grade of C or Undergraduate level MTH 129 Minimum Grade of C",
		Corequisites:  "CSC 101L",
		Credits:       &Credits{CreditHours: float(3), LectureHours: float(2), LabHours: float(2)},
		ScheduleTypes: []string{"Laboratory", "Lecture"},
		Attributes:    []string{"Gen Ed Technology", "Liberal Arts"},
		Department:    "Computer Science Department",
		Levels:        "Undergraduate",
	}
	if diff := cmp.Diff(expected, first); diff != "" {
		t.Fatalf("catalog entry mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, entries[0].RawText, "Computer Science Department\n")

	require.Equal(t, "CSC 101L - Intro to Programming Lab", entries[1].Title)
	require.Equal(t, "Laboratory companion.", entries[1].Description)
	require.Equal(t, float(1), entries[1].Credits.CreditHours)
	require.Nil(t, entries[1].Credits.LabHours)
}

func TestExtractCatalogSingle(t *testing.T) {
	entries := ExtractCatalog(loadDocument(t, "catalog_single.html"), "CSC", "205")
	require.Len(t, entries, 1)
	require.Equal(t, "CSC 205 - Data Structures", entries[0].Title)
	require.Equal(t, "Lists, stacks, queues, trees and graphs.", entries[0].Description)
	require.Equal(t, "CSC 101", entries[0].Prerequisites)
	require.Equal(t, float(1), entries[0].Credits.CreditHours)
	require.False(t, entries[0].Fallback)
}

func TestExtractCatalogFallback(t *testing.T) {
	entries := ExtractCatalog(loadDocument(t, "catalog_unknown.html"), "CSC", "999")
	require.Equal(t, []CatalogEntry{{
		Title:       "CSC 999 (catalog fallback)",
		Description: "The catalog is being updated. Please check back later.",
		RawText:     "The catalog is being updated.\nPlease check back later.",
		Fallback:    true,
	}}, entries)
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "héllo", truncateRunes("héllo", 10))
	require.Equal(t, "hé", truncateRunes("héllo", 2))
}

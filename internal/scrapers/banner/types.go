package banner

import (
	"regexp"
	"strconv"
)

type Term struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// MeetingPattern is one row of a section's meeting table, every field is
// kept exactly as displayed.
type MeetingPattern struct {
	Type         string `json:"type"`
	Time         string `json:"time"`
	Days         string `json:"days"`
	Where        string `json:"where"`
	DateRange    string `json:"dateRange"`
	ScheduleType string `json:"scheduleType"`
	Instructor   string `json:"instructor"`
}

// CourseListing is a section as it appears in course search results.
type CourseListing struct {
	CRN          string           `json:"crn"`
	CourseName   string           `json:"courseName"`
	SubjectCode  string           `json:"subjectCode"`
	CourseNumber string           `json:"courseNumber"`
	Section      string           `json:"section"`
	Instructor   string           `json:"instructor"`
	Schedule     []MeetingPattern `json:"schedule"`
	Catalog      *CatalogEntry    `json:"catalog,omitempty"`
}

// Availability is a row of the "Registration Availability" table.
// A nil *Availability means the row was not shown.
type Availability struct {
	Capacity  string `json:"capacity"`
	Actual    string `json:"actual"`
	Remaining string `json:"remaining"`
}

var notCount = regexp.MustCompile(`[^\d-]`)

// RemainingCount parses Remaining, ignoring anything that is not a digit or
// a minus sign (over-enrolled sections show negative counts).
func (a *Availability) RemainingCount() (int64, bool) {
	if a == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(notCount.ReplaceAllString(a.Remaining, ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

type CourseDetail struct {
	CRN            string           `json:"crn"`
	Title          string           `json:"title"`
	CourseName     string           `json:"courseName"`
	SubjectCode    string           `json:"subjectCode"`
	CourseNumber   string           `json:"courseNumber"`
	Section        string           `json:"section"`
	AssociatedTerm string           `json:"associatedTerm"`
	Levels         string           `json:"levels"`
	Credits        string           `json:"credits"`
	Seats          *Availability    `json:"seats"`
	Waitlist       *Availability    `json:"waitlist"`
	Instructor     string           `json:"instructor"`
	Schedule       []MeetingPattern `json:"schedule"`
}

type Credits struct {
	CreditHours  *float64 `json:"creditHours,omitempty"`
	LectureHours *float64 `json:"lectureHours,omitempty"`
	LabHours     *float64 `json:"labHours,omitempty"`
}

type CatalogEntry struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Prerequisites string   `json:"prerequisites,omitempty"`
	Corequisites  string   `json:"corequisites,omitempty"`
	Restrictions  string   `json:"restrictions,omitempty"`
	Credits       *Credits `json:"credits,omitempty"`
	ScheduleTypes []string `json:"scheduleTypes,omitempty"`
	Attributes    []string `json:"attributes,omitempty"`
	Department    string   `json:"department,omitempty"`
	Levels        string   `json:"levels,omitempty"`
	RawText       string   `json:"rawText"`
	// Fallback is set when the page layout was not recognized and the
	// entry only carries the page text.
	Fallback bool `json:"fallback,omitempty"`
}

type SearchResult struct {
	Listings []CourseListing
	// LimitHit is set when the site truncated the results.
	LimitHit bool
}

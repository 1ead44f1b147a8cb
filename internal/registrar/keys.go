package registrar

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	termRegex    = regexp.MustCompile(`^\d{6}$`)
	subjectRegex = regexp.MustCompile(`^[A-Z]{2,4}$`)
	crnRegex     = regexp.MustCompile(`^\d{5}$`)
	courseRegex  = regexp.MustCompile(`^[0-9A-Z]{1,6}$`)
)

func ValidTerm(term string) bool {
	return termRegex.MatchString(term)
}

// NormalizeSubject uppercases and trims a subject code, it does not validate it.
func NormalizeSubject(subject string) string {
	return strings.ToUpper(strings.TrimSpace(subject))
}

// ValidSubject expects an already normalized subject.
func ValidSubject(subject string) bool {
	return subjectRegex.MatchString(subject)
}

func ValidCRN(crn string) bool {
	return crnRegex.MatchString(crn)
}

// ValidCourseNumber accepts numbers like "101" and suffixed ones like "101L".
func ValidCourseNumber(number string) bool {
	return courseRegex.MatchString(number)
}

const TermsKey = "terms"

func SubjectCoursesKey(term, subject string) string {
	return fmt.Sprintf("courses_%s_%s", term, subject)
}

func TermCoursesKey(term string) string {
	return fmt.Sprintf("allcourses_%s", term)
}

func CatalogKey(term, subject, number string) string {
	return fmt.Sprintf("catalog:%s:%s:%s", term, subject, number)
}

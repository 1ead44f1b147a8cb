package registrar

import (
	"context"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/lib/textutil"
	"fmt"
	"strings"
)

// fuzzyThreshold is the Jaro-Winkler similarity above which a query is
// taken to be a misspelling of a course name or instructor.
const fuzzyThreshold = 0.9

func courseCode(listing banner.CourseListing) string {
	return listing.SubjectCode + " " + listing.CourseNumber
}

func fuzzyMatch(query, value string) bool {
	if textutil.Similarity(query, value) >= fuzzyThreshold {
		return true
	}
	for _, word := range strings.Fields(value) {
		if len(word) > 3 && textutil.Similarity(query, word) >= fuzzyThreshold {
			return true
		}
	}
	return false
}

// FilterCourses keeps the listings whose name, instructor, course code or
// CRN contains the query (ignoring case and spaces), or whose name or
// instructor is a close fuzzy match. An empty query keeps everything.
func FilterCourses(listings []banner.CourseListing, query string) []banner.CourseListing {
	query = strings.TrimSpace(query)
	if query == "" {
		return listings
	}

	matched := []banner.CourseListing{}
	for _, listing := range listings {
		fields := []string{listing.CourseName, listing.Instructor, courseCode(listing), listing.CRN}
		if matchesAny(query, fields) || fuzzyMatch(query, listing.CourseName) || fuzzyMatch(query, listing.Instructor) {
			matched = append(matched, listing)
		}
	}
	return matched
}

func matchesAny(query string, fields []string) bool {
	for _, field := range fields {
		if textutil.MatchName(field, []string{query}) {
			return true
		}
	}
	return false
}

func pickCatalogEntry(entries []banner.CatalogEntry, subject, number string) (banner.CatalogEntry, bool) {
	if len(entries) == 0 {
		return banner.CatalogEntry{}, false
	}
	prefix := subject + " " + number + " "
	for _, entry := range entries {
		if strings.HasPrefix(entry.Title+" ", prefix) {
			return entry, true
		}
	}
	return entries[0], true
}

// AttachCatalog embeds the catalog entry of each listing's course, fetching
// each distinct course once. Courses whose catalog cannot be fetched are
// left without one.
func (s *Service) AttachCatalog(ctx context.Context, term string, listings []banner.CourseListing) []banner.CourseListing {
	entries := map[string]*banner.CatalogEntry{}
	out := make([]banner.CourseListing, len(listings))
	for i, listing := range listings {
		out[i] = listing

		code := courseCode(listing)
		entry, seen := entries[code]
		if !seen {
			result, err := s.Catalog(ctx, term, listing.SubjectCode, listing.CourseNumber)
			if err != nil {
				s.tel.ReportWarning(report_service_attach, err, term, code)
			} else if picked, ok := pickCatalogEntry(result.Entries, listing.SubjectCode, listing.CourseNumber); ok {
				entry = &picked
			}
			entries[code] = entry
		}
		out[i].Catalog = entry
	}
	return out
}

func listingFromDetail(detail banner.CourseDetail) banner.CourseListing {
	return banner.CourseListing{
		CRN:          detail.CRN,
		CourseName:   detail.CourseName,
		SubjectCode:  detail.SubjectCode,
		CourseNumber: detail.CourseNumber,
		Section:      detail.Section,
		Instructor:   detail.Instructor,
		Schedule:     detail.Schedule,
	}
}

// FindCourses resolves sections by CRN, in the order given. Sections in the
// cached term listing are used as is, the rest are read from their detail page.
func (s *Service) FindCourses(ctx context.Context, term string, crns []string) ([]banner.CourseListing, error) {
	if !ValidTerm(term) {
		return nil, fmt.Errorf("%w: term %q", ErrInvalidArgument, term)
	}
	for _, crn := range crns {
		if !ValidCRN(crn) {
			return nil, fmt.Errorf("%w: crn %q", ErrInvalidArgument, crn)
		}
	}

	out := make([]banner.CourseListing, 0, len(crns))
	for _, crn := range crns {
		listing, ok := s.cachedListing(ctx, term, "", crn)
		if ok {
			out = append(out, listing)
			continue
		}
		detail, err := s.CourseDetail(ctx, term, crn)
		if err != nil {
			return nil, err
		}
		out = append(out, listingFromDetail(detail))
	}
	return out, nil
}

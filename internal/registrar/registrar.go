// Package registrar answers questions about the registration site, reading
// through the cache where the answer may be cached.
package registrar

import (
	"context"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/scrapers/banner"
	"coursewatch-backend/lib/textutil"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoTerms         = errors.New("no terms available")
	ErrNoSubjects      = errors.New("no subjects found for term")
	ErrNotFound        = errors.New("course not found")
)

const (
	report_service_terms        = "service.terms"
	report_service_term_courses = "service.term-courses"
	report_service_cache_write  = "service.cache-write"
	report_service_attach       = "service.attach-catalog"
)

// Scraper is the network side of the registration site.
//
// note: fault injection point
type Scraper interface {
	DiscoverTerms(ctx context.Context) ([]banner.Term, error)
	DiscoverSubjects(ctx context.Context, term string) ([]string, error)
	GetAllCoursesForSubject(ctx context.Context, term, subject string) ([]banner.CourseListing, error)
	GetCourseDetail(ctx context.Context, term, crn string) (banner.CourseDetail, bool, error)
	GetCatalog(ctx context.Context, term, subject, courseNumber string) ([]banner.CatalogEntry, error)
}

// Cache is a key to JSON document store where stale entries read as absent.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type Source string

const (
	SourceCache Source = "cache"
	SourceLive  Source = "live"
)

type TermSummary struct {
	TermName     string   `json:"termName"`
	TermCode     string   `json:"termCode"`
	SubjectCount int      `json:"subjectCount"`
	Subjects     []string `json:"subjects"`
}

type CourseResult struct {
	Count   int                    `json:"count"`
	Courses []banner.CourseListing `json:"courses"`
	Source  Source                 `json:"source"`
}

type CatalogResult struct {
	Count   int                   `json:"count"`
	Entries []banner.CatalogEntry `json:"entries"`
	Source  Source                `json:"source"`
}

type Options struct {
	// Concurrency bounds how many scrapes one call runs at once, defaults to 4.
	Concurrency int
}

type Service struct {
	scraper     Scraper
	cache       Cache
	tel         telemetry.API
	concurrency int
}

func NewService(scraper Scraper, cache Cache, tel telemetry.API, opts Options) *Service {
	assert.NotNil(scraper)
	assert.NotNil(cache)
	assert.NotNil(tel)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Service{
		scraper:     scraper,
		cache:       cache,
		tel:         telemetry.NewScopedAPI("registrar", tel),
		concurrency: concurrency,
	}
}

// store writes a cache entry, a failed write only costs a future scrape.
func (s *Service) store(ctx context.Context, key string, value any) {
	err := s.cache.Set(ctx, key, value)
	if err != nil {
		s.tel.ReportBroken(report_service_cache_write, err, key)
	}
}

// Terms lists every term with its subjects.
func (s *Service) Terms(ctx context.Context) ([]TermSummary, Source, error) {
	var cached []TermSummary
	hit, err := s.cache.Get(ctx, TermsKey, &cached)
	if err != nil {
		return nil, "", err
	}
	if hit {
		return cached, SourceCache, nil
	}

	terms, err := s.scraper.DiscoverTerms(ctx)
	if err != nil {
		return nil, "", err
	}
	if len(terms) == 0 {
		s.tel.ReportWarning(report_service_terms, ErrNoTerms)
		return nil, "", ErrNoTerms
	}

	summaries := make([]TermSummary, len(terms))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, term := range terms {
		group.Go(func() error {
			subjects, err := s.scraper.DiscoverSubjects(groupCtx, term.Code)
			if err != nil {
				return fmt.Errorf("subjects of %s: %w", term.Code, err)
			}
			if subjects == nil {
				subjects = []string{}
			}
			summaries[i] = TermSummary{
				TermName:     term.Name,
				TermCode:     term.Code,
				SubjectCount: len(subjects),
				Subjects:     subjects,
			}
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return nil, "", err
	}

	s.store(ctx, TermsKey, summaries)
	return summaries, SourceLive, nil
}

func (s *Service) Subjects(ctx context.Context, term string) ([]string, error) {
	if !ValidTerm(term) {
		return nil, fmt.Errorf("%w: term %q", ErrInvalidArgument, term)
	}
	return s.scraper.DiscoverSubjects(ctx, term)
}

func courseResult(courses []banner.CourseListing, source Source) CourseResult {
	if courses == nil {
		courses = []banner.CourseListing{}
	}
	return CourseResult{Count: len(courses), Courses: courses, Source: source}
}

// SubjectCourses lists every section of a subject.
func (s *Service) SubjectCourses(ctx context.Context, term, subject string) (CourseResult, error) {
	subject = NormalizeSubject(subject)
	if !ValidTerm(term) || !ValidSubject(subject) {
		return CourseResult{}, fmt.Errorf("%w: term %q subject %q", ErrInvalidArgument, term, subject)
	}

	key := SubjectCoursesKey(term, subject)
	var cached []banner.CourseListing
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return CourseResult{}, err
	}
	if hit {
		return courseResult(cached, SourceCache), nil
	}

	courses, err := s.scraper.GetAllCoursesForSubject(ctx, term, subject)
	if err != nil {
		return CourseResult{}, err
	}
	s.store(ctx, key, courses)
	return courseResult(courses, SourceLive), nil
}

// TermCourses lists every section of every subject in a term. Subjects are
// scraped concurrently and any failing subject fails the call.
func (s *Service) TermCourses(ctx context.Context, term string) (CourseResult, error) {
	if !ValidTerm(term) {
		return CourseResult{}, fmt.Errorf("%w: term %q", ErrInvalidArgument, term)
	}

	key := TermCoursesKey(term)
	var cached []banner.CourseListing
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return CourseResult{}, err
	}
	if hit {
		return courseResult(cached, SourceCache), nil
	}

	subjects, err := s.scraper.DiscoverSubjects(ctx, term)
	if err != nil {
		return CourseResult{}, err
	}
	if len(subjects) == 0 {
		s.tel.ReportWarning(report_service_term_courses, ErrNoSubjects, term)
		return CourseResult{}, fmt.Errorf("%w: %s", ErrNoSubjects, term)
	}

	perSubject := make([][]banner.CourseListing, len(subjects))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, subject := range subjects {
		group.Go(func() error {
			courses, err := s.scraper.GetAllCoursesForSubject(groupCtx, term, subject)
			if err != nil {
				return fmt.Errorf("courses of %s: %w", subject, err)
			}
			perSubject[i] = courses
			return nil
		})
	}
	err = group.Wait()
	if err != nil {
		return CourseResult{}, err
	}

	all := []banner.CourseListing{}
	for i, courses := range perSubject {
		s.store(ctx, SubjectCoursesKey(term, subjects[i]), courses)
		all = append(all, courses...)
	}
	s.store(ctx, key, all)
	return courseResult(all, SourceLive), nil
}

// cachedListing looks for a section among the cached listings of a term,
// it never scrapes.
func (s *Service) cachedListing(ctx context.Context, term, subject, crn string) (banner.CourseListing, bool) {
	keys := []string{TermCoursesKey(term)}
	if subject != "" {
		keys = append([]string{SubjectCoursesKey(term, subject)}, keys...)
	}
	for _, key := range keys {
		var listings []banner.CourseListing
		hit, err := s.cache.Get(ctx, key, &listings)
		if err != nil || !hit {
			continue
		}
		for _, listing := range listings {
			if listing.CRN == crn {
				return listing, true
			}
		}
	}
	return banner.CourseListing{}, false
}

// CourseDetail always scrapes the detail page since seat counts change by
// the minute. A placeholder instructor or an empty schedule is filled in
// from the cached listing of the same section when there is one.
func (s *Service) CourseDetail(ctx context.Context, term, crn string) (banner.CourseDetail, error) {
	if !ValidTerm(term) || !ValidCRN(crn) {
		return banner.CourseDetail{}, fmt.Errorf("%w: term %q crn %q", ErrInvalidArgument, term, crn)
	}

	detail, found, err := s.scraper.GetCourseDetail(ctx, term, crn)
	if err != nil {
		return banner.CourseDetail{}, err
	}
	if !found {
		return banner.CourseDetail{}, fmt.Errorf("%w: %s in %s", ErrNotFound, crn, term)
	}

	listing, ok := s.cachedListing(ctx, term, detail.SubjectCode, crn)
	if !ok {
		return detail, nil
	}
	if textutil.IsPlaceholderName(detail.Instructor) && !textutil.IsPlaceholderName(listing.Instructor) {
		detail.Instructor = listing.Instructor
	}
	if len(detail.Schedule) == 0 && len(listing.Schedule) > 0 {
		detail.Schedule = listing.Schedule
	}
	return detail, nil
}

// Catalog returns the catalog entries of a course. Scraped entries are
// always cached, fallback entries included.
func (s *Service) Catalog(ctx context.Context, term, subject, courseNumber string) (CatalogResult, error) {
	subject = NormalizeSubject(subject)
	courseNumber = strings.ToUpper(strings.TrimSpace(courseNumber))
	if !ValidTerm(term) || !ValidSubject(subject) || !ValidCourseNumber(courseNumber) {
		return CatalogResult{}, fmt.Errorf("%w: term %q subject %q course %q", ErrInvalidArgument, term, subject, courseNumber)
	}

	key := CatalogKey(term, subject, courseNumber)
	var cached []banner.CatalogEntry
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return CatalogResult{}, err
	}
	if hit {
		return CatalogResult{Count: len(cached), Entries: cached, Source: SourceCache}, nil
	}

	entries, err := s.scraper.GetCatalog(ctx, term, subject, courseNumber)
	if err != nil {
		return CatalogResult{}, err
	}
	s.store(ctx, key, entries)
	return CatalogResult{Count: len(entries), Entries: entries, Source: SourceLive}, nil
}

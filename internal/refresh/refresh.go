// Package refresh rescrapes every subject of every term into the cache,
// ignoring whatever is cached already.
package refresh

import (
	"context"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/scrapers/banner"
	"fmt"
)

const (
	report_job_terms     = "job.terms"
	report_job_term      = "job.term"
	report_job_subject   = "job.subject"
	report_job_aggregate = "job.aggregate"
	report_job_courses   = "job.courses"
)

// Scraper is the part of the registration site a refresh needs.
type Scraper interface {
	DiscoverTerms(ctx context.Context) ([]banner.Term, error)
	DiscoverSubjects(ctx context.Context, term string) ([]string, error)
	GetAllCoursesForSubject(ctx context.Context, term, subject string) ([]banner.CourseListing, error)
}

type Job struct {
	scraper Scraper
	cache   registrar.Cache
	tel     telemetry.API
}

func NewJob(scraper Scraper, cache registrar.Cache, tel telemetry.API) *Job {
	assert.NotNil(scraper)
	assert.NotNil(cache)
	assert.NotNil(tel)
	return &Job{
		scraper: scraper,
		cache:   cache,
		tel:     telemetry.NewScopedAPI("refresh", tel),
	}
}

type Report struct {
	Terms          int `json:"terms"`
	Subjects       int `json:"subjects"`
	Courses        int `json:"courses"`
	FailedTerms    int `json:"failedTerms"`
	FailedSubjects int `json:"failedSubjects"`
}

// Run refreshes terms one after another and the subjects of a term one
// after another. A failing subject or term is reported and skipped.
func (j *Job) Run(ctx context.Context) Report {
	var report Report

	terms, err := j.scraper.DiscoverTerms(ctx)
	if err != nil {
		j.tel.ReportBroken(report_job_terms, err)
		return report
	}
	report.Terms = len(terms)

	report.FailedTerms = chrono.Each(ctx, j.tel, report_job_term, terms, func(ctx context.Context, term banner.Term) error {
		subjects, err := j.scraper.DiscoverSubjects(ctx, term.Code)
		if err != nil {
			return fmt.Errorf("subjects of %s: %w", term.Code, err)
		}
		report.Subjects += len(subjects)

		report.FailedSubjects += chrono.Each(ctx, j.tel, report_job_subject, subjects, func(ctx context.Context, subject string) error {
			courses, err := j.scraper.GetAllCoursesForSubject(ctx, term.Code, subject)
			if err != nil {
				return fmt.Errorf("courses of %s %s: %w", term.Code, subject, err)
			}
			if courses == nil {
				courses = []banner.CourseListing{}
			}
			err = j.cache.Set(ctx, registrar.SubjectCoursesKey(term.Code, subject), courses)
			if err != nil {
				return err
			}
			report.Courses += len(courses)
			return nil
		})

		return j.aggregate(ctx, term.Code, subjects)
	})

	j.tel.ReportCount(report_job_courses, int64(report.Courses))
	return report
}

// aggregate rebuilds the whole-term entry from the per-subject entries,
// subjects without a fresh entry are left out.
func (j *Job) aggregate(ctx context.Context, term string, subjects []string) error {
	all := []banner.CourseListing{}
	for _, subject := range subjects {
		var courses []banner.CourseListing
		hit, err := j.cache.Get(ctx, registrar.SubjectCoursesKey(term, subject), &courses)
		if err != nil {
			j.tel.ReportWarning(report_job_aggregate, err, term, subject)
			continue
		}
		if hit {
			all = append(all, courses...)
		}
	}
	err := j.cache.Set(ctx, registrar.TermCoursesKey(term), all)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", term, err)
	}
	return nil
}

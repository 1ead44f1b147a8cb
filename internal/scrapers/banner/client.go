package banner

import (
	"context"
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/lib/restyutil"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	report_client_discover_terms    = "client.discover-terms"
	report_client_discover_subjects = "client.discover-subjects"
	report_client_search_courses    = "client.search-courses"
	report_client_all_courses       = "client.get-all-courses-for-subject"
	report_client_course_detail     = "client.get-course-detail"
	report_client_catalog           = "client.get-catalog"
)

const (
	path_schedule_landing = "/bwckschd.p_disp_dyn_sched"
	path_term_select      = "/bwckgens.p_proc_term_date"
	path_course_search    = "/bwckschd.p_get_crse_unsec"
	path_course_detail    = "/bwckschd.p_disp_detail_sched"
	path_catalog          = "/bwckctlg.p_display_courses"
)

const DefaultBaseUrl = "https://oasis.farmingdale.edu/pls/prod"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// subdivisionPrefixes are the course number filters used when an unfiltered
// search is truncated, course numbers never start with 0.
var subdivisionPrefixes = []string{"1%", "2%", "3%", "4%", "5%", "6%", "7%", "8%", "9%"}

var tracer = otel.Tracer("coursewatch.scrapers.banner")

type Options struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout bounds every request, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond is shared by all sessions, 0 means unlimited.
	RequestsPerSecond float64
	// CloudflareBypass wraps the transport with browser-like TLS settings.
	CloudflareBypass bool
	UserAgent        string
	// Output receives a full dump of every http exchange when it is not nil.
	Output restyutil.MessageOutput
}

// Client scrapes a Banner self-service schedule. Every public method opens
// its own Session.
type Client struct {
	baseUrl   *url.URL
	transport http.RoundTripper
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	output    restyutil.MessageOutput
	tel       telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsed, err := url.Parse(strings.TrimSuffix(baseUrl, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseUrl)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if opts.CloudflareBypass {
		transport = cloudflarebp.AddCloudFlareByPass(transport)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		baseUrl:   parsed,
		transport: transport,
		limiter:   limiter,
		timeout:   timeout,
		userAgent: userAgent,
		output:    opts.Output,
		tel:       telemetry.NewScopedAPI("banner_scraper", tel),
	}, nil
}

func (c *Client) fail(span trace.Span, id string, err error, params ...any) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.tel.ReportBroken(id, append([]any{err}, params...)...)
	return err
}

func (c *Client) DiscoverTerms(ctx context.Context) ([]Term, error) {
	ctx, span := tracer.Start(ctx, "client:DiscoverTerms")
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return nil, c.fail(span, report_client_discover_terms, err)
	}
	doc, err := parseDocument(sess.Landing())
	if err != nil {
		return nil, c.fail(span, report_client_discover_terms, err)
	}

	if doc.Find(`select[name="p_term"]`).Length() == 0 {
		return nil, c.fail(span, report_client_discover_terms, fmt.Errorf("%w: no term selector", ErrPageShape))
	}

	terms := ExtractTerms(doc)
	span.SetAttributes(attribute.Int("terms", len(terms)))
	return terms, nil
}

func (c *Client) DiscoverSubjects(ctx context.Context, term string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:DiscoverSubjects", trace.WithAttributes(
		attribute.String("term", term),
	))
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return nil, c.fail(span, report_client_discover_subjects, err, term)
	}

	form := url.Values{}
	form.Add("p_calling_proc", "bwckschd.p_disp_dyn_sched")
	form.Add("p_term", term)
	body, err := sess.PostForm(ctx, path_term_select, form)
	if err != nil {
		return nil, c.fail(span, report_client_discover_subjects, err, term)
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, c.fail(span, report_client_discover_subjects, err, term)
	}

	if doc.Find("#subj_id").Length() == 0 {
		return nil, c.fail(span, report_client_discover_subjects, fmt.Errorf("%w: no subject selector", ErrPageShape), term)
	}

	subjects := ExtractSubjects(doc)
	span.SetAttributes(attribute.Int("subjects", len(subjects)))
	return subjects, nil
}

// searchForm builds the course search form. The site expects every multi
// valued field to start with a "dummy" entry.
func searchForm(term, subject, courseNumber string) url.Values {
	form := url.Values{}
	form.Add("term_in", term)
	for _, field := range []string{
		"sel_subj", "sel_day", "sel_schd", "sel_insm", "sel_camp",
		"sel_levl", "sel_sess", "sel_instr", "sel_ptrm", "sel_attr",
	} {
		form.Add(field, "dummy")
	}
	form.Add("sel_subj", subject)
	form.Add("sel_crse", courseNumber)
	form.Add("sel_title", "")
	form.Add("sel_insm", "%")
	form.Add("sel_from_cred", "")
	form.Add("sel_to_cred", "")
	form.Add("sel_ptrm", "%")
	form.Add("sel_instr", "%")
	form.Add("sel_attr", "%")
	form.Add("begin_hh", "0")
	form.Add("begin_mi", "0")
	form.Add("begin_ap", "a")
	form.Add("end_hh", "0")
	form.Add("end_mi", "0")
	form.Add("end_ap", "a")
	return form
}

func (c *Client) search(ctx context.Context, sess *Session, term, subject, courseNumber string) (SearchResult, error) {
	body, err := sess.PostForm(ctx, path_course_search, searchForm(term, subject, courseNumber))
	if err != nil {
		return SearchResult{}, err
	}
	doc, err := parseDocument(body)
	if err != nil {
		return SearchResult{}, err
	}

	if !isSearchPage(doc) {
		return SearchResult{}, fmt.Errorf("%w: search %s %s", ErrPageShape, subject, courseNumber)
	}

	page := ExtractListings(doc, subject)
	for _, anomaly := range page.Anomalies {
		c.tel.ReportWarning(report_client_search_courses, anomaly, term, subject, courseNumber)
	}
	return SearchResult{Listings: page.Listings, LimitHit: page.LimitHit}, nil
}

func isSearchPage(doc *goquery.Document) bool {
	if doc.Find("table.datadisplaytable").Length() > 0 {
		return true
	}
	return strings.Contains(doc.Text(), noResultsNotice)
}

// SearchCourses runs a single course search, courseNumber may be empty or
// a pattern such as "1%".
func (c *Client) SearchCourses(ctx context.Context, term, subject, courseNumber string) (SearchResult, error) {
	ctx, span := tracer.Start(ctx, "client:SearchCourses", trace.WithAttributes(
		attribute.String("term", term),
		attribute.String("subject", subject),
		attribute.String("course_number", courseNumber),
	))
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return SearchResult{}, c.fail(span, report_client_search_courses, err, term, subject)
	}
	result, err := c.search(ctx, sess, term, subject, courseNumber)
	if err != nil {
		return SearchResult{}, c.fail(span, report_client_search_courses, err, term, subject)
	}
	return result, nil
}

// GetAllCoursesForSubject returns every section of a subject. When the
// unfiltered search is truncated, the truncated page is discarded and the
// subject is searched again as nine partitions by the first digit of the
// course number, run concurrently. Partitions are not subdivided further.
func (c *Client) GetAllCoursesForSubject(ctx context.Context, term, subject string) ([]CourseListing, error) {
	ctx, span := tracer.Start(ctx, "client:GetAllCoursesForSubject", trace.WithAttributes(
		attribute.String("term", term),
		attribute.String("subject", subject),
	))
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return nil, c.fail(span, report_client_all_courses, err, term, subject)
	}

	first, err := c.search(ctx, sess, term, subject, "")
	if err != nil {
		return nil, c.fail(span, report_client_all_courses, err, term, subject)
	}
	if !first.LimitHit {
		return first.Listings, nil
	}
	span.AddEvent("limit hit, subdividing")

	results := make([][]CourseListing, len(subdivisionPrefixes))
	errs := make([]error, len(subdivisionPrefixes))
	wg := sync.WaitGroup{}
	for i, prefix := range subdivisionPrefixes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			partition, err := c.search(ctx, sess, term, subject, prefix)
			if err != nil {
				errs[i] = fmt.Errorf("partition %s: %w", prefix, err)
				return
			}
			if partition.LimitHit {
				c.tel.ReportWarning(report_client_all_courses, "partition still truncated", term, subject, prefix)
			}
			results[i] = partition.Listings
		}()
	}
	wg.Wait()

	err = errors.Join(errs...)
	if err != nil {
		return nil, c.fail(span, report_client_all_courses, err, term, subject)
	}

	listings := []CourseListing{}
	seen := map[string]bool{}
	for _, partition := range results {
		for _, listing := range partition {
			if seen[listing.CRN] {
				continue
			}
			seen[listing.CRN] = true
			listings = append(listings, listing)
		}
	}
	span.SetAttributes(attribute.Int("listings", len(listings)))
	return listings, nil
}

// GetCourseDetail fetches a section's detail page, false means the section
// does not exist.
func (c *Client) GetCourseDetail(ctx context.Context, term, crn string) (CourseDetail, bool, error) {
	ctx, span := tracer.Start(ctx, "client:GetCourseDetail", trace.WithAttributes(
		attribute.String("term", term),
		attribute.String("crn", crn),
	))
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return CourseDetail{}, false, c.fail(span, report_client_course_detail, err, term, crn)
	}

	query := url.Values{}
	query.Set("term_in", term)
	query.Set("crn_in", crn)
	body, err := sess.Get(ctx, path_course_detail, query)
	if err != nil {
		return CourseDetail{}, false, c.fail(span, report_client_course_detail, err, term, crn)
	}
	doc, err := parseDocument(body)
	if err != nil {
		return CourseDetail{}, false, c.fail(span, report_client_course_detail, err, term, crn)
	}

	detail, found := ExtractDetail(doc, crn)
	span.SetAttributes(attribute.Bool("found", found))
	return detail, found, nil
}

func catalogQuery(term, subject, courseNumber string) url.Values {
	query := url.Values{}
	query.Set("term_in", term)
	query.Set("one_subj", subject)
	query.Set("sel_crse_strt", courseNumber)
	query.Set("sel_crse_end", courseNumber)
	for _, field := range []string{
		"sel_subj", "sel_levl", "sel_schd", "sel_coll", "sel_divs", "sel_dept", "sel_attr",
	} {
		query.Set(field, "")
	}
	return query
}

// GetCatalog fetches the catalog entries of one course. It always returns
// at least one entry, a fallback entry when the layout is not recognized.
func (c *Client) GetCatalog(ctx context.Context, term, subject, courseNumber string) ([]CatalogEntry, error) {
	ctx, span := tracer.Start(ctx, "client:GetCatalog", trace.WithAttributes(
		attribute.String("term", term),
		attribute.String("subject", subject),
		attribute.String("course_number", courseNumber),
	))
	defer span.End()

	sess, err := c.NewSession(ctx)
	if err != nil {
		return nil, c.fail(span, report_client_catalog, err, term, subject, courseNumber)
	}
	body, err := sess.Get(ctx, path_catalog, catalogQuery(term, subject, courseNumber))
	if err != nil {
		return nil, c.fail(span, report_client_catalog, err, term, subject, courseNumber)
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, c.fail(span, report_client_catalog, err, term, subject, courseNumber)
	}

	entries := ExtractCatalog(doc, subject, courseNumber)
	if len(entries) == 1 && entries[0].Fallback {
		c.tel.ReportWarning(report_client_catalog, "unrecognized catalog layout", term, subject, courseNumber)
	}
	return entries, nil
}

package banner

import (
	"bytes"
	"context"
	"coursewatch-backend/internal/components/telemetry"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	random "github.com/mazen160/go-random"
	"golang.org/x/net/publicsuffix"
)

// ErrFetchFailed wraps every network error and non-2xx response.
var ErrFetchFailed = errors.New("fetch failed")

// ErrPageShape means a page was fetched but is missing the elements every
// variant of it carries, usually because the site changed.
var ErrPageShape = errors.New("unexpected page shape")

const report_session_prime = "session.prime"

// Session is one scrape's view of the site: its own cookie jar, primed by a
// GET of the schedule landing page. Sessions share the client's transport
// and rate limit but never cookies.
type Session struct {
	Id string

	http    *resty.Client
	landing []byte
	tel     telemetry.API
}

// NewSession allocates a fresh cookie jar and performs the priming request.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	id, err := random.String(8)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(c.baseUrl.String())
	httpClient.SetTransport(c.transport)
	httpClient.SetCookieJar(jar)
	httpClient.SetHeader("user-agent", c.userAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.baseUrl.Hostname()))
	httpClient.SetTimeout(c.timeout)
	if c.limiter != nil {
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(httpClient, c.tel, c.output, id)

	s := &Session{
		Id:   id,
		http: httpClient,
		tel:  c.tel,
	}
	s.landing, err = s.Get(ctx, path_schedule_landing, nil)
	if err != nil {
		c.tel.ReportWarning(report_session_prime, err, id)
		return nil, err
	}
	return s, nil
}

func (s *Session) check(method, path string, res *resty.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrFetchFailed, method, path, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: %s %s: status %s", ErrFetchFailed, method, path, res.Status())
	}
	return res.Body(), nil
}

// Get fetches path (relative to the base url) and returns the raw body.
func (s *Session) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req := s.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(path)
	return s.check("GET", path, res, err)
}

// PostForm submits an urlencoded form, keys may repeat.
func (s *Session) PostForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	res, err := s.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(path)
	return s.check("POST", path, res, err)
}

// Landing returns the body of the priming request.
func (s *Session) Landing() []byte {
	return s.landing
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

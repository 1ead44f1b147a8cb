// Package bannertest is an in-memory registration site for tests. It serves
// the handful of Banner self-service pages the scraper reads, renders them
// from plain Go values and records every request it receives.
package bannertest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
)

const cookieName = "SESSID"

type Term struct {
	Code string
	Name string
}

type Subject struct {
	Code string
	Name string
}

type Meeting struct {
	Type         string
	Time         string
	Days         string
	Where        string
	DateRange    string
	ScheduleType string
	Instructor   string
}

type Seats struct {
	Capacity  int
	Actual    int
	Remaining int
}

type Section struct {
	CRN      string
	Name     string
	Subject  string
	Number   string
	Section  string
	Credits  string
	Meetings []Meeting

	// Seats and Waitlist are shown on the detail page when not nil.
	Seats    *Seats
	Waitlist *Seats
	// DetailInstructor adds an "Instructors:" line to the detail page.
	DetailInstructor string
	// DetailMeetings repeats the meeting table on the detail page.
	DetailMeetings bool

	term     string
	termName string
}

func (s Section) credits() string {
	if s.Credits == "" {
		return "3.000"
	}
	return s.Credits
}

// Request is a request received by the server.
type Request struct {
	Method string
	Path   string
	// Form holds the query for GET requests and the body for POST requests.
	Form   url.Values
	Cookie string
}

type Server struct {
	*httptest.Server

	mutex    sync.Mutex
	terms    []Term
	subjects map[string][]Subject
	sections map[string][]Section
	catalog  map[string]string
	failures map[string]int
	requests []Request
	sessions int

	// Limit is how many sections a search page shows before it is
	// truncated, 0 means no limit.
	Limit int
}

func NewServer() *Server {
	s := &Server{
		subjects: map[string][]Subject{},
		sections: map[string][]Section{},
		catalog:  map[string]string{},
		failures: map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/pls/prod/bwckschd.p_disp_dyn_sched", s.handleLanding)
	mux.HandleFunc("/pls/prod/bwckgens.p_proc_term_date", s.session(s.handleSubjects))
	mux.HandleFunc("/pls/prod/bwckschd.p_get_crse_unsec", s.session(s.handleSearch))
	mux.HandleFunc("/pls/prod/bwckschd.p_disp_detail_sched", s.session(s.handleDetail))
	mux.HandleFunc("/pls/prod/bwckctlg.p_display_courses", s.session(s.handleCatalog))
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseUrl is the url to give to the scraper.
func (s *Server) BaseUrl() string {
	return s.URL + "/pls/prod"
}

func (s *Server) AddTerm(code, name string, subjects ...Subject) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.terms = append(s.terms, Term{Code: code, Name: name})
	s.subjects[code] = append(s.subjects[code], subjects...)
}

func (s *Server) termName(code string) string {
	for _, t := range s.terms {
		if t.Code == code {
			return t.Name
		}
	}
	return code
}

func (s *Server) AddSections(term string, sections ...Section) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, section := range sections {
		section.term = term
		section.termName = s.termName(term)
		s.sections[term] = append(s.sections[term], section)
	}
}

// UpdateSection edits a section in place.
func (s *Server) UpdateSection(term, crn string, update func(*Section)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := range s.sections[term] {
		if s.sections[term][i].CRN == crn {
			update(&s.sections[term][i])
		}
	}
}

// SetCatalogPage sets the raw html served for a course's catalog page.
func (s *Server) SetCatalogPage(term, subject, number, page string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.catalog[catalogKey(term, subject, number)] = page
}

// FailNext makes the next `count` requests whose path ends with `path`
// (and, for searches, whose course number filter equals `filter`) fail with
// a 500. Use an empty filter for non-search pages.
func (s *Server) FailNext(path, filter string, count int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[path+"|"+filter] += count
}

// Requests returns every recorded request whose path ends with `path`.
func (s *Server) Requests(path string) []Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	var out []Request
	for _, r := range s.requests {
		if strings.HasSuffix(r.Path, path) {
			out = append(out, r)
		}
	}
	return out
}

// RequestCount is the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.requests)
}

func catalogKey(term, subject, number string) string {
	return fmt.Sprintf("%s/%s/%s", term, subject, number)
}

func (s *Server) record(r *http.Request) Request {
	err := r.ParseForm()
	if err != nil {
		panic(err)
	}
	cookie := ""
	if c, err := r.Cookie(cookieName); err == nil {
		cookie = c.Value
	}
	req := Request{Method: r.Method, Path: r.URL.Path, Form: r.Form, Cookie: cookie}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.requests = append(s.requests, req)
	return req
}

func (s *Server) shouldFail(path, filter string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	key := path + "|" + filter
	if s.failures[key] > 0 {
		s.failures[key]--
		return true
	}
	return false
}

func writePage(w http.ResponseWriter, page string) {
	w.Header().Set("content-type", "text/html; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mutex.Lock()
	s.sessions++
	id := s.sessions
	terms := append([]Term(nil), s.terms...)
	s.mutex.Unlock()

	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: fmt.Sprintf("session-%d", id), Path: "/"})
	writePage(w, renderTerms(terms))
}

// session rejects requests that were not preceded by the landing page.
func (s *Server) session(next func(w http.ResponseWriter, req Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := s.record(r)
		if req.Cookie == "" {
			http.Error(w, "session expired", http.StatusForbidden)
			return
		}
		next(w, req)
	}
}

func (s *Server) handleSubjects(w http.ResponseWriter, req Request) {
	if s.shouldFail("bwckgens.p_proc_term_date", "") {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.mutex.Lock()
	subjects := append([]Subject(nil), s.subjects[req.Form.Get("p_term")]...)
	s.mutex.Unlock()
	writePage(w, renderSubjects(subjects))
}

// lastReal returns the last value of a field that is not the "dummy" placeholder.
func lastReal(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != "dummy" {
			return values[i]
		}
	}
	return ""
}

func matchesCourseNumber(number, filter string) bool {
	if filter == "" || filter == "%" {
		return true
	}
	if strings.HasSuffix(filter, "%") {
		return strings.HasPrefix(number, strings.TrimSuffix(filter, "%"))
	}
	return number == filter
}

func (s *Server) handleSearch(w http.ResponseWriter, req Request) {
	term := req.Form.Get("term_in")
	subject := lastReal(req.Form["sel_subj"])
	filter := lastReal(req.Form["sel_crse"])
	if s.shouldFail("bwckschd.p_get_crse_unsec", filter) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.mutex.Lock()
	var matched []Section
	for _, section := range s.sections[term] {
		if section.Subject == subject && matchesCourseNumber(section.Number, filter) {
			matched = append(matched, section)
		}
	}
	limit := s.Limit
	s.mutex.Unlock()

	truncated := limit > 0 && len(matched) > limit
	if truncated {
		matched = matched[:limit]
	}
	writePage(w, renderSearch(matched, truncated))
}

func (s *Server) handleDetail(w http.ResponseWriter, req Request) {
	if s.shouldFail("bwckschd.p_disp_detail_sched", "") {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	term := req.Form.Get("term_in")
	crn := req.Form.Get("crn_in")

	s.mutex.Lock()
	var found *Section
	for _, section := range s.sections[term] {
		if section.CRN == crn {
			copied := section
			found = &copied
			break
		}
	}
	s.mutex.Unlock()

	writePage(w, renderDetail(found))
}

func (s *Server) handleCatalog(w http.ResponseWriter, req Request) {
	if s.shouldFail("bwckctlg.p_display_courses", "") {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	key := catalogKey(req.Form.Get("term_in"), req.Form.Get("one_subj"), req.Form.Get("sel_crse_strt"))

	s.mutex.Lock()
	page, ok := s.catalog[key]
	s.mutex.Unlock()
	if !ok {
		page = renderCatalogMissing()
	}
	writePage(w, page)
}

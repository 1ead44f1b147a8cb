// Package httpapi is the JSON api the schedule builder talks to.
package httpapi

import (
	"coursewatch-backend/internal/components/assert"
	"coursewatch-backend/internal/components/chrono"
	"coursewatch-backend/internal/components/telemetry"
	"coursewatch-backend/internal/registrar"
	"coursewatch-backend/internal/schedule"
	"coursewatch-backend/internal/watchlist"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
)

const report_api_request = "api.request"

type Options struct {
	// StaticDir is served at / when set.
	StaticDir string
	// AllowedOrigins defaults to every origin.
	AllowedOrigins []string
}

type Server struct {
	registrar *registrar.Service
	watchlist *watchlist.Poller
	clock     chrono.TimeAPI
	tel       telemetry.API
	opts      Options
}

func NewServer(reg *registrar.Service, watch *watchlist.Poller, clock chrono.TimeAPI, tel telemetry.API, opts Options) *Server {
	assert.NotNil(reg)
	assert.NotNil(watch)
	assert.NotNil(clock)
	assert.NotNil(tel)
	return &Server{
		registrar: reg,
		watchlist: watch,
		clock:     clock,
		tel:       telemetry.NewScopedAPI("httpapi", tel),
		opts:      opts,
	}
}

// Handler returns every route wrapped with cors and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /terms", s.terms)
	mux.HandleFunc("GET /courses/{term}", s.termCourses)
	mux.HandleFunc("GET /courses/{term}/{subject}", s.subjectCourses)
	mux.HandleFunc("GET /course-details/{term}/{crn}", s.courseDetail)
	mux.HandleFunc("GET /catalog/{term}/{subject}/{course}", s.catalog)
	mux.HandleFunc("GET /watch", s.listWatched)
	mux.HandleFunc("POST /watch/{term}/{crn}", s.watch)
	mux.HandleFunc("DELETE /watch/{term}/{crn}", s.unwatch)
	mux.HandleFunc("GET /calendar/{term}", s.calendar)
	if s.opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	}

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	withCors := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}).Handler(mux)
	return logRequests(withCors)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.DebugContext(
			r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Warn("write response", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps an error to a status code and a short message, `failure`
// is the message of an unexpected (upstream) failure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case errors.Is(err, registrar.ErrInvalidArgument):
		writeJson(w, http.StatusBadRequest, errorBody{Error: "Invalid parameters."})
	case errors.Is(err, registrar.ErrNoTerms):
		writeJson(w, http.StatusNotFound, errorBody{Error: "No terms available."})
	case errors.Is(err, registrar.ErrNoSubjects):
		writeJson(w, http.StatusNotFound, errorBody{Error: "No subjects found for this term."})
	case errors.Is(err, registrar.ErrNotFound), errors.Is(err, watchlist.ErrCourseNotFound):
		writeJson(w, http.StatusNotFound, errorBody{Error: "Course not found."})
	default:
		s.tel.ReportBroken(report_api_request, err, r.Method, r.URL.Path)
		writeJson(w, http.StatusInternalServerError, errorBody{Error: failure})
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) terms(w http.ResponseWriter, r *http.Request) {
	terms, source, err := s.registrar.Terms(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch terms.")
		return
	}
	w.Header().Set("x-source", string(source))
	writeJson(w, http.StatusOK, terms)
}

func (s *Server) termCourses(w http.ResponseWriter, r *http.Request) {
	result, err := s.registrar.TermCourses(r.Context(), r.PathValue("term"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch all courses.")
		return
	}
	writeJson(w, http.StatusOK, result)
}

func (s *Server) subjectCourses(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	result, err := s.registrar.SubjectCourses(r.Context(), term, r.PathValue("subject"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch courses.")
		return
	}

	query := r.URL.Query()
	if q := strings.TrimSpace(query.Get("q")); q != "" {
		result.Courses = registrar.FilterCourses(result.Courses, q)
		result.Count = len(result.Courses)
	}
	if embed, _ := strconv.ParseBool(query.Get("catalog")); embed {
		result.Courses = s.registrar.AttachCatalog(r.Context(), term, result.Courses)
	}
	writeJson(w, http.StatusOK, result)
}

func (s *Server) courseDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.registrar.CourseDetail(r.Context(), r.PathValue("term"), r.PathValue("crn"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch course details.")
		return
	}
	writeJson(w, http.StatusOK, detail)
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	result, err := s.registrar.Catalog(r.Context(), r.PathValue("term"), r.PathValue("subject"), r.PathValue("course"))
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch catalog entry.")
		return
	}
	writeJson(w, http.StatusOK, result)
}

type watchedList struct {
	Count   int                 `json:"count"`
	Watched []watchlist.Watched `json:"watched"`
}

func (s *Server) listWatched(w http.ResponseWriter, r *http.Request) {
	watched, err := s.watchlist.List(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to read the watch list.")
		return
	}
	if watched == nil {
		watched = []watchlist.Watched{}
	}
	writeJson(w, http.StatusOK, watchedList{Count: len(watched), Watched: watched})
}

type watchResponse struct {
	Message string             `json:"message"`
	Watched *watchlist.Watched `json:"watched,omitempty"`
}

func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	term, crn := r.PathValue("term"), r.PathValue("crn")
	watched, err := s.watchlist.Subscribe(r.Context(), term, crn)
	if err != nil {
		s.writeError(w, r, err, "Failed to add course to watchlist.")
		return
	}
	writeJson(w, http.StatusOK, watchResponse{
		Message: fmt.Sprintf("Course %s in term %s added to watchlist", crn, term),
		Watched: &watched,
	})
}

func (s *Server) unwatch(w http.ResponseWriter, r *http.Request) {
	term, crn := r.PathValue("term"), r.PathValue("crn")
	err := s.watchlist.Unsubscribe(r.Context(), term, crn)
	if err != nil {
		s.writeError(w, r, err, "Failed to remove course from watchlist.")
		return
	}
	writeJson(w, http.StatusOK, watchResponse{
		Message: fmt.Sprintf("Course %s in term %s removed from watchlist", crn, term),
	})
}

// crnsOf accepts both ?crn=1&crn=2 and ?crn=1,2.
func crnsOf(r *http.Request) []string {
	var out []string
	for _, value := range r.URL.Query()["crn"] {
		for _, crn := range strings.Split(value, ",") {
			crn = strings.TrimSpace(crn)
			if crn != "" {
				out = append(out, crn)
			}
		}
	}
	return out
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	term := r.PathValue("term")
	crns := crnsOf(r)
	if len(crns) == 0 {
		writeJson(w, http.StatusBadRequest, errorBody{Error: "Invalid parameters."})
		return
	}

	listings, err := s.registrar.FindCourses(r.Context(), term, crns)
	if err != nil {
		s.writeError(w, r, err, "Failed to build calendar.")
		return
	}
	for _, conflict := range schedule.Conflicts(listings) {
		w.Header().Add("x-conflict", fmt.Sprintf("%s %s %s", conflict.Day, conflict.First, conflict.Second))
	}

	ics := schedule.ExportICS(listings, schedule.CalendarOptions{
		Name:     "Courses " + term,
		Location: s.clock.Location(),
		Now:      s.clock.Now(),
	})
	w.Header().Set("content-type", "text/calendar; charset=utf-8")
	w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="courses-%s.ics"`, term))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ics))
}

// Package serptest provides a scriptable in-process fake of the search API.
// The server speaks the same wire format as the real endpoint, so a client
// pointed at URL() behaves exactly as it would in production. Tests and the
// CLI mock mode use it to run without network access or an API key.
package serptest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Step scripts one response. Zero-value fields fall back to defaults: a 200
// status and an auto-generated page body matching the request parameters.
type Step struct {
	Status     int
	RetryAfter int // seconds, sent as a Retry-After header when > 0
	Body       string
	Delay      time.Duration
}

// Request is one recorded call.
type Request struct {
	Path   string
	Query  url.Values
	Header http.Header
}

// Server wraps an httptest server with a response script and request log.
// When the script is empty every request gets an auto-generated page, so
// unscripted servers paginate forever.
type Server struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request

	httpSrv *httptest.Server
}

func NewServer() *Server {
	s := &Server{}
	s.httpSrv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL is the base URL to put in the client config.
func (s *Server) URL() string {
	return s.httpSrv.URL
}

func (s *Server) Close() {
	s.httpSrv.Close()
}

// Enqueue appends steps to the response script. Steps are consumed in order,
// one per request.
func (s *Server) Enqueue(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, steps...)
}

func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns a copy of all recorded calls in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent call, or false if none arrived yet.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Reset clears the script and the request log.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
	s.requests = nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
	})
	var step Step
	if len(s.steps) > 0 {
		step = s.steps[0]
		s.steps = s.steps[1:]
	}
	s.mu.Unlock()

	if step.Delay > 0 {
		time.Sleep(step.Delay)
	}

	status := step.Status
	if status == 0 {
		status = http.StatusOK
	}

	body := step.Body
	if body == "" {
		if status == http.StatusOK {
			q := r.URL.Query()
			start, _ := strconv.Atoi(q.Get("start"))
			count, _ := strconv.Atoi(q.Get("num"))
			if count <= 0 {
				count = 10
			}
			body = PageBody(q.Get("q"), start, count)
		} else {
			body = fmt.Sprintf(`{"error":%q}`, http.StatusText(status))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if step.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(step.RetryAfter))
	}
	w.WriteHeader(status)
	io.WriteString(w, body)
}

type pageMetadata struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type pageParameters struct {
	Engine string `json:"engine"`
	Query  string `json:"q"`
}

type pageInformation struct {
	TotalResults        int64  `json:"total_results,omitempty"`
	OrganicResultsState string `json:"organic_results_state,omitempty"`
}

type pageOrganic struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
}

type page struct {
	SearchMetadata    pageMetadata    `json:"search_metadata"`
	SearchParameters  pageParameters  `json:"search_parameters"`
	SearchInformation pageInformation `json:"search_information"`
	OrganicResults    []pageOrganic   `json:"organic_results,omitempty"`
}

// PageBody builds a well-formed response with count organic results whose
// positions continue from start. Streams fed consecutive pages see a
// seamless result sequence.
func PageBody(query string, start, count int) string {
	organic := make([]pageOrganic, 0, count)
	for i := 0; i < count; i++ {
		pos := start + i + 1
		organic = append(organic, pageOrganic{
			Position: pos,
			Title:    fmt.Sprintf("Result %d for %s", pos, query),
			Link:     fmt.Sprintf("https://example.com/%d", pos),
			Snippet:  fmt.Sprintf("Snippet for result %d", pos),
		})
	}
	return marshalPage(page{
		SearchMetadata: pageMetadata{
			ID:     uuid.NewString(),
			Status: "Success",
		},
		SearchParameters: pageParameters{
			Engine: "google",
			Query:  query,
		},
		SearchInformation: pageInformation{
			TotalResults:        1_000_000,
			OrganicResultsState: "Results for exact spelling",
		},
		OrganicResults: organic,
	})
}

// EmptyBody builds a well-formed response with no organic results, the shape
// the API returns past the last page.
func EmptyBody(query string) string {
	return marshalPage(page{
		SearchMetadata: pageMetadata{
			ID:     uuid.NewString(),
			Status: "Success",
		},
		SearchParameters: pageParameters{
			Engine: "google",
			Query:  query,
		},
		SearchInformation: pageInformation{
			OrganicResultsState: "Fully empty",
		},
	})
}

func marshalPage(p page) string {
	b, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("serptest: marshal page: %v", err))
	}
	return string(b)
}

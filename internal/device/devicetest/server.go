// Package devicetest provides a fake phone REST API for tests.
package devicetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const apiPrefix = "/api/v1/"

// Response is one scripted reply. Status is written as the envelope status
// unless Raw is set, in which case Raw is written verbatim.
type Response struct {
	HTTPStatus int
	Status     string
	Data       any
	Raw        string
}

func OK(data any) Response { return Response{Status: "2000", Data: data} }

func Status(code string) Response { return Response{Status: code} }

// Call records one request the fake received.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Server is a TLS test server speaking the phone's envelope format. Each
// route replays its scripted responses in order and repeats the last one.
type Server struct {
	*httptest.Server

	// Delay is slept inside every handler, which makes overlapping requests
	// observable through MaxInFlight.
	Delay time.Duration

	mu       sync.Mutex
	routes   map[string][]Response
	calls    []Call
	user     string
	password string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{routes: map[string][]Response{}}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle scripts the replies for method and path (relative to api/v1/).
func (s *Server) Handle(method, path string, responses ...Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = responses
}

// RequireBasicAuth makes every request without these credentials fail 401.
func (s *Server) RequireBasicAuth(user, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user, s.password = user, password
}

// Calls returns the recorded requests for path, or all of them when path is empty.
func (s *Server) Calls(path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if path == "" || c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// MaxInFlight is the highest number of requests ever handled at once.
func (s *Server) MaxInFlight() int { return int(s.maxInFlight.Load()) }

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	call := Call{Method: r.Method, Path: path}
	if b, _ := io.ReadAll(r.Body); len(b) > 0 {
		_ = json.Unmarshal(b, &call.Body)
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	user, password := s.user, s.password
	resp, ok := s.next(r.Method + " " + path)
	s.mu.Unlock()

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if user != "" {
		u, p, _ := r.BasicAuth()
		if u != user || p != password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.HTTPStatus != 0 {
		w.WriteHeader(resp.HTTPStatus)
	}
	if resp.Raw != "" {
		_, _ = io.WriteString(w, resp.Raw)
		return
	}
	body := map[string]any{"Status": resp.Status}
	if resp.Data != nil {
		body["data"] = resp.Data
	}
	_ = json.NewEncoder(w).Encode(body)
}

// next pops the next scripted response; the last one stays. Callers hold mu.
func (s *Server) next(key string) (Response, bool) {
	queue := s.routes[key]
	if len(queue) == 0 {
		return Response{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.routes[key] = queue[1:]
	}
	return resp, true
}

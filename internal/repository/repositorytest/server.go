// Package repositorytest provides an in-memory repository served over HTTP
// for tests of packages that depend on repository.Client.
package repositorytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/componentscan/internal/repository"
)

// Credentials accepted by the fake repository.
const (
	User     = "admin"
	Password = "secret"
)

// Server is a fake repository. Paths not registered answer 404.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	docs   map[string][]byte
	delays map[string]time.Duration
	hits   map[string]int
}

// NewServer starts a fake repository that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()

	s := &Server{
		docs:   make(map[string][]byte),
		delays: make(map[string]time.Duration),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// JSON registers v, encoded as JSON, at path.
func (s *Server) JSON(t *testing.T, path string, v any) {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	s.Raw(path, data)
}

// Text registers body at path.
func (s *Server) Text(path, body string) {
	s.Raw(path, []byte(body))
}

// Raw registers body at path.
func (s *Server) Raw(path string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = body
}

// Delay makes requests to path sleep for d before answering.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[path] = d
}

// Hits returns how often path was requested.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// Client returns a repository client for the server with memoization disabled,
// so every lookup reaches the server.
func (s *Server) Client(t *testing.T, opts ...repository.Option) *repository.Client {
	t.Helper()

	opts = append([]repository.Option{repository.WithCacheSize(0)}, opts...)
	c, err := repository.NewClient(s.URL, User, Password, opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != User || pass != Password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.hits[r.URL.Path]++
	body, found := s.docs[r.URL.Path]
	delay := s.delays[r.URL.Path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if !found {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body) //nolint:errcheck // test server
}

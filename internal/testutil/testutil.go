// Package testutil provides helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteFile writes content below dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

// Route is a canned HTTP response.
type Route struct {
	Status int
	Body   string
}

// HTTPStub serves fixed responses keyed by request path and counts hits.
type HTTPStub struct {
	*httptest.Server
	mu     sync.Mutex
	routes map[string]Route
	hits   map[string]int
	agents []string
}

// StartHTTPStub starts a server answering the given routes; unknown paths
// return 404. The server is closed on test cleanup.
func StartHTTPStub(t *testing.T, routes map[string]Route) *HTTPStub {
	t.Helper()
	stub := &HTTPStub{routes: routes, hits: make(map[string]int)}
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		stub.hits[r.URL.Path]++
		stub.agents = append(stub.agents, r.UserAgent())
		route, ok := stub.routes[r.URL.Path]
		stub.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(route.Body))
	}))
	t.Cleanup(stub.Close)
	return stub
}

// Hits returns how often path was requested.
func (s *HTTPStub) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// UserAgents returns the User-Agent headers seen so far.
func (s *HTTPStub) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.agents))
	copy(out, s.agents)
	return out
}

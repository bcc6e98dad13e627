package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// GitServer serves a .git tree the way a misconfigured web server does
type GitServer struct {
	*httptest.Server
	files    map[string][]byte
	mu       sync.Mutex
	requests map[string]int
}

// NewGitServer serves files below /.git/ and answers 404 for anything else
func NewGitServer(t *testing.T, files map[string][]byte) *GitServer {
	t.Helper()

	gs := &GitServer{files: files, requests: map[string]int{}}
	gs.Server = httptest.NewServer(http.HandlerFunc(gs.serve))

	t.Cleanup(func() {
		gs.Server.Close()
	})

	return gs
}

func (gs *GitServer) serve(w http.ResponseWriter, r *http.Request) {
	gs.mu.Lock()
	gs.requests[r.URL.Path]++
	gs.mu.Unlock()

	rel, ok := strings.CutPrefix(r.URL.Path, "/.git/")
	data, found := gs.files[rel]
	if !ok || !found {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Requests returns how many times path was requested
func (gs *GitServer) Requests(path string) int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.requests[path]
}

// TotalRequests returns the number of requests served
func (gs *GitServer) TotalRequests() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	n := 0
	for _, c := range gs.requests {
		n += c
	}
	return n
}

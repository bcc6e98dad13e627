package crawler

import "sync"

// SeenSet records artifact URLs claimed during one run. It only grows.
type SeenSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewSeenSet creates an empty set
func NewSeenSet() *SeenSet {
	return &SeenSet{urls: make(map[string]struct{})}
}

// Claim adds url and reports whether this call was the first to do so
func (s *SeenSet) Claim(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Contains reports whether url was already claimed
func (s *SeenSet) Contains(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.urls[url]
	return ok
}

// Len returns the number of claimed URLs
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

package style

import "sync"

// Selection tracks the selected node across events. It is safe for
// concurrent use.
type Selection struct {
	mu      sync.Mutex
	current string
	fitView bool
}

// Current returns the selected id, or "" when nothing is selected.
func (s *Selection) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set changes the selection and reports whether it changed. Moving from a
// selection to none queues a fit-view request; selecting again drops it.
func (s *Selection) Set(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.current {
		return false
	}
	s.fitView = s.current != "" && id == ""
	s.current = id
	return true
}

// Clear is Set("").
func (s *Selection) Clear() bool { return s.Set("") }

// TakeFitView reports whether the viewport should be fitted to all nodes,
// and resets the request. It returns true once per deselection.
func (s *Selection) TakeFitView() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fit := s.fitView
	s.fitView = false
	return fit
}

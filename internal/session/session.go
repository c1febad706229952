package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/coalboard/coalboard/internal/chart"
	"github.com/coalboard/coalboard/internal/store"
)

// Session is the per-run working copy of all chart specifications. It owns
// the only mutable reference to the state; every mutation is written through
// to the store before returning, so in-memory and durable state never
// diverge within a run.
type Session struct {
	mu     sync.Mutex
	store  *store.Store
	state  store.State
	status store.Status
	log    *slog.Logger
}

// Open loads durable state exactly once for the lifetime of the session.
func Open(st *store.Store, log *slog.Logger) *Session {
	state, status := st.Load()
	s := &Session{store: st, state: state, status: status, log: log}
	s.verifyIdentity()
	return s
}

// verifyIdentity checks the store-wide id uniqueness contract. Duplicate
// ids would collide as render identities; that is a corrupted document or
// a bug, and it gets logged loudly rather than silently rendered over.
func (s *Session) verifyIdentity() {
	seen := make(map[int]string)
	for category, specs := range s.state.Categories {
		for _, sp := range specs {
			if other, dup := seen[sp.ID]; dup {
				s.log.Error("duplicate chart id in schedule, render identities will collide",
					"id", sp.ID, "category", category, "also_in", other)
				continue
			}
			seen[sp.ID] = category
		}
	}
}

// Status reports whether the initial load used durable state or defaulted.
func (s *Session) Status() store.Status { return s.status }

// State returns the current full state for serialization to the UI layer.
func (s *Session) State() store.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Specs returns the ordered spec list for a category.
func (s *Session) Specs(category string) []chart.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Categories[category]
}

// Add assigns the next global id to the draft, freezes a blank title, and
// appends the new spec to the category, persisting counter and spec in the
// same document. Issued ids are never reused, even after deletion.
func (s *Session) Add(category string, d chart.Draft) (chart.Spec, error) {
	if err := d.Validate(); err != nil {
		return chart.Spec{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = chart.AutoTitle(d.File, d.YCols)
	}

	spec := chart.Spec{
		ID:      s.state.NextID,
		File:    d.File,
		DateCol: d.DateCol,
		YCols:   d.YCols,
		Days:    d.Days,
		Kind:    d.Kind,
		Title:   title,
	}

	next := s.cloneState()
	next.NextID++
	next.Categories[category] = append(next.Categories[category], spec)

	if err := s.store.Save(next); err != nil {
		return chart.Spec{}, fmt.Errorf("persist new spec: %w", err)
	}
	s.state = next

	s.log.Info("spec added", "category", category, "id", spec.ID, "title", spec.Title, "file", spec.File)
	return spec, nil
}

// Remove deletes the spec with the given id from a category, preserving the
// order of the remaining specs. The id counter is untouched.
func (s *Session) Remove(category string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	specs, ok := s.state.Categories[category]
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}

	kept := make([]chart.Spec, 0, len(specs))
	found := false
	for _, sp := range specs {
		if sp.ID == id {
			found = true
			continue
		}
		kept = append(kept, sp)
	}
	if !found {
		return fmt.Errorf("no spec with id %d in category %q", id, category)
	}

	next := s.cloneState()
	next.Categories[category] = kept
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("persist removal: %w", err)
	}
	s.state = next

	s.log.Info("spec removed", "category", category, "id", id)
	return nil
}

// cloneState shallow-copies the category map so a failed save leaves the
// session's state untouched.
func (s *Session) cloneState() store.State {
	next := s.state
	next.Categories = make(map[string][]chart.Spec, len(s.state.Categories))
	for name, specs := range s.state.Categories {
		next.Categories[name] = specs
	}
	return next
}

// Find returns the spec with the given id within a category.
func (s *Session) Find(category string, id int) (chart.Spec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sp := range s.state.Categories[category] {
		if sp.ID == id {
			return sp, true
		}
	}
	return chart.Spec{}, false
}

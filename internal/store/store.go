package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/coalboard/coalboard/internal/chart"
)

// Status tells the collaborator layer whether durable state was actually
// read or replaced by the default, so it can warn the operator.
type Status int

const (
	StatusLoaded Status = iota
	StatusDefaulted
)

func (s Status) String() string {
	if s == StatusLoaded {
		return "loaded"
	}
	return "defaulted"
}

// State is the full store content: per-category spec lists plus the global
// monotonic id counter. Unknown top-level keys found in the durable document
// ride along unmodified so newer-version categories survive a round trip.
type State struct {
	Categories map[string][]chart.Spec
	NextID     int
	extra      map[string]json.RawMessage
}

// NewState returns an empty state seeded with the known categories.
func NewState(known []string) State {
	st := State{Categories: make(map[string][]chart.Spec), NextID: 0}
	for _, name := range known {
		st.Categories[name] = []chart.Spec{}
	}
	return st
}

// Ensure adds empty lists for known categories absent from the state.
func (st *State) Ensure(known []string) {
	if st.Categories == nil {
		st.Categories = make(map[string][]chart.Spec)
	}
	for _, name := range known {
		if _, ok := st.Categories[name]; !ok {
			st.Categories[name] = []chart.Spec{}
		}
	}
}

// UnmarshalJSON decodes the durable document: "next_id" is the counter,
// every key whose value is a spec list is a category, anything else is
// preserved verbatim.
func (st *State) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	st.Categories = make(map[string][]chart.Spec)
	st.NextID = 0
	st.extra = nil

	for key, val := range raw {
		if key == "next_id" {
			if err := json.Unmarshal(val, &st.NextID); err != nil {
				return fmt.Errorf("next_id: %w", err)
			}
			continue
		}
		if looksLikeSpecList(val) {
			var specs []chart.Spec
			if err := json.Unmarshal(val, &specs); err == nil {
				if specs == nil {
					specs = []chart.Spec{}
				}
				st.Categories[key] = specs
				continue
			}
		}
		if st.extra == nil {
			st.extra = make(map[string]json.RawMessage)
		}
		st.extra[key] = val
	}
	return nil
}

// looksLikeSpecList reports whether a raw value is a list of chart specs
// rather than some foreign array a newer version wrote. Every element must
// carry the spec core fields; an empty list counts as a category.
func looksLikeSpecList(val json.RawMessage) bool {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(val, &items); err != nil {
		return false
	}
	for _, item := range items {
		for _, field := range []string{"id", "file", "y_cols"} {
			if _, ok := item[field]; !ok {
				return false
			}
		}
	}
	return true
}

// MarshalJSON emits the durable document deterministically: category keys
// sorted, preserved unknown keys after them, next_id last.
func (st State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeName := func(key string) {
		name, _ := json.Marshal(key)
		buf.Write(name)
		buf.WriteByte(':')
	}

	cats := make([]string, 0, len(st.Categories))
	for name := range st.Categories {
		cats = append(cats, name)
	}
	sort.Strings(cats)

	for _, name := range cats {
		enc, err := json.Marshal(st.Categories[name])
		if err != nil {
			return nil, err
		}
		writeName(name)
		buf.Write(enc)
		buf.WriteByte(',')
	}

	extras := make([]string, 0, len(st.extra))
	for name := range st.extra {
		extras = append(extras, name)
	}
	sort.Strings(extras)
	for _, name := range extras {
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, st.extra[name]); err != nil {
			return nil, fmt.Errorf("preserved key %q: %w", name, err)
		}
		writeName(name)
		buf.Write(compacted.Bytes())
		buf.WriteByte(',')
	}

	writeName("next_id")
	fmt.Fprintf(&buf, "%d", st.NextID)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Store persists the schedule document at a fixed path. One process owns
// one path; concurrent writers are out of scope.
type Store struct {
	path  string
	known []string
	log   *slog.Logger
}

// New creates a Store for the given schedule file.
func New(path string, known []string, log *slog.Logger) *Store {
	return &Store{path: path, known: known, log: log}
}

// Path returns the durable document location.
func (s *Store) Path() string { return s.path }

// Load reads durable state. Missing file, unreadable file, and malformed
// content all fall back to the default empty state with StatusDefaulted;
// the corrupt original is left on disk untouched until the next Save.
func (s *Store) Load() (State, Status) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("no saved schedule, starting empty", "path", s.path)
		} else {
			s.log.Error("schedule unreadable, starting empty", "path", s.path, "error", err)
		}
		return NewState(s.known), StatusDefaulted
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Error("schedule corrupt, starting empty", "path", s.path, "error", err)
		return NewState(s.known), StatusDefaulted
	}

	st.Ensure(s.known)
	s.log.Info("schedule loaded", "path", s.path, "next_id", st.NextID)
	return st, StatusLoaded
}

// Save writes the full state atomically: temp file in the same directory,
// then rename, so a reader never observes a partial document.
func (s *Store) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".schedule-*.json")
	if err != nil {
		return fmt.Errorf("create temp schedule: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp schedule: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod schedule: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace schedule: %w", err)
	}

	s.log.Info("schedule saved", "path", s.path, "next_id", st.NextID)
	return nil
}

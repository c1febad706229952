package chart

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind selects the rendering geometry. The wire values match the persisted
// schedule document and are display strings in the operator's language.
type Kind string

const (
	Line      Kind = "Линейный"
	Histogram Kind = "Гистограмма"
	Scatter   Kind = "Точечный (scatter)"
)

// Valid reports whether k is one of the known chart kinds.
func (k Kind) Valid() bool {
	switch k {
	case Line, Histogram, Scatter:
		return true
	}
	return false
}

// Spec is the persisted description of one chart. Specs are immutable after
// creation; editing is modeled as delete plus recreate. The category a spec
// belongs to is the key it lives under in the store, not a field here.
type Spec struct {
	ID      int      `json:"id"`
	File    string   `json:"file"`
	DateCol string   `json:"date_col"`
	YCols   []string `json:"y_cols"`
	Days    int      `json:"days"`
	Kind    Kind     `json:"plot_type"`
	Title   string   `json:"title"`
}

// Draft carries the operator-supplied fields of a new spec, before an id is
// assigned and a blank title is frozen.
type Draft struct {
	File    string   `json:"file"`
	DateCol string   `json:"date_col"`
	YCols   []string `json:"y_cols"`
	Days    int      `json:"days"`
	Kind    Kind     `json:"plot_type"`
	Title   string   `json:"title"`
}

// Validate checks the fields an operator could get wrong.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.File) == "" {
		return fmt.Errorf("file is required")
	}
	if strings.TrimSpace(d.DateCol) == "" {
		return fmt.Errorf("date_col is required")
	}
	if len(d.YCols) == 0 {
		return fmt.Errorf("y_cols must not be empty")
	}
	if d.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", d.Days)
	}
	if !d.Kind.Valid() {
		return fmt.Errorf("unknown plot_type %q", d.Kind)
	}
	return nil
}

// AutoTitle builds the frozen default title for a spec whose title was left
// blank: source basename without extension joined with up to the first three
// y-columns. Computed once at creation, never recomputed on render.
func AutoTitle(file string, yCols []string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	params := "без_параметров"
	if len(yCols) > 0 {
		n := len(yCols)
		if n > 3 {
			n = 3
		}
		params = strings.Join(yCols[:n], "_")
	}
	return base + "_" + params
}

// ChartKey derives the render identity for a spec. Identities are unique
// across all simultaneously rendered charts because spec ids are unique
// across the whole store.
func ChartKey(category string, id int) string {
	return fmt.Sprintf("chart_%s_%d", category, id)
}

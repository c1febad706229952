package chart

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/araddon/dateparse"

	"github.com/coalboard/coalboard/internal/dataset"
)

// ErrNoColumns is returned when none of the requested y-columns exists in
// the dataset.
var ErrNoColumns = errors.New("none of the requested columns exist in the dataset")

// AggMode records which aggregation produced a trace.
type AggMode string

const (
	AggMean  AggMode = "mean"  // numeric columns: arithmetic mean per day
	AggCount AggMode = "count" // text columns: non-missing count per day
)

// Point is one aggregated value on the time axis.
type Point struct {
	Day   time.Time `json:"day"`
	Value float64   `json:"value"`
}

// Trace is the aggregated series for one y-column. Days with no non-missing
// values contribute no point, so traces of one chart may differ in length.
type Trace struct {
	Column string  `json:"column"`
	Mode   AggMode `json:"mode"`
	Points []Point `json:"points"`
}

// Series is the renderable result of aggregating one spec over one dataset.
// ChartKey is the unique render identity; Kind is geometry only and never
// changes the aggregated values.
type Series struct {
	ChartKey string  `json:"chart_key"`
	Title    string  `json:"title"`
	Kind     Kind    `json:"plot_type"`
	Traces   []Trace `json:"traces"`
}

// Render aggregates the dataset per the spec. It is deterministic: identical
// inputs yield identical output (days ascending, traces in YCols order).
// Rows without a parseable date survive via a degraded single-group path
// when the whole dataset lacks valid dates; individual bad dates just drop
// out of the windowed grouping.
func Render(ds dataset.Dataset, category string, spec Spec) (*Series, error) {
	present := make([]string, 0, len(spec.YCols))
	for _, col := range spec.YCols {
		if _, ok := ds.ColumnKind(col); ok {
			present = append(present, col)
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("render %s: %w", ChartKey(category, spec.ID), ErrNoColumns)
	}

	rows := windowRows(ds, spec.DateCol, spec.Days)

	series := &Series{
		ChartKey: ChartKey(category, spec.ID),
		Title:    spec.Title,
		Kind:     spec.Kind,
	}
	for _, col := range present {
		kind, _ := ds.ColumnKind(col)
		series.Traces = append(series.Traces, aggregate(rows, col, kind))
	}
	return series, nil
}

// dayRow pairs a row with its calendar-day group key.
type dayRow struct {
	day time.Time
	row dataset.Row
}

// rowTime extracts the timestamp of a row from the chosen date column. Cells
// the loader already tagged as time come back as-is; any other cell is parsed
// from its raw text here, so a spec may point at a column the loader did not
// recognize as the dataset's date axis.
func rowTime(row dataset.Row, dateCol string) (time.Time, bool) {
	c, ok := row[dateCol]
	if !ok {
		return time.Time{}, false
	}
	if !c.Missing && c.Kind == dataset.KindTime {
		return c.Time, true
	}
	if c.Str == "" {
		return time.Time{}, false
	}
	ts, err := dateparse.ParseAny(c.Str)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// windowRows keeps rows within days of the maximum timestamp present and
// tags each with its calendar day. When the date column yields no valid
// timestamps at all the filter degrades to a no-op: every row passes as one
// group keyed at the zero time.
func windowRows(ds dataset.Dataset, dateCol string, days int) []dayRow {
	var maxTS time.Time
	valid := false
	for _, row := range ds.Rows {
		ts, ok := rowTime(row, dateCol)
		if !ok {
			continue
		}
		if !valid || ts.After(maxTS) {
			maxTS = ts
			valid = true
		}
	}

	if !valid {
		out := make([]dayRow, 0, len(ds.Rows))
		for _, row := range ds.Rows {
			out = append(out, dayRow{row: row})
		}
		return out
	}

	cutoff := maxTS.AddDate(0, 0, -days)
	out := make([]dayRow, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		ts, ok := rowTime(row, dateCol)
		if !ok {
			continue
		}
		if ts.Before(cutoff) || ts.After(maxTS) {
			continue
		}
		out = append(out, dayRow{day: truncateDay(ts), row: row})
	}
	return out
}

func truncateDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// aggregate folds rows into one trace: mean per day for numeric columns,
// non-missing count per day for text columns. A day with no non-missing
// values yields no point.
func aggregate(rows []dayRow, col string, kind dataset.Kind) Trace {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[time.Time]*acc)
	for _, dr := range rows {
		c, ok := dr.row[col]
		if !ok || c.Missing {
			continue
		}
		a := groups[dr.day]
		if a == nil {
			a = &acc{}
			groups[dr.day] = a
		}
		a.count++
		if kind == dataset.KindNumber {
			a.sum += c.Num
		}
	}

	mode := AggCount
	if kind == dataset.KindNumber {
		mode = AggMean
	}

	days := make([]time.Time, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	tr := Trace{Column: col, Mode: mode, Points: make([]Point, 0, len(days))}
	for _, day := range days {
		a := groups[day]
		v := float64(a.count)
		if kind == dataset.KindNumber {
			v = a.sum / float64(a.count)
		}
		tr.Points = append(tr.Points, Point{Day: day, Value: v})
	}
	return tr
}

package weather

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coalboard/coalboard/internal/chart"
	"github.com/coalboard/coalboard/internal/dataset"
)

const (
	filePrefix = "weather_data_"
	dateCol    = "date"
)

// RequiredColumns must all be present in an uploaded weather file.
var RequiredColumns = []string{
	"date", "t", "p", "humidity", "precipitation",
	"wind_dir", "v_avg", "v_max", "cloudcover", "visibility", "weather_code",
}

// referenceYear is the common leap year all month-day points are projected
// onto so traces from different years overlay on one axis.
const referenceYear = 2020

// Years scans the weather directory for weather_data_YYYY.csv files and
// returns the years found, ascending. A missing directory is not an error.
func Years(dir string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.csv"))
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	for _, path := range matches {
		base := filepath.Base(path)
		raw := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), ".csv")
		year, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		seen[year] = true
	}

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

// File returns the dataset path for one weather year.
func File(dir string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.csv", filePrefix, year))
}

// Trace is the daily-averaged series of one parameter in one year,
// projected onto the reference year.
type Trace struct {
	Param  string        `json:"param"`
	Year   int           `json:"year"`
	Label  string        `json:"label"`
	Points []chart.Point `json:"points"`
}

// Overlay builds per-year daily averages for the requested parameters,
// projected onto a common axis and limited to the trailing days window.
// Years whose file is missing or lacks a date column are skipped with a
// warning; output order is params outer, years inner, days ascending.
func Overlay(dir string, years []int, params []string, days int, log *slog.Logger) []Trace {
	type yearData struct {
		year int
		ds   dataset.Dataset
	}
	loaded := make([]yearData, 0, len(years))
	for _, year := range years {
		ds := dataset.Load(File(dir, year), log)
		if ds.Empty() || ds.DateColumn != dateCol {
			log.Warn("weather year unavailable", "year", year, "path", File(dir, year))
			continue
		}
		loaded = append(loaded, yearData{year: year, ds: ds})
	}

	var traces []Trace
	for _, param := range params {
		for _, yd := range loaded {
			kind, ok := yd.ds.ColumnKind(param)
			if !ok || kind != dataset.KindNumber {
				continue
			}
			points := dailyMeans(yd.ds, param)
			if len(points) == 0 {
				continue
			}
			traces = append(traces, Trace{
				Param:  param,
				Year:   yd.year,
				Label:  fmt.Sprintf("%s (%d)", param, yd.year),
				Points: points,
			})
		}
	}

	return trimWindow(traces, days)
}

// dailyMeans averages a numeric column per month-day, keyed on the
// reference year, days ascending.
func dailyMeans(ds dataset.Dataset, param string) []chart.Point {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[time.Time]*acc)
	for _, row := range ds.Rows {
		dc, ok := row[ds.DateColumn]
		if !ok || dc.Missing {
			continue
		}
		vc, ok := row[param]
		if !ok || vc.Missing {
			continue
		}
		_, m, d := dc.Time.UTC().Date()
		key := time.Date(referenceYear, m, d, 0, 0, 0, 0, time.UTC)
		a := groups[key]
		if a == nil {
			a = &acc{}
			groups[key] = a
		}
		a.sum += vc.Num
		a.count++
	}

	days := make([]time.Time, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]chart.Point, 0, len(days))
	for _, day := range days {
		a := groups[day]
		points = append(points, chart.Point{Day: day, Value: a.sum / float64(a.count)})
	}
	return points
}

// trimWindow keeps only points within days of the latest projected date
// across all traces, dropping traces that end up empty.
func trimWindow(traces []Trace, days int) []Trace {
	var maxDay time.Time
	found := false
	for _, tr := range traces {
		for _, p := range tr.Points {
			if !found || p.Day.After(maxDay) {
				maxDay = p.Day
				found = true
			}
		}
	}
	if !found || days <= 0 {
		return traces
	}

	cutoff := maxDay.AddDate(0, 0, -days)
	out := make([]Trace, 0, len(traces))
	for _, tr := range traces {
		kept := make([]chart.Point, 0, len(tr.Points))
		for _, p := range tr.Points {
			if p.Day.Before(cutoff) {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			continue
		}
		tr.Points = kept
		out = append(out, tr)
	}
	return out
}

// ValidateHeader returns the required columns missing from an upload
// header, sorted, or nil when the header is complete.
func ValidateHeader(cols []string) []string {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[strings.TrimSpace(strings.TrimPrefix(c, "\uFEFF"))] = true
	}
	var missing []string
	for _, req := range RequiredColumns {
		if !have[req] {
			missing = append(missing, req)
		}
	}
	sort.Strings(missing)
	return missing
}

// SaveUpload validates and persists an uploaded weather CSV into the
// weather directory, creating it if needed.
func SaveUpload(dir, name string, r io.Reader, log *slog.Logger) error {
	name = strings.TrimSpace(filepath.Base(name))
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		return fmt.Errorf("weather upload %q: only .csv files are accepted", name)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read weather upload: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("weather upload %q has no parseable header: %w", name, err)
	}
	if missing := ValidateHeader(header); len(missing) > 0 {
		return fmt.Errorf("weather upload %q is missing required columns: %s", name, strings.Join(missing, ", "))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create weather dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save weather upload: %w", err)
	}

	log.Info("weather file saved", "path", path, "bytes", len(data))
	return nil
}

package dataset

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/xuri/excelize/v2"
)

// Kind is the semantic type tagged onto a column at load time.
// Aggregation dispatches on this tag and never re-infers.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// Cell is one typed value. Missing marks an absent or unparseable value;
// the remaining fields are meaningful only when Missing is false.
type Cell struct {
	Kind    Kind
	Missing bool
	Num     float64
	Str     string
	Time    time.Time
}

// Column describes one dataset column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// Row maps column name to cell value.
type Row map[string]Cell

// Dataset is the in-memory tabular result of loading one source.
// It is read-only after Load returns.
type Dataset struct {
	Source     string
	Columns    []Column
	Rows       []Row
	DateColumn string
}

// Empty reports whether the dataset has no rows.
func (d Dataset) Empty() bool { return len(d.Rows) == 0 }

// ColumnKind returns the tagged kind of a column and whether it exists.
func (d Dataset) ColumnKind(name string) (Kind, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c.Kind, true
		}
	}
	return KindText, false
}

// Load reads a delimited source into a Dataset. It never returns an error:
// a missing, empty, or unreadable source yields an empty Dataset and a
// warning log, so "file missing" and "file empty" look the same downstream.
func Load(path string, log *slog.Logger) Dataset {
	records, err := readRecords(path)
	if err != nil {
		log.Warn("dataset load failed", "path", path, "error", err)
		return Dataset{Source: path}
	}
	if len(records) < 2 {
		log.Warn("dataset is empty", "path", path)
		return Dataset{Source: path}
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	ds := Dataset{Source: path, DateColumn: detectDateColumn(header)}
	body := records[1:]

	for i, name := range header {
		kind := inferKind(name, ds.DateColumn, body, i)
		ds.Columns = append(ds.Columns, Column{Name: name, Kind: kind})
	}

	ds.Rows = make([]Row, 0, len(body))
	for _, rec := range body {
		row := make(Row, len(header))
		for i, col := range ds.Columns {
			raw := ""
			if i < len(rec) {
				raw = strings.TrimSpace(rec[i])
			}
			row[col.Name] = parseCell(raw, col.Kind)
		}
		ds.Rows = append(ds.Rows, row)
	}

	log.Info("dataset loaded", "path", path, "rows", len(ds.Rows), "date_col", ds.DateColumn)
	return ds
}

func readRecords(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(path)
	default:
		return readCSV(path)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readWorkbook(path string) ([][]string, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return wb.GetRows(sheets[0])
}

// detectDateColumn returns the first header containing "date" or its
// Russian equivalent, case-insensitively, or "" when none matches.
// At most one column per load is treated as the date column.
func detectDateColumn(header []string) string {
	for _, name := range header {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "date") || strings.Contains(lower, "дата") {
			return name
		}
	}
	return ""
}

// inferKind tags a column: the date column is KindTime; any other column
// whose non-empty values all parse as numbers is KindNumber, else KindText.
func inferKind(name, dateCol string, body [][]string, idx int) Kind {
	if name == dateCol {
		return KindTime
	}
	numeric := false
	for _, rec := range body {
		if idx >= len(rec) {
			continue
		}
		raw := strings.TrimSpace(rec[idx])
		if raw == "" {
			continue
		}
		if _, ok := parseNumber(raw); !ok {
			return KindText
		}
		numeric = true
	}
	if numeric {
		return KindNumber
	}
	return KindText
}

func parseCell(raw string, kind Kind) Cell {
	if raw == "" {
		return Cell{Kind: kind, Missing: true}
	}
	switch kind {
	case KindTime:
		ts, err := dateparse.ParseAny(raw)
		if err != nil {
			// Malformed dates become missing markers, never load failures.
			return Cell{Kind: kind, Missing: true, Str: raw}
		}
		return Cell{Kind: kind, Time: ts.UTC()}
	case KindNumber:
		n, ok := parseNumber(raw)
		if !ok {
			return Cell{Kind: kind, Missing: true, Str: raw}
		}
		return Cell{Kind: kind, Num: n}
	default:
		return Cell{Kind: kind, Str: raw}
	}
}

// parseNumber accepts both dot and comma decimal separators; the source
// material is Russian-locale CSV.
func parseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, ",", ".")
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

package predict

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coalboard/coalboard/internal/dataset"
)

// InputFilename is where a validated prediction input lands in the data dir.
const InputFilename = "schedule_for_prediction.csv"

// RequiredColumns must all be present in a prediction input file.
var RequiredColumns = []string{
	"Марка", "Возраст_дн", "mass", "Максимальная температура",
	"Темп_изменение", "weekday", "month", "t", "p", "humidity",
}

// Risk is one scored stockpile day.
type Risk struct {
	Row   int     `json:"row"`
	Score float64 `json:"score"`
}

// Predictor is the seam a self-ignition risk model plugs into. No model
// ships with this service; the interface and the validated input file are
// the whole extension point.
type Predictor interface {
	Predict(ds dataset.Dataset) ([]Risk, error)
}

// ValidateHeader returns the required columns missing from an input
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

// SaveInput validates and persists a prediction input CSV under the data
// directory at the fixed filename a model run would pick up.
func SaveInput(dataDir string, r io.Reader, log *slog.Logger) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prediction upload: %w", err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return "", fmt.Errorf("prediction upload has no parseable header: %w", err)
	}
	if missing := ValidateHeader(header); len(missing) > 0 {
		return "", fmt.Errorf("prediction upload is missing required columns: %s", strings.Join(missing, ", "))
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, InputFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save prediction input: %w", err)
	}

	log.Info("prediction input saved", "path", path, "bytes", len(data))
	return path, nil
}

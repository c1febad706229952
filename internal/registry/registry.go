package registry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coalboard/coalboard/internal/weather"
)

// Category is a declarative descriptor for one chart category. Adding a
// category is a registry edit, not a code change.
type Category struct {
	Name        string   `yaml:"name" json:"name"`
	Title       string   `yaml:"title" json:"title"`
	File        string   `yaml:"file" json:"file"`
	DateCol     string   `yaml:"date_col" json:"date_col"`
	DefaultCols []string `yaml:"default_y_cols" json:"default_y_cols"`
	DefaultDays int      `yaml:"default_days" json:"default_days"`
}

// Registry is the ordered set of known categories.
type Registry struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Names returns category names in registry order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Lookup returns the descriptor for a category name.
func (r Registry) Lookup(name string) (Category, bool) {
	for _, c := range r.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Builtin returns the default registry for a data directory, matching the
// historical four sections of the dashboard.
func Builtin(dataDir string, defaultDays int) Registry {
	return Registry{Categories: []Category{
		{
			Name:        "supplies",
			Title:       "Выгрузка на склад и отгрузка",
			File:        filepath.Join(dataDir, "supplies", "supplies.csv"),
			DateCol:     "ВыгрузкаНаСклад",
			DefaultCols: []string{"На склад, тн", "На судно, тн"},
			DefaultDays: defaultDays,
		},
		{
			Name:        "fires",
			Title:       "Информация о самовозгораниях",
			File:        filepath.Join(dataDir, "fires", "fires.csv"),
			DateCol:     "Дата составления",
			DefaultCols: []string{"Штабель"},
			DefaultDays: defaultDays,
		},
		{
			Name:        "temperature",
			Title:       "Показатели температуры в штабелях",
			File:        filepath.Join(dataDir, "temperature", "temperature.csv"),
			DateCol:     "Дата акта",
			DefaultCols: []string{"Максимальная температура"},
			DefaultDays: defaultDays,
		},
		{
			Name:        "weather",
			Title:       "Погода",
			File:        latestWeatherFile(filepath.Join(dataDir, "weather_data")),
			DateCol:     "date",
			DefaultCols: []string{"t", "precipitation", "humidity", "v_max"},
			DefaultDays: defaultDays,
		},
	}}
}

// latestWeatherFile resolves the most recent per-year weather dataset in dir.
// An empty result leaves the descriptor without a default file, so a spec
// must name one explicitly.
func latestWeatherFile(dir string) string {
	years, err := weather.Years(dir)
	if err != nil || len(years) == 0 {
		return ""
	}
	return weather.File(dir, years[len(years)-1])
}

// Load reads the registry file, falling back to the builtin registry when
// the file is absent. A present but malformed registry is an error: the
// operator edited it and should know it was rejected.
func Load(path, dataDir string, defaultDays int, log *slog.Logger) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("no registry file, using builtin categories", "path", path)
			return Builtin(dataDir, defaultDays), nil
		}
		return Registry{}, fmt.Errorf("read registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return Registry{}, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if len(reg.Categories) == 0 {
		return Registry{}, fmt.Errorf("registry %s defines no categories", path)
	}

	for i := range reg.Categories {
		if reg.Categories[i].Name == "" {
			return Registry{}, fmt.Errorf("registry %s: category %d has no name", path, i)
		}
		if reg.Categories[i].DefaultDays <= 0 {
			reg.Categories[i].DefaultDays = defaultDays
		}
	}

	log.Info("registry loaded", "path", path, "categories", len(reg.Categories))
	return reg, nil
}

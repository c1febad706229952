package httpapi

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coalboard/coalboard/internal/chart"
	"github.com/coalboard/coalboard/internal/dataset"
	"github.com/coalboard/coalboard/internal/predict"
	"github.com/coalboard/coalboard/internal/weather"
)

// handleCategories returns the registry descriptors the UI iterates to
// build its sections and forms.
// GET /api/v1/categories
func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.reg.Categories})
}

// handleState returns the full working state plus whether the initial load
// used durable state or defaulted. Called once at session start.
// GET /api/v1/charts
func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": s.sess.Status().String(),
		"charts": s.sess.State(),
	})
}

// handleAddSpec creates a new chart spec in a category. Empty draft fields
// fall back to the category defaults from the registry.
// POST /api/v1/charts/:category
func (s *Server) handleAddSpec(c *gin.Context) {
	category := c.Param("category")
	desc, known := s.reg.Lookup(category)
	if !known {
		if _, inState := s.sess.State().Categories[category]; !inState {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + category})
			return
		}
	}

	var draft chart.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if known {
		if strings.TrimSpace(draft.File) == "" {
			draft.File = desc.File
		}
		if strings.TrimSpace(draft.DateCol) == "" {
			draft.DateCol = desc.DateCol
		}
		if len(draft.YCols) == 0 {
			draft.YCols = desc.DefaultCols
		}
		if draft.Days == 0 {
			draft.Days = desc.DefaultDays
		}
	}

	spec, err := s.sess.Add(category, draft)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"spec": spec, "category": category})
}

// handleRemoveSpec deletes a spec by id. The id counter never rolls back.
// DELETE /api/v1/charts/:category/:id
func (s *Server) handleRemoveSpec(c *gin.Context) {
	category := c.Param("category")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := s.sess.Remove(category, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": id, "category": category})
}

// handleSeries reloads the spec's dataset and aggregates it into a
// renderable series.
// GET /api/v1/charts/:category/:id/series
func (s *Server) handleSeries(c *gin.Context) {
	category := c.Param("category")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	spec, ok := s.sess.Find(category, id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such chart"})
		return
	}

	ds := dataset.Load(spec.File, s.log)
	series, err := chart.Render(ds, category, spec)
	if err != nil {
		if errors.Is(err, chart.ErrNoColumns) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": series})
}

// handlePreview loads a source and returns its column names, kinds, and
// detected date column so the UI can build a creation form.
// GET /api/v1/datasets/preview?file=
func (s *Server) handlePreview(c *gin.Context) {
	file := c.Query("file")
	if file == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !s.insideDataDir(file) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be inside the data directory"})
		return
	}

	ds := dataset.Load(file, s.log)

	cols := make([]gin.H, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		cols = append(cols, gin.H{"name": col.Name, "kind": col.Kind.String()})
	}
	c.JSON(http.StatusOK, gin.H{
		"file":     file,
		"rows":     len(ds.Rows),
		"date_col": ds.DateColumn,
		"columns":  cols,
	})
}

// handleWeatherYears lists the years with an available weather file.
// GET /api/v1/weather/years
func (s *Server) handleWeatherYears(c *gin.Context) {
	years, err := weather.Years(s.cfg.WeatherDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"years": years})
}

// handleWeatherSeries builds the multi-year daily-average overlay.
// GET /api/v1/weather/series?years=2023,2024&params=t,humidity&days=90
func (s *Server) handleWeatherSeries(c *gin.Context) {
	years, err := splitInts(c.Query("years"))
	if err != nil || len(years) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "years must be a comma-separated list of years"})
		return
	}

	params := splitList(c.Query("params"))
	if len(params) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "params is required"})
		return
	}

	days := s.cfg.DefaultDays
	if daysStr := c.Query("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		days = parsed
	}

	traces := weather.Overlay(s.cfg.WeatherDir, years, params, days, s.log)
	c.JSON(http.StatusOK, gin.H{"traces": traces, "count": len(traces)})
}

// handleWeatherUpload accepts a validated weather CSV.
// POST /api/v1/weather/upload (multipart field "file")
func (s *Server) handleWeatherUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	if err := weather.SaveUpload(s.cfg.WeatherDir, fh.Filename, f, s.log); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"saved": fh.Filename})
}

// handlePredictUpload accepts a validated prediction input CSV. This is the
// extension point only; no model runs here.
// POST /api/v1/predict/upload (multipart field "file")
func (s *Server) handlePredictUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	path, err := predict.SaveInput(s.cfg.DataDir, f, s.log)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"saved": path})
}

// insideDataDir confines preview paths to the configured data directory.
func (s *Server) insideDataDir(file string) bool {
	absData, err := filepath.Abs(s.cfg.DataDir)
	if err != nil {
		return false
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absData, absFile)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

package weather

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeYear(t *testing.T, dir string, year int, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(File(dir, year), []byte(content), 0o644))
}

func TestYears(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2023, "date,t\n")
	writeYear(t, dir, 2021, "date,t\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weather_data_backup.csv"), []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x\n"), 0o644))

	years, err := Years(dir)
	require.NoError(t, err)

	assert.Equal(t, []int{2021, 2023}, years)
}

func TestYearsMissingDir(t *testing.T) {
	years, err := Years(filepath.Join(t.TempDir(), "нет"))
	require.NoError(t, err)
	assert.Empty(t, years)
}

func TestOverlaySingleYearDailyMean(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2023, "date,t\n2023-08-01,10\n2023-08-01,20\n2023-08-02,30\n")

	traces := Overlay(dir, []int{2023}, []string{"t"}, 365, testLogger())

	require.Len(t, traces, 1)
	tr := traces[0]
	assert.Equal(t, "t", tr.Param)
	assert.Equal(t, 2023, tr.Year)
	assert.Equal(t, "t (2023)", tr.Label)

	require.Len(t, tr.Points, 2)
	assert.Equal(t, time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC), tr.Points[0].Day)
	assert.Equal(t, 15.0, tr.Points[0].Value)
	assert.Equal(t, 30.0, tr.Points[1].Value)
}

func TestOverlayProjectsYearsOntoCommonAxis(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2022, "date,t\n2022-08-01,10\n")
	writeYear(t, dir, 2023, "date,t\n2023-08-01,20\n")

	traces := Overlay(dir, []int{2022, 2023}, []string{"t"}, 365, testLogger())

	require.Len(t, traces, 2)
	assert.Equal(t, traces[0].Points[0].Day, traces[1].Points[0].Day)
	assert.Equal(t, 10.0, traces[0].Points[0].Value)
	assert.Equal(t, 20.0, traces[1].Points[0].Value)
}

func TestOverlayTrailingWindow(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2023, "date,t\n2023-01-01,1\n2023-08-01,2\n2023-08-02,3\n")

	traces := Overlay(dir, []int{2023}, []string{"t"}, 7, testLogger())

	require.Len(t, traces, 1)
	require.Len(t, traces[0].Points, 2)
	assert.Equal(t, 2.0, traces[0].Points[0].Value)
}

func TestOverlaySkipsMissingYearsAndParams(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2023, "date,t,sky\n2023-08-01,10,ясно\n")

	traces := Overlay(dir, []int{2022, 2023}, []string{"t", "sky", "нет"}, 365, testLogger())

	// 2022 has no file; "sky" is text; "нет" does not exist.
	require.Len(t, traces, 1)
	assert.Equal(t, "t", traces[0].Param)
	assert.Equal(t, 2023, traces[0].Year)
}

func TestOverlayDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeYear(t, dir, 2022, "date,t,p\n2022-08-01,10,760\n2022-08-02,20,755\n")
	writeYear(t, dir, 2023, "date,t,p\n2023-08-01,30,750\n")

	first := Overlay(dir, []int{2022, 2023}, []string{"t", "p"}, 365, testLogger())
	second := Overlay(dir, []int{2022, 2023}, []string{"t", "p"}, 365, testLogger())

	assert.Equal(t, first, second)
}

func TestValidateHeader(t *testing.T) {
	assert.Nil(t, ValidateHeader(RequiredColumns))

	missing := ValidateHeader([]string{"date", "t"})
	assert.Contains(t, missing, "humidity")
	assert.Contains(t, missing, "weather_code")
	assert.NotContains(t, missing, "date")
	assert.True(t, sortedStrings(missing))
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

func TestSaveUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weather_data")
	content := strings.Join(RequiredColumns, ",") + "\n2024-01-01,1,760,80,0,N,2,5,100,10,3\n"

	err := SaveUpload(dir, "weather_data_2024.csv", strings.NewReader(content), testLogger())
	require.NoError(t, err)

	saved, err := os.ReadFile(filepath.Join(dir, "weather_data_2024.csv"))
	require.NoError(t, err)
	assert.Equal(t, content, string(saved))

	years, err := Years(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{2024}, years)
}

func TestSaveUploadRejectsWrongExtension(t *testing.T) {
	err := SaveUpload(t.TempDir(), "weather.xlsx", strings.NewReader("x"), testLogger())
	assert.Error(t, err)
}

func TestSaveUploadRejectsMissingColumns(t *testing.T) {
	err := SaveUpload(t.TempDir(), "w.csv", strings.NewReader("date,t\n2024-01-01,1\n"), testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "humidity")
}

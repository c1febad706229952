package predict

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateHeader(t *testing.T) {
	assert.Nil(t, ValidateHeader(RequiredColumns))

	missing := ValidateHeader([]string{"Марка", "mass", "t"})
	assert.Contains(t, missing, "Возраст_дн")
	assert.Contains(t, missing, "humidity")
	assert.NotContains(t, missing, "mass")
}

func TestSaveInput(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join(RequiredColumns, ",") + "\nA1,30,1000,55,1.2,3,8,20,760,70\n"

	path, err := SaveInput(dir, strings.NewReader(content), testLogger())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, InputFilename), path)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(saved))
}

func TestSaveInputRejectsIncompleteHeader(t *testing.T) {
	_, err := SaveInput(t.TempDir(), strings.NewReader("Марка,mass\nA1,10\n"), testLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

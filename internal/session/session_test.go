package session

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coalboard/coalboard/internal/chart"
	"github.com/coalboard/coalboard/internal/store"
)

var knownCategories = []string{"supplies", "fires", "temperature", "weather"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSession(t *testing.T) (*Session, *store.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	st := store.New(path, knownCategories, testLogger())
	return Open(st, testLogger()), st
}

func draft() chart.Draft {
	return chart.Draft{
		File:    "data/temperature/temperature.csv",
		DateCol: "Дата акта",
		YCols:   []string{"Максимальная температура"},
		Days:    90,
		Kind:    chart.Line,
		Title:   "Температура",
	}
}

func TestFreshSessionStartsDefaulted(t *testing.T) {
	sess, _ := newSession(t)

	assert.Equal(t, store.StatusDefaulted, sess.Status())
	assert.Empty(t, sess.Specs("fires"))
}

func TestAddAssignsSequentialIDs(t *testing.T) {
	sess, _ := newSession(t)

	first, err := sess.Add("temperature", draft())
	require.NoError(t, err)
	assert.Equal(t, 0, first.ID)

	second, err := sess.Add("fires", draft())
	require.NoError(t, err)
	assert.Equal(t, 1, second.ID)

	assert.Equal(t, 2, sess.State().NextID)
}

func TestRemovedIDsAreNeverReused(t *testing.T) {
	sess, _ := newSession(t)

	first, err := sess.Add("fires", draft())
	require.NoError(t, err)
	second, err := sess.Add("fires", draft())
	require.NoError(t, err)

	require.NoError(t, sess.Remove("fires", first.ID))

	third, err := sess.Add("fires", draft())
	require.NoError(t, err)

	assert.Greater(t, third.ID, first.ID)
	assert.Greater(t, third.ID, second.ID)
}

func TestIDsSurviveRestart(t *testing.T) {
	sess, st := newSession(t)

	_, err := sess.Add("supplies", draft())
	require.NoError(t, err)
	added, err := sess.Add("supplies", draft())
	require.NoError(t, err)
	require.NoError(t, sess.Remove("supplies", added.ID))

	// Simulate a process restart against the same durable file.
	reopened := Open(st, testLogger())
	assert.Equal(t, store.StatusLoaded, reopened.Status())

	next, err := reopened.Add("supplies", draft())
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID)
}

func TestAddFreezesBlankTitle(t *testing.T) {
	sess, st := newSession(t)

	d := draft()
	d.Title = "  "
	spec, err := sess.Add("temperature", d)
	require.NoError(t, err)

	want := chart.AutoTitle(d.File, d.YCols)
	assert.Equal(t, want, spec.Title)

	// The frozen title is persisted, not recomputed on reload.
	reopened := Open(st, testLogger())
	got, ok := reopened.Find("temperature", spec.ID)
	require.True(t, ok)
	assert.Equal(t, want, got.Title)
}

func TestAddKeepsOperatorTitle(t *testing.T) {
	sess, _ := newSession(t)

	spec, err := sess.Add("temperature", draft())
	require.NoError(t, err)

	assert.Equal(t, "Температура", spec.Title)
}

func TestAddRejectsInvalidDraft(t *testing.T) {
	sess, _ := newSession(t)

	d := draft()
	d.Days = 0
	_, err := sess.Add("temperature", d)

	assert.Error(t, err)
	assert.Equal(t, 0, sess.State().NextID)
}

func TestRemoveUnknown(t *testing.T) {
	sess, _ := newSession(t)

	assert.Error(t, sess.Remove("fires", 42))
	assert.Error(t, sess.Remove("нет", 0))
}

func TestRemovePreservesOrder(t *testing.T) {
	sess, _ := newSession(t)

	var ids []int
	for i := 0; i < 4; i++ {
		spec, err := sess.Add("weather", draft())
		require.NoError(t, err)
		ids = append(ids, spec.ID)
	}

	require.NoError(t, sess.Remove("weather", ids[1]))

	specs := sess.Specs("weather")
	require.Len(t, specs, 3)
	assert.Equal(t, ids[0], specs[0].ID)
	assert.Equal(t, ids[2], specs[1].ID)
	assert.Equal(t, ids[3], specs[2].ID)
}

func TestMutationsWriteThrough(t *testing.T) {
	sess, st := newSession(t)

	spec, err := sess.Add("fires", draft())
	require.NoError(t, err)

	// Another load of the same file observes the mutation immediately.
	state, status := st.Load()
	assert.Equal(t, store.StatusLoaded, status)
	require.Len(t, state.Categories["fires"], 1)
	assert.Equal(t, spec.ID, state.Categories["fires"][0].ID)
	assert.Equal(t, 1, state.NextID)
}

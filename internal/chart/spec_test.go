package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoTitle(t *testing.T) {
	tests := map[string]struct {
		file  string
		yCols []string
		want  string
	}{
		"single column":  {file: "data/fires/fires.csv", yCols: []string{"Штабель"}, want: "fires_Штабель"},
		"three columns":  {file: "supplies.csv", yCols: []string{"a", "b", "c"}, want: "supplies_a_b_c"},
		"truncates to 3": {file: "supplies.csv", yCols: []string{"a", "b", "c", "d"}, want: "supplies_a_b_c"},
		"no columns":     {file: "temps.csv", yCols: nil, want: "temps_без_параметров"},
		"xlsx source":    {file: "data/temps.xlsx", yCols: []string{"t"}, want: "temps_t"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, AutoTitle(tc.file, tc.yCols))
		})
	}
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{File: "f.csv", DateCol: "date", YCols: []string{"v"}, Days: 7, Kind: Line}
	assert.NoError(t, valid.Validate())

	tests := map[string]func(*Draft){
		"empty file":     func(d *Draft) { d.File = " " },
		"empty date col": func(d *Draft) { d.DateCol = "" },
		"no y cols":      func(d *Draft) { d.YCols = nil },
		"zero days":      func(d *Draft) { d.Days = 0 },
		"negative days":  func(d *Draft) { d.Days = -3 },
		"unknown kind":   func(d *Draft) { d.Kind = "Круговой" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			d := valid
			mutate(&d)
			assert.Error(t, d.Validate())
		})
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, Line.Valid())
	assert.True(t, Histogram.Valid())
	assert.True(t, Scatter.Valid())
	assert.False(t, Kind("pie").Valid())
	assert.False(t, Kind("").Valid())
}

package equipment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"makerspace/internal/apperr"
)

func TestGridValidate(t *testing.T) {
	loc := time.FixedZone("MST", -7*3600)
	grid := Grid{Duration: 30 * time.Minute, Location: loc}
	at := func(h, m int) time.Time { return time.Date(2026, 10, 19, h, m, 0, 0, loc) }

	tests := []struct {
		name    string
		w       Window
		wantErr bool
	}{
		{"aligned", Window{at(10, 0), at(10, 30)}, false},
		{"aligned half hour", Window{at(10, 30), at(11, 0)}, false},
		{"aligned in other zone", Window{at(10, 0).UTC(), at(10, 30).UTC()}, false},
		{"zero", Window{}, true},
		{"end before start", Window{at(10, 30), at(10, 0)}, true},
		{"wrong length", Window{at(10, 0), at(11, 0)}, true},
		{"misaligned", Window{at(10, 15), at(10, 45)}, true},
		{"seconds", Window{at(10, 0).Add(time.Second), at(10, 30).Add(time.Second)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := grid.Validate(tt.w)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSortWindows(t *testing.T) {
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	ws := []Window{
		{Start: base.Add(time.Hour)},
		{Start: base},
		{Start: base.Add(30 * time.Minute)},
	}

	SortWindows(ws)

	assert.Equal(t, base, ws[0].Start)
	assert.Equal(t, base.Add(30*time.Minute), ws[1].Start)
	assert.Equal(t, base.Add(time.Hour), ws[2].Start)
}

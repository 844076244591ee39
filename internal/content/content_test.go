package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistLoads(t *testing.T) {
	items, err := Checklist()
	require.NoError(t, err)
	require.Len(t, items, 8)

	assert.Equal(t, "wheel", items[0].ID)
	assert.Equal(t, "Wheel Washing Station", items[0].Label)
	assert.Len(t, items[0].Service.Specs, 4)
	assert.Equal(t, "monitoring", items[7].ID)

	for _, item := range items {
		assert.NotEmpty(t, item.Description, item.ID)
		assert.NotEmpty(t, item.HowItHelps, item.ID)
		assert.NotEmpty(t, item.Service.Title, item.ID)
	}
}

func TestChecklistReturnsCopy(t *testing.T) {
	items, err := Checklist()
	require.NoError(t, err)
	items[0].Label = "changed"

	again, err := Checklist()
	require.NoError(t, err)
	assert.Equal(t, "Wheel Washing Station", again[0].Label)
}

func TestGuidelinesLoad(t *testing.T) {
	rows, err := Guidelines()
	require.NoError(t, err)
	require.Len(t, rows, 6)

	assert.Equal(t, "PM2.5 (Fine Particulate Matter)", rows[0].Parameter)
	assert.Equal(t, "60 µg/m³ (8-hour average)", rows[0].Limit)
	assert.Equal(t, "100% segregation & authorized disposal", rows[3].Limit)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		checked   []string
		wantCount int
		wantRate  float64
		wantFull  bool
	}{
		{name: "nothing", checked: nil, wantCount: 0, wantRate: 0},
		{name: "two", checked: []string{"wheel", "ppe"}, wantCount: 2, wantRate: 25},
		{name: "duplicates count once", checked: []string{"water", "water", "waste"}, wantCount: 2, wantRate: 25},
		{
			name:      "all",
			checked:   []string{"wheel", "water", "covering", "waste", "ppe", "fencing", "signage", "monitoring"},
			wantCount: 8,
			wantRate:  100,
			wantFull:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Evaluate(tt.checked)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, ev.Checked)
			assert.Equal(t, 8, ev.Total)
			assert.InDelta(t, tt.wantRate, ev.Rate, 1e-9)
			assert.Equal(t, tt.wantFull, ev.FullyCompliant)
		})
	}
}

func TestEvaluateRejectsUnknownItem(t *testing.T) {
	_, err := Evaluate([]string{"wheel", "helipad"})
	assert.ErrorIs(t, err, ErrUnknownItem)
	assert.Contains(t, err.Error(), "helipad")
}

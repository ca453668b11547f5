package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDateOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hint      string
		wantOrder dateOrder
		wantFound bool
	}{
		{"month first placeholder", "MM/DD/YYYY", orderMonthFirst, true},
		{"day first placeholder", "DD/MM/YYYY", orderDayFirst, true},
		{"lowercase hint", "dd/mm/yyyy", orderDayFirst, true},
		{"hint buried in aria label", "Enter the date as MM/DD please", orderMonthFirst, true},
		{"no recognizable hint", "Pick a date", orderMonthFirst, false},
		{"empty hint", "", orderMonthFirst, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			order, found := detectDateOrder(tt.hint)
			assert.Equal(t, tt.wantOrder, order)
			assert.Equal(t, tt.wantFound, found)
		})
	}
}

func TestFormatPortalDate(t *testing.T) {
	t.Parallel()

	d, err := time.Parse(isoDateLayout, "2026-03-09")
	require.NoError(t, err)

	assert.Equal(t, "03/09/2026", formatPortalDate(d, orderMonthFirst))
	assert.Equal(t, "09/03/2026", formatPortalDate(d, orderDayFirst))
}

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "120.5", formatAmount(120.5))
	assert.Equal(t, "1205", formatAmount(1205))
	assert.Equal(t, "0", formatAmount(0))
}

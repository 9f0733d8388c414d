package cancellation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProrateRefund(t *testing.T) {
	tests := []struct {
		name  string
		total Totals
		slots int
		want  int64
	}{
		{"even split", Totals{SlotsBooked: 4, PricePaidCents: 20000}, 1, 5000},
		{"two of four", Totals{SlotsBooked: 4, PricePaidCents: 20000}, 2, 10000},
		{"everything", Totals{SlotsBooked: 3, PricePaidCents: 6000}, 3, 6000},
		{"rounds down below half", Totals{SlotsBooked: 3, PricePaidCents: 1000}, 1, 333},
		{"rounds up above half", Totals{SlotsBooked: 3, PricePaidCents: 1000}, 2, 667},
		{"half rounds up", Totals{SlotsBooked: 2, PricePaidCents: 5}, 1, 3},
		{"free equipment", Totals{SlotsBooked: 2, PricePaidCents: 0}, 1, 0},
		{"no slots booked", Totals{SlotsBooked: 0, PricePaidCents: 100}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProrateRefund(tt.total, tt.slots))
		})
	}
}

func TestResolveLineage(t *testing.T) {
	supplied := Totals{SlotsBooked: 2, PricePaidCents: 999}

	t.Run("first cancellation uses supplied totals", func(t *testing.T) {
		totals, refunded := ResolveLineage(nil, supplied)
		assert.Equal(t, supplied, totals)
		assert.Zero(t, refunded)
	})

	t.Run("prior rows are authoritative", func(t *testing.T) {
		prior := []Cancellation{
			{ID: 1, TotalSlotsBooked: 4, TotalPricePaidCents: 20000, SlotsRefunded: 1},
			{ID: 2, TotalSlotsBooked: 4, TotalPricePaidCents: 20000, SlotsRefunded: 2},
		}
		totals, refunded := ResolveLineage(prior, supplied)
		assert.Equal(t, Totals{SlotsBooked: 4, PricePaidCents: 20000}, totals)
		assert.Equal(t, 3, refunded)
	})

	t.Run("disagreeing rows fall back to the earliest", func(t *testing.T) {
		prior := []Cancellation{
			{ID: 1, TotalSlotsBooked: 4, TotalPricePaidCents: 20000, SlotsRefunded: 1},
			{ID: 2, TotalSlotsBooked: 5, TotalPricePaidCents: 25000, SlotsRefunded: 1},
		}
		totals, refunded := ResolveLineage(prior, supplied)
		assert.Equal(t, 4, totals.SlotsBooked)
		assert.Equal(t, 2, refunded)
	})
}

package cancellation

import "makerspace/internal/logger"

// ResolveLineage returns the authoritative totals for a purchase and how many
// of its slots were already refunded. With no prior rows the supplied totals
// start the lineage; otherwise the earliest row's totals win.
func ResolveLineage(prior []Cancellation, supplied Totals) (Totals, int) {
	if len(prior) == 0 {
		return supplied, 0
	}

	totals := Totals{SlotsBooked: prior[0].TotalSlotsBooked, PricePaidCents: prior[0].TotalPricePaidCents}
	refunded := 0
	for _, c := range prior {
		if c.TotalSlotsBooked != totals.SlotsBooked || c.TotalPricePaidCents != totals.PricePaidCents {
			logger.Warn("Cancellation lineage totals disagree, using earliest row",
				"cancellation_id", c.ID,
				"expected_slots", totals.SlotsBooked,
				"expected_cents", totals.PricePaidCents,
			)
		}
		refunded += c.SlotsRefunded
	}
	return totals, refunded
}

// ProrateRefund returns PricePaidCents / SlotsBooked * slots rounded half up
// to the cent.
func ProrateRefund(t Totals, slots int) int64 {
	if t.SlotsBooked <= 0 || slots <= 0 || t.PricePaidCents <= 0 {
		return 0
	}
	num := t.PricePaidCents * int64(slots)
	den := int64(t.SlotsBooked)
	return (2*num + den) / (2 * den)
}

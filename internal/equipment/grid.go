package equipment

import (
	"sort"
	"time"

	"makerspace/internal/apperr"
)

// Grid describes the fixed slot layout: every slot lasts Duration and starts
// on a multiple of Duration from local midnight.
type Grid struct {
	Duration time.Duration
	Location *time.Location
}

func (g Grid) Validate(w Window) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !w.End.After(w.Start) {
		return apperr.Validation("end_time must be after start_time")
	}
	if w.End.Sub(w.Start) != g.Duration {
		return apperr.Validation("slots must be exactly %d minutes long", int(g.Duration/time.Minute))
	}

	local := w.Start.In(g.location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	if local.Sub(midnight)%g.Duration != 0 {
		return apperr.Validation("slot starting at %s is not aligned to the %d minute grid",
			local.Format("15:04"), int(g.Duration/time.Minute))
	}
	return nil
}

func (g Grid) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

// SortWindows orders windows by start time in place. Slots are always locked
// in this order so concurrent bulk requests cannot deadlock.
func SortWindows(ws []Window) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start.Before(ws[j].Start) })
}

// Label formats t in equipment-local time for user-facing messages.
func (g Grid) Label(t time.Time) string {
	return t.In(g.location()).Format("2006-01-02 15:04")
}

package schedule

import "time"

const (
	// ExtendedAccessLevel is the lowest trust level exempt from the weekday
	// window. Such users are still bound by the level-4 blackout.
	ExtendedAccessLevel = 4

	Level3ScheduleKey         = "equipment_level3_schedule"
	Level4UnavailableHoursKey = "equipment_level4_unavailable_hours"
)

// HourRange is a span of whole hours in equipment-local time, [Start, End).
type HourRange struct {
	Start int `json:"start" validate:"gte=0,lte=24" example:"9"`
	End   int `json:"end" validate:"gte=0,lte=24" example:"17"`
}

// Contains reports whether hour h (0-23) falls in the range. Start == End
// is empty; Start > End wraps past midnight.
func (r HourRange) Contains(h int) bool {
	switch {
	case r.Start == r.End:
		return false
	case r.Start < r.End:
		return h >= r.Start && h < r.End
	default:
		return h >= r.Start || h < r.End
	}
}

// WeeklySchedule maps a weekday name ("Monday") to its bookable hours.
// A weekday missing from the map is closed.
type WeeklySchedule map[string]HourRange

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

func DefaultLevel3Schedule() WeeklySchedule {
	s := make(WeeklySchedule, len(weekdays))
	for _, d := range weekdays {
		s[d.String()] = HourRange{Start: 9, End: 17}
	}
	return s
}

func DefaultLevel4UnavailableHours() HourRange {
	return HourRange{Start: 0, End: 0}
}

func isWeekday(name string) bool {
	for _, d := range weekdays {
		if d.String() == name {
			return true
		}
	}
	return false
}

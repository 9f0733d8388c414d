package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"makerspace/internal/apperr"
	"makerspace/internal/logger"
)

type SettingsStore interface {
	Get(ctx context.Context, key, defaultValue string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Policy decides which windows a trust level may book. Configuration is
// read from the settings store on every call and never fails: bad or
// missing values fall back to the built-in defaults.
type Policy struct {
	store    SettingsStore
	loc      *time.Location
	validate *validator.Validate
}

func NewPolicy(store SettingsStore, loc *time.Location) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{store: store, loc: loc, validate: validator.New()}
}

func (p *Policy) Location() *time.Location {
	return p.loc
}

func (p *Policy) Level3ScheduleRestrictions(ctx context.Context) WeeklySchedule {
	raw, err := p.store.Get(ctx, Level3ScheduleKey, "")
	if err != nil {
		logger.WithError(err).Warnw("Level 3 schedule unreadable, using default", "key", Level3ScheduleKey)
		return DefaultLevel3Schedule()
	}
	if strings.TrimSpace(raw) == "" {
		return DefaultLevel3Schedule()
	}

	var sched WeeklySchedule
	if err := json.Unmarshal([]byte(raw), &sched); err != nil {
		logger.WithError(err).Warnw("Level 3 schedule is not valid JSON, using default", "key", Level3ScheduleKey)
		return DefaultLevel3Schedule()
	}
	if len(sched) == 0 {
		return DefaultLevel3Schedule()
	}
	if err := p.validateSchedule(sched); err != nil {
		logger.WithError(err).Warnw("Level 3 schedule failed validation, using default", "key", Level3ScheduleKey)
		return DefaultLevel3Schedule()
	}

	return sched
}

func (p *Policy) Level4UnavailableHours(ctx context.Context) HourRange {
	raw, err := p.store.Get(ctx, Level4UnavailableHoursKey, "")
	if err != nil {
		logger.WithError(err).Warnw("Level 4 blackout unreadable, using default", "key", Level4UnavailableHoursKey)
		return DefaultLevel4UnavailableHours()
	}
	if strings.TrimSpace(raw) == "" {
		return DefaultLevel4UnavailableHours()
	}

	var r HourRange
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		logger.WithError(err).Warnw("Level 4 blackout is not valid JSON, using default", "key", Level4UnavailableHoursKey)
		return DefaultLevel4UnavailableHours()
	}
	if err := p.validateBlackout(r); err != nil {
		logger.WithError(err).Warnw("Level 4 blackout failed validation, using default", "key", Level4UnavailableHoursKey)
		return DefaultLevel4UnavailableHours()
	}

	return r
}

// CheckWindow returns a Forbidden error explaining why [start, end) is not
// bookable at trustLevel, or nil.
func (p *Policy) CheckWindow(ctx context.Context, trustLevel int, start, end time.Time) error {
	start, end = start.In(p.loc), end.In(p.loc)

	if trustLevel >= ExtendedAccessLevel {
		blackout := p.Level4UnavailableHours(ctx)
		for _, h := range hoursTouched(start, end) {
			if blackout.Contains(h) {
				return apperr.Forbidden("equipment cannot be booked between %02d:00 and %02d:00", blackout.Start, blackout.End)
			}
		}
		return nil
	}

	day := start.Weekday().String()
	window, ok := p.Level3ScheduleRestrictions(ctx)[day]
	if !ok {
		return apperr.Forbidden("equipment cannot be booked on %s at your access level", day)
	}

	startMin, endMin, sameDay := minutesOfDay(start, end)
	if !sameDay || startMin < window.Start*60 || endMin > window.End*60 {
		return apperr.Forbidden("on %s equipment can only be booked between %02d:00 and %02d:00 at your access level",
			day, window.Start, window.End)
	}
	return nil
}

func (p *Policy) UpdateLevel3Schedule(ctx context.Context, sched WeeklySchedule) error {
	if len(sched) == 0 {
		return apperr.Validation("schedule must contain at least one weekday")
	}
	if err := p.validateSchedule(sched); err != nil {
		return apperr.Validation("%s", err.Error())
	}

	data, err := json.Marshal(sched)
	if err != nil {
		return apperr.Internal(err, "failed to encode schedule")
	}
	return p.store.Set(ctx, Level3ScheduleKey, string(data))
}

func (p *Policy) UpdateLevel4UnavailableHours(ctx context.Context, r HourRange) error {
	if err := p.validateBlackout(r); err != nil {
		return apperr.Validation("%s", err.Error())
	}

	data, err := json.Marshal(r)
	if err != nil {
		return apperr.Internal(err, "failed to encode unavailable hours")
	}
	return p.store.Set(ctx, Level4UnavailableHoursKey, string(data))
}

func (p *Policy) validateSchedule(sched WeeklySchedule) error {
	for day, r := range sched {
		if !isWeekday(day) {
			return fmt.Errorf("unknown weekday %q", day)
		}
		if err := p.validate.Struct(r); err != nil {
			return fmt.Errorf("%s: hours must be between 0 and 24", day)
		}
		if r.Start >= r.End {
			return fmt.Errorf("%s: start must be before end", day)
		}
	}
	return nil
}

func (p *Policy) validateBlackout(r HourRange) error {
	if err := p.validate.Struct(r); err != nil {
		return fmt.Errorf("hours must be between 0 and 24")
	}
	if r.Start == 24 {
		return fmt.Errorf("start must be before 24")
	}
	return nil
}

// hoursTouched lists the local hours of day overlapped by [start, end).
func hoursTouched(start, end time.Time) []int {
	var hours []int
	cur := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, start.Location())
	for cur.Before(end) && len(hours) < 24 {
		hours = append(hours, cur.Hour())
		cur = cur.Add(time.Hour)
	}
	return hours
}

// minutesOfDay converts a window to minutes since local midnight of the
// start day. An end at the following midnight counts as 24:00.
func minutesOfDay(start, end time.Time) (int, int, bool) {
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return startMin, endMin, true
	}

	next := time.Date(sy, sm, sd+1, 0, 0, 0, 0, start.Location())
	if end.Equal(next) {
		return startMin, 24 * 60, true
	}
	return startMin, endMin, false
}

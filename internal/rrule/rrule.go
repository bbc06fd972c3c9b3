package rrule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/Athena/internal/models"
	"github.com/teambition/rrule-go"
)

var weekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var dayCodes = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

var ErrNotCalendar = errors.New("one-shot rules have no recurrence")

// anchor returns the wall-clock time a recurring schedule is tied to: the
// daily time, or the opening of an interval window.
func anchor(r models.Rule) (hour, minute int, err error) {
	clock := r.Time
	if r.Frequency == models.FrequencyInterval {
		clock = r.Start
		if clock == "" {
			clock = "00:00"
		}
	}
	m, err := models.ParseClock(clock)
	if err != nil {
		return 0, 0, err
	}
	return m / 60, m % 60, nil
}

// Build creates the daily recurrence of s (or of its window opening for
// interval rules) starting the day before ref.
func Build(s models.Schedule, ref time.Time, loc *time.Location) (*rrule.RRule, error) {
	if s.Rule.Frequency == models.FrequencyOnce {
		return nil, ErrNotCalendar
	}
	hour, minute, err := anchor(s.Rule)
	if err != nil {
		return nil, err
	}

	ref = ref.In(loc)
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Dtstart:  time.Date(ref.Year(), ref.Month(), ref.Day()-1, 0, 0, 0, 0, loc),
		Byhour:   []int{hour},
		Byminute: []int{minute},
		Bysecond: []int{0},
	}
	if len(s.Days) > 0 {
		opt.Freq = rrule.WEEKLY
		for _, d := range s.Days {
			opt.Byweekday = append(opt.Byweekday, weekdays[d])
		}
	}
	return rrule.NewRRule(opt)
}

// String returns the RRULE text of a recurring schedule, or "" for one-shots
func String(s models.Schedule) string {
	hour, minute, err := anchor(s.Rule)
	if err != nil || s.Rule.Frequency == models.FrequencyOnce {
		return ""
	}

	var parts []string
	if len(s.Days) > 0 {
		days := make([]string, len(s.Days))
		for i, d := range s.Days {
			days[i] = dayCodes[d]
		}
		parts = append(parts, "FREQ=WEEKLY", "BYDAY="+strings.Join(days, ","))
	} else {
		parts = append(parts, "FREQ=DAILY")
	}
	parts = append(parts, fmt.Sprintf("BYHOUR=%d", hour), fmt.Sprintf("BYMINUTE=%d", minute))
	return strings.Join(parts, ";")
}

// NextFire predicts when s will next deliver after the given time. The
// second result is false when the schedule will not fire again.
func NextFire(s models.Schedule, after time.Time, loc *time.Location) (time.Time, bool) {
	if !s.Enabled {
		return time.Time{}, false
	}
	after = after.In(loc)

	switch s.Rule.Frequency {
	case models.FrequencyOnce:
		if s.Rule.At.IsZero() || !s.Rule.At.After(after) {
			return after, true
		}
		return s.Rule.At.In(loc), true

	case models.FrequencyDaily:
		r, err := Build(s, after, loc)
		if err != nil {
			return time.Time{}, false
		}
		next := r.After(after, false)
		// Already delivered on that day
		if !next.IsZero() && !s.LastFired.IsZero() && models.SameDay(s.LastFired, next, loc) {
			next = r.After(next, false)
		}
		return next, !next.IsZero()

	case models.FrequencyInterval:
		candidate := after
		if !s.LastFired.IsZero() {
			if due := s.LastFired.Add(s.Rule.EffectiveInterval()).In(loc); due.After(candidate) {
				candidate = due
			}
		}
		if s.OnDay(candidate.Weekday()) && s.Rule.InWindow(candidate) {
			return candidate, true
		}
		r, err := Build(s, candidate, loc)
		if err != nil {
			return time.Time{}, false
		}
		next := r.After(candidate, false)
		return next, !next.IsZero()
	}
	return time.Time{}, false
}

// Describe renders a short human-readable summary of the schedule's rule
func Describe(s models.Schedule) string {
	r := s.Rule
	switch r.Frequency {
	case models.FrequencyOnce:
		if r.At.IsZero() {
			return "once"
		}
		return "once at " + r.At.Format("2006-01-02 15:04")

	case models.FrequencyDaily:
		return fmt.Sprintf("%s at %s", describeDays(s.Days), r.Time)

	case models.FrequencyInterval:
		text := "every " + describeInterval(r.EffectiveInterval())
		if r.Start != "" && r.End != "" {
			text += fmt.Sprintf(" between %s and %s", r.Start, r.End)
		}
		if len(s.Days) > 0 {
			text += " on " + describeDays(s.Days)
		}
		return text
	}
	return string(r.Frequency)
}

func describeDays(days []time.Weekday) string {
	if len(days) == 0 || len(days) == 7 {
		return "daily"
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ", ")
}

func describeInterval(d time.Duration) string {
	minutes := int(d / time.Minute)
	switch {
	case minutes == 60:
		return "hour"
	case minutes > 60 && minutes%60 == 0:
		return fmt.Sprintf("%d hours", minutes/60)
	case minutes == 1:
		return "minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"time"
)

var ErrInvalidTime = errors.New("invalid time of day, expected HH:MM")

// MaxIDLength bounds schedule IDs. IDs double as notification tags and must
// fit in chat button callback data.
const MaxIDLength = 40

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidID reports whether id is usable as a schedule ID
func ValidID(id string) bool {
	return len(id) <= MaxIDLength && idPattern.MatchString(id)
}

// Kind identifies the reminder category a schedule belongs to
type Kind string

const (
	KindWater      Kind = "water"
	KindMotivation Kind = "motivation"
	KindHealth     Kind = "health"
	KindExercise   Kind = "exercise"
	KindMeal       Kind = "meal"
	KindTask       Kind = "task"
	KindFinance    Kind = "finance"
	KindGeneric    Kind = "generic"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindWater, KindMotivation, KindHealth, KindExercise, KindMeal, KindTask, KindFinance, KindGeneric:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyOnce     Frequency = "once"
	FrequencyDaily    Frequency = "daily"
	FrequencyInterval Frequency = "interval"
)

// DefaultInterval is used for interval rules that do not set one
const DefaultInterval = time.Hour

// Rule describes when a schedule is due
type Rule struct {
	Frequency Frequency     `json:"frequency"`
	Time      string        `json:"time,omitempty"`       // daily: HH:MM
	Interval  time.Duration `json:"interval,omitempty"`   // interval: gap between deliveries
	Start     string        `json:"start_time,omitempty"` // interval window start, HH:MM
	End       string        `json:"end_time,omitempty"`   // interval window end, HH:MM
	At        time.Time     `json:"at,omitzero"`          // once: zero means next tick
}

// DailyAt builds a rule firing once a day at the given HH:MM
func DailyAt(clock string) Rule {
	return Rule{Frequency: FrequencyDaily, Time: clock}
}

// Every builds an interval rule bounded by a time-of-day window
func Every(interval time.Duration, start, end string) Rule {
	return Rule{Frequency: FrequencyInterval, Interval: interval, Start: start, End: end}
}

// Once builds a one-shot rule
func Once(at time.Time) Rule {
	return Rule{Frequency: FrequencyOnce, At: at}
}

// EffectiveInterval returns the configured interval or DefaultInterval
func (r Rule) EffectiveInterval() time.Duration {
	if r.Interval <= 0 {
		return DefaultInterval
	}
	return r.Interval
}

// Validate checks the fields required by the rule's frequency
func (r Rule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily:
		if _, err := ParseClock(r.Time); err != nil {
			return fmt.Errorf("daily time: %w", err)
		}
	case FrequencyInterval:
		if r.Interval < 0 {
			return fmt.Errorf("interval must not be negative")
		}
		if r.Start != "" {
			if _, err := ParseClock(r.Start); err != nil {
				return fmt.Errorf("window start: %w", err)
			}
		}
		if r.End != "" {
			if _, err := ParseClock(r.End); err != nil {
				return fmt.Errorf("window end: %w", err)
			}
		}
	case FrequencyOnce:
	default:
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	return nil
}

// InWindow checks the interval window [Start, End] at minute resolution.
// A window whose start is after its end spans midnight. Missing bounds are open.
func (r Rule) InWindow(t time.Time) bool {
	current := MinuteOfDay(t)

	start, startErr := ParseClock(r.Start)
	end, endErr := ParseClock(r.End)
	hasStart := r.Start != "" && startErr == nil
	hasEnd := r.End != "" && endErr == nil

	switch {
	case hasStart && hasEnd && start > end:
		return current >= start || current <= end
	case hasStart && current < start:
		return false
	case hasEnd && current > end:
		return false
	}
	return true
}

// Template is the payload a schedule materializes on every delivery.
// When Pool is non-empty the body is drawn from it at fire time.
type Template struct {
	Payload Payload  `json:"payload"`
	Pool    []string `json:"pool,omitempty"`
}

// Schedule is a named reminder: what to show and when
type Schedule struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Rule      Rule           `json:"rule"`
	Days      []time.Weekday `json:"days_of_week,omitempty"` // Sunday = 0, empty means every day
	Enabled   bool           `json:"enabled"`
	LastFired time.Time      `json:"last_fired,omitzero"`
	Template  Template       `json:"template"`
}

// Validate checks the identity, kind, rule and day filter
func (s Schedule) Validate() error {
	if s.ID == "" {
		return errors.New("schedule id is required")
	}
	if !ValidID(s.ID) {
		return fmt.Errorf("schedule id %q must be at most %d letters, digits, '.', '_' or '-'", s.ID, MaxIDLength)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", s.Kind)
	}
	if err := s.Rule.Validate(); err != nil {
		return err
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d", d)
		}
	}
	return nil
}

// OnDay reports whether the day-of-week filter allows the given weekday
func (s Schedule) OnDay(d time.Weekday) bool {
	return len(s.Days) == 0 || slices.Contains(s.Days, d)
}

// Clone returns a deep copy so callers never share slices or maps with the registry
func (s Schedule) Clone() Schedule {
	s.Days = slices.Clone(s.Days)
	s.Template.Pool = slices.Clone(s.Template.Pool)
	s.Template.Payload = s.Template.Payload.Clone()
	return s
}

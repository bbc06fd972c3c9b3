package notify

import (
	"time"

	"github.com/hray3182/Athena/internal/models"
)

// due reports whether s fires at now and records the firing on s.
// now must already be in loc.
func due(s *models.Schedule, now time.Time, loc *time.Location) bool {
	if !s.Enabled {
		return false
	}
	if !s.OnDay(now.Weekday()) {
		return false
	}

	switch s.Rule.Frequency {
	case models.FrequencyDaily:
		at, err := models.ParseClock(s.Rule.Time)
		if err != nil || models.MinuteOfDay(now) != at {
			return false
		}
		// One delivery per calendar day even if ticks overlap or drift
		if !s.LastFired.IsZero() && models.SameDay(s.LastFired, now, loc) {
			return false
		}
		s.LastFired = now
		return true

	case models.FrequencyInterval:
		if !s.Rule.InWindow(now) {
			return false
		}
		if !s.LastFired.IsZero() && now.Sub(s.LastFired) < s.Rule.EffectiveInterval() {
			return false
		}
		// Recorded before delivery so a slow send cannot cause a re-fire
		s.LastFired = now
		return true

	case models.FrequencyOnce:
		if !s.Rule.At.IsZero() && now.Before(s.Rule.At) {
			return false
		}
		s.LastFired = now
		s.Enabled = false
		return true
	}
	return false
}

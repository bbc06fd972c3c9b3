package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Storage keys for persisted reminder settings
const (
	KeyWaterInterval     = "water-reminder-interval"
	KeyWaterStart        = "water-reminder-start"
	KeyWaterEnd          = "water-reminder-end"
	KeyWaterEnabled      = "water-reminder-enabled"
	KeyMotivationTime    = "motivation-time"
	KeyMotivationEnabled = "motivation-enabled"
	KeyHealthTime        = "health-check-time"
	KeyHealthDays        = "health-check-days"
	KeyHealthEnabled     = "health-check-enabled"
	KeyPermission        = "notification-permission"
	KeyPermissionAsked   = "notification-permission-asked"
)

// ReminderSettings holds the user-chosen reminder configuration
type ReminderSettings struct {
	WaterEnabled      bool           `json:"water_enabled"`
	WaterInterval     int            `json:"water_interval"` // minutes
	WaterStart        string         `json:"water_start"`    // HH:MM
	WaterEnd          string         `json:"water_end"`      // HH:MM
	MotivationEnabled bool           `json:"motivation_enabled"`
	MotivationTime    string         `json:"motivation_time"` // HH:MM
	HealthEnabled     bool           `json:"health_enabled"`
	HealthTime        string         `json:"health_time"` // HH:MM
	HealthDays        []time.Weekday `json:"health_days"`
}

// DefaultReminderSettings returns the settings installed on first permission grant
func DefaultReminderSettings() ReminderSettings {
	return ReminderSettings{
		WaterEnabled:      true,
		WaterInterval:     45,
		WaterStart:        "07:00",
		WaterEnd:          "21:00",
		MotivationEnabled: true,
		MotivationTime:    "07:30",
		HealthEnabled:     true,
		HealthTime:        "19:00",
		HealthDays:        []time.Weekday{time.Sunday, time.Wednesday, time.Saturday},
	}
}

// Validate checks times and the water interval
func (s *ReminderSettings) Validate() error {
	if s.WaterInterval <= 0 {
		return fmt.Errorf("water interval must be positive, got %d", s.WaterInterval)
	}
	for name, v := range map[string]string{
		"water start":     s.WaterStart,
		"water end":       s.WaterEnd,
		"motivation time": s.MotivationTime,
		"health time":     s.HealthTime,
	} {
		if _, err := ParseClock(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	for _, d := range s.HealthDays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("invalid weekday %d", d)
		}
	}
	return nil
}

// ToMap renders the settings as persisted key/value pairs
func (s *ReminderSettings) ToMap() map[string]string {
	return map[string]string{
		KeyWaterInterval:     strconv.Itoa(s.WaterInterval),
		KeyWaterStart:        s.WaterStart,
		KeyWaterEnd:          s.WaterEnd,
		KeyWaterEnabled:      strconv.FormatBool(s.WaterEnabled),
		KeyMotivationTime:    s.MotivationTime,
		KeyMotivationEnabled: strconv.FormatBool(s.MotivationEnabled),
		KeyHealthTime:        s.HealthTime,
		KeyHealthDays:        FormatDays(s.HealthDays),
		KeyHealthEnabled:     strconv.FormatBool(s.HealthEnabled),
	}
}

// ReminderSettingsFromMap overlays persisted pairs on the defaults.
// Missing or unparsable values keep their default.
func ReminderSettingsFromMap(kv map[string]string) ReminderSettings {
	s := DefaultReminderSettings()

	if v, ok := kv[KeyWaterInterval]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.WaterInterval = n
		}
	}
	overlayClock(kv, KeyWaterStart, &s.WaterStart)
	overlayClock(kv, KeyWaterEnd, &s.WaterEnd)
	overlayClock(kv, KeyMotivationTime, &s.MotivationTime)
	overlayClock(kv, KeyHealthTime, &s.HealthTime)
	overlayBool(kv, KeyWaterEnabled, &s.WaterEnabled)
	overlayBool(kv, KeyMotivationEnabled, &s.MotivationEnabled)
	overlayBool(kv, KeyHealthEnabled, &s.HealthEnabled)

	if v, ok := kv[KeyHealthDays]; ok {
		if days, err := ParseDays(v); err == nil {
			s.HealthDays = days
		}
	}
	return s
}

func overlayClock(kv map[string]string, key string, dst *string) {
	if v, ok := kv[key]; ok {
		if _, err := ParseClock(v); err == nil {
			*dst = strings.TrimSpace(v)
		}
	}
}

func overlayBool(kv map[string]string, key string, dst *bool) {
	if v, ok := kv[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseDays parses a comma-separated list of weekday numbers (0-6) or
// three-letter names. The result is sorted and de-duplicated.
func ParseDays(s string) ([]time.Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if d, ok := weekdayNames[part]; ok {
			days = append(days, d)
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	slices.Sort(days)
	return slices.Compact(days), nil
}

// FormatDays renders weekdays as comma-separated numbers
func FormatDays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

package models

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	got, err := ParseClock("07:30")
	if err != nil || got != 7*60+30 {
		t.Errorf("ParseClock(07:30) = %d, %v", got, err)
	}
	if _, err := ParseClock("7.30"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("expected ErrInvalidTime, got %v", err)
	}
	if FormatClock(got) != "07:30" {
		t.Errorf("FormatClock() = %q", FormatClock(got))
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{"daily ok", Schedule{ID: "a", Kind: KindMotivation, Rule: DailyAt("07:30")}, false},
		{"interval ok", Schedule{ID: "a", Kind: KindWater, Rule: Every(time.Hour, "07:00", "21:00")}, false},
		{"once ok", Schedule{ID: "a", Kind: KindTask, Rule: Once(time.Time{})}, false},
		{"missing id", Schedule{Kind: KindWater, Rule: DailyAt("07:30")}, true},
		{"colon in id", Schedule{ID: "daily:stretch", Kind: KindWater, Rule: DailyAt("07:30")}, true},
		{"space in id", Schedule{ID: "daily stretch", Kind: KindWater, Rule: DailyAt("07:30")}, true},
		{"long id", Schedule{ID: strings.Repeat("t", MaxIDLength+1), Kind: KindWater, Rule: DailyAt("07:30")}, true},
		{"longest id", Schedule{ID: strings.Repeat("t", MaxIDLength), Kind: KindWater, Rule: DailyAt("07:30")}, false},
		{"bad kind", Schedule{ID: "a", Kind: "laundry", Rule: DailyAt("07:30")}, true},
		{"bad daily time", Schedule{ID: "a", Kind: KindWater, Rule: DailyAt("")}, true},
		{"bad window", Schedule{ID: "a", Kind: KindWater, Rule: Every(time.Hour, "late", "")}, true},
		{"bad frequency", Schedule{ID: "a", Kind: KindWater, Rule: Rule{Frequency: "hourly"}}, true},
		{"bad weekday", Schedule{ID: "a", Kind: KindWater, Rule: DailyAt("07:30"), Days: []time.Weekday{8}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScheduleCloneIsDeep(t *testing.T) {
	s := Schedule{
		ID:   "a",
		Days: []time.Weekday{time.Monday},
		Template: Template{
			Payload: Payload{Data: map[string]string{"type": "water"}, Actions: []Action{{ID: "x"}}},
			Pool:    []string{"one"},
		},
	}
	c := s.Clone()
	c.Days[0] = time.Friday
	c.Template.Payload.Data["type"] = "task"
	c.Template.Payload.Actions[0].ID = "y"
	c.Template.Pool[0] = "two"

	if s.Days[0] != time.Monday || s.Template.Payload.Data["type"] != "water" ||
		s.Template.Payload.Actions[0].ID != "x" || s.Template.Pool[0] != "one" {
		t.Error("Clone() shares state with the original")
	}
}

func TestPayloadWithDefaults(t *testing.T) {
	p := Payload{Title: "t", Icon: "/custom.png"}.WithDefaults()

	if p.Icon != "/custom.png" {
		t.Errorf("Icon overwritten: %q", p.Icon)
	}
	if p.Badge != DefaultBadge || p.Tag != DefaultTag {
		t.Errorf("defaults not applied: badge=%q tag=%q", p.Badge, p.Tag)
	}
	if p.Data == nil {
		t.Error("Data should be initialised")
	}
}

func TestSameDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	a := time.Date(2026, 10, 15, 23, 30, 0, 0, loc)
	b := time.Date(2026, 10, 15, 16, 30, 0, 0, time.UTC) // 00:30 next day in loc

	if SameDay(a, b, loc) {
		t.Error("expected different days in UTC+8")
	}
	if !SameDay(a, b, time.UTC) {
		t.Error("expected same day in UTC")
	}
}

func TestRuleInWindow(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 10, 15, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name string
		rule Rule
		at   time.Time
		want bool
	}{
		{"inside", Every(time.Hour, "07:00", "21:00"), day(12, 0), true},
		{"start inclusive", Every(time.Hour, "07:00", "21:00"), day(7, 0), true},
		{"end inclusive", Every(time.Hour, "07:00", "21:00"), day(21, 0), true},
		{"before", Every(time.Hour, "07:00", "21:00"), day(6, 59), false},
		{"after", Every(time.Hour, "07:00", "21:00"), day(21, 1), false},
		{"overnight late", Every(time.Hour, "22:00", "02:00"), day(23, 30), true},
		{"overnight early", Every(time.Hour, "22:00", "02:00"), day(1, 0), true},
		{"overnight gap", Every(time.Hour, "22:00", "02:00"), day(12, 0), false},
		{"open window", Every(time.Hour, "", ""), day(3, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.InWindow(tt.at); got != tt.want {
				t.Errorf("InWindow(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

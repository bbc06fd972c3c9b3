package metrics

import (
	"testing"

	"github.com/hray3182/Athena/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDeliveredCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())
	water := models.Payload{Data: map[string]string{"type": "water"}}

	m.Delivered(water, "worker", true)
	m.Delivered(water, "worker", true)
	m.Delivered(water, "direct", false)
	m.Delivered(models.Payload{Data: map[string]string{"type": "laundry"}}, "worker", true)

	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("worker", "water", "ok")); got != 2 {
		t.Errorf("worker ok = %v", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("direct", "water", "failed")); got != 1 {
		t.Errorf("direct failed = %v", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("worker", "other", "ok")); got != 1 {
		t.Errorf("unknown kind = %v", got)
	}
}

func TestClicksAndChanges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	size := 3
	m.TrackRegistry(func() int { return size })

	m.Clicked(models.ClickMessage{NotificationData: map[string]string{"type": "health"}, Action: "open-health"})
	m.Clicked(models.ClickMessage{})
	m.ScheduleChanged("water-reminder", "upsert")

	if got := testutil.ToFloat64(m.clicks.WithLabelValues("health", "open-health")); got != 1 {
		t.Errorf("health clicks = %v", got)
	}
	if got := testutil.ToFloat64(m.clicks.WithLabelValues("other", "default")); got != 1 {
		t.Errorf("default clicks = %v", got)
	}
	if got := testutil.ToFloat64(m.changes.WithLabelValues("upsert")); got != 1 {
		t.Errorf("upserts = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg, "athena_schedules_registered"); err != nil || n != 1 {
		t.Errorf("registry gauge count = %d, %v", n, err)
	}
}

func TestClickActionLabels(t *testing.T) {
	m := New(prometheus.NewRegistry())
	health := map[string]string{"type": "health"}

	m.Clicked(models.ClickMessage{NotificationData: health, Action: "open-health"})
	m.Clicked(models.ClickMessage{NotificationData: health, Action: "snooze-1"})
	m.Clicked(models.ClickMessage{NotificationData: health, Action: "snooze-2"})
	m.Clicked(models.ClickMessage{NotificationData: health})

	if n := testutil.CollectAndCount(m.clicks); n != 3 {
		t.Errorf("click series = %d, want 3", n)
	}

	tests := []struct {
		action string
		want   float64
	}{
		{"open-health", 1},
		{"other", 2},
		{"default", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.clicks.WithLabelValues("health", tt.action)); got != tt.want {
			t.Errorf("clicks[%s] = %v, want %v", tt.action, got, tt.want)
		}
	}
}

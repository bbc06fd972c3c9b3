package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hray3182/Athena/internal/models"
)

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewPublisher("")
	if err != nil {
		t.Fatal(err)
	}
	if p.Enabled() {
		t.Fatal("publisher without URI should be disabled")
	}

	p.Delivered(models.Payload{Tag: "x"}, "worker", true)
	p.Clicked(models.ClickMessage{})
	p.ScheduleChanged("water-reminder", "upsert")
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestDeliveredEvent(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	p := models.Payload{Tag: "water-reminder", Data: map[string]string{"type": "water", "id": "water-reminder"}}

	e := deliveredEvent(p, "direct", false, now)
	body, _ := json.Marshal(e)

	var got map[string]any
	json.Unmarshal(body, &got)
	want := map[string]any{
		"event_type":  TypeDelivered,
		"schedule_id": "water-reminder",
		"kind":        "water",
		"tag":         "water-reminder",
		"channel":     "direct",
		"delivered":   false,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestClickedEvent(t *testing.T) {
	msg := models.ClickMessage{
		Type:             models.ClickMessageType,
		Action:           "open-health",
		NotificationData: map[string]string{"type": "health", "id": "health-check"},
		URL:              "/health",
	}

	e := clickedEvent(msg, time.Now())
	if e.Type != TypeClicked || e.ScheduleID != "health-check" || e.Kind != "health" || e.URL != "/health" {
		t.Errorf("event = %+v", e)
	}
}

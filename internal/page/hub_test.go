package page

import (
	"context"
	"testing"
	"time"

	"github.com/hray3182/Athena/internal/models"
)

func TestHubDeliverRequiresOpenPage(t *testing.T) {
	h := NewHub()

	if h.Available() || h.Deliver(context.Background(), models.Payload{Title: "x"}) {
		t.Fatal("delivery without open pages should fail")
	}

	a, b := h.Open(), h.Open()
	if !h.Deliver(context.Background(), models.Payload{Title: "Hydration Reminder"}) {
		t.Fatal("Deliver() = false with open pages")
	}
	for _, s := range []*Session{a, b} {
		e := <-s.Events()
		if e.Name != EventNotification || e.Data.(models.Payload).Title != "Hydration Reminder" {
			t.Errorf("session %s got %+v", s.ID, e)
		}
	}
}

func TestHubFocusLatest(t *testing.T) {
	h := NewHub()
	if h.FocusLatest(models.ClickMessage{}) {
		t.Fatal("FocusLatest() with no pages should be false")
	}

	older, newer := h.Open(), h.Open()
	older.Focused = time.Now().Add(-time.Hour)
	newer.Focused = time.Now().Add(-2 * time.Hour)
	h.Focus(older.ID)

	msg := models.ClickMessage{Type: models.ClickMessageType, URL: "/health"}
	if !h.FocusLatest(msg) {
		t.Fatal("FocusLatest() = false")
	}

	select {
	case e := <-older.Events():
		if e.Name != EventMessage || e.Data.(models.ClickMessage).URL != "/health" {
			t.Errorf("got %+v", e)
		}
	default:
		t.Fatal("focused page received nothing")
	}
	select {
	case e := <-newer.Events():
		t.Errorf("unfocused page received %+v", e)
	default:
	}
}

func TestHubCloseAndFullBuffer(t *testing.T) {
	h := NewHub()
	h.buffer = 1
	s := h.Open()

	h.Deliver(context.Background(), models.Payload{Title: "one"})
	if h.Deliver(context.Background(), models.Payload{Title: "two"}) {
		t.Error("full session should not count as delivered")
	}

	h.Close(s.ID)
	h.Close(s.ID)
	if h.Len() != 0 {
		t.Errorf("Len() = %d", h.Len())
	}
	<-s.Events()
	if _, ok := <-s.Events(); ok {
		t.Error("events channel should be closed")
	}
	if h.Focus(s.ID) {
		t.Error("Focus() on closed session")
	}
}

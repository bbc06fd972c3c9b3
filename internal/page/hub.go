package page

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hray3182/Athena/internal/models"
)

// Event names pushed to pages over the stream
const (
	EventNotification = "notification"
	EventMessage      = "message"
)

// Event is one server-sent event
type Event struct {
	Name string
	Data any
}

// Session is an open application window listening for events
type Session struct {
	ID      uuid.UUID
	Opened  time.Time
	Focused time.Time
	events  chan Event
}

func (s *Session) Events() <-chan Event {
	return s.events
}

// Hub tracks the open pages. It is the foreground delivery channel and the
// target of notification clicks.
type Hub struct {
	mu       sync.Mutex
	sessions []*Session
	buffer   int
}

func NewHub() *Hub {
	return &Hub{buffer: 16}
}

// Open registers a new page session
func (h *Hub) Open() *Session {
	now := time.Now()
	s := &Session{
		ID:      uuid.New(),
		Opened:  now,
		Focused: now,
		events:  make(chan Event, h.buffer),
	}

	h.mu.Lock()
	h.sessions = append(h.sessions, s)
	h.mu.Unlock()

	log.Printf("[page] Session %s opened", s.ID)
	return s
}

// Close removes the session and closes its event channel
func (h *Hub) Close(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := slices.IndexFunc(h.sessions, func(s *Session) bool { return s.ID == id })
	if i < 0 {
		return
	}
	close(h.sessions[i].events)
	h.sessions = slices.Delete(h.sessions, i, i+1)
	log.Printf("[page] Session %s closed", id)
}

// Focus marks the session as the one the user looked at last
func (h *Hub) Focus(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, s := range h.sessions {
		if s.ID == id {
			s.Focused = time.Now()
			return true
		}
	}
	return false
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) Available() bool {
	return h.Len() > 0
}

// Deliver shows p on every open page. False when no page is open.
func (h *Hub) Deliver(_ context.Context, p models.Payload) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.sessions) == 0 {
		return false
	}
	delivered := false
	for _, s := range h.sessions {
		if h.send(s, Event{Name: EventNotification, Data: p}) {
			delivered = true
		}
	}
	return delivered
}

// FocusLatest brings the most recently focused page forward and sends it msg.
// False when no page is open.
func (h *Hub) FocusLatest(msg models.ClickMessage) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.sessions) == 0 {
		return false
	}
	latest := slices.MaxFunc(h.sessions, func(a, b *Session) int {
		return a.Focused.Compare(b.Focused)
	})
	latest.Focused = time.Now()
	return h.send(latest, Event{Name: EventMessage, Data: msg})
}

// send never blocks; a page that stopped reading loses the event
func (h *Hub) send(s *Session, e Event) bool {
	select {
	case s.events <- e:
		return true
	default:
		log.Printf("[page] Session %s is not reading, dropping %s event", s.ID, e.Name)
		return false
	}
}

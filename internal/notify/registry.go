package notify

import (
	"sync"

	"github.com/hray3182/Athena/internal/models"
)

// Registry holds the active schedules keyed by identity.
// At most one schedule exists per ID.
type Registry struct {
	mu        sync.Mutex
	schedules []models.Schedule
	onClear   []func()
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Upsert replaces any schedule sharing s.ID, then inserts s.
// It does not start the scheduler.
func (r *Registry) Upsert(s models.Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(s.ID)
	r.schedules = append(r.schedules, s.Clone())
}

// Reschedule is Upsert that keeps the firing history of the schedule it
// replaces when s carries none, so editing a rule does not reset its clock.
func (r *Registry) Reschedule(s models.Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.LastFired.IsZero() {
		for _, old := range r.schedules {
			if old.ID == s.ID {
				s.LastFired = old.LastFired
				break
			}
		}
	}
	r.removeLocked(s.ID)
	r.schedules = append(r.schedules, s.Clone())
}

// Remove deletes the schedule with the given ID if present
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	kept := r.schedules[:0]
	for _, s := range r.schedules {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	// Clear the tail so removed schedules can be collected
	for i := len(kept); i < len(r.schedules); i++ {
		r.schedules[i] = models.Schedule{}
	}
	r.schedules = kept
}

// Toggle sets the enabled flag. Returns false when id is not registered.
func (r *Registry) Toggle(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.schedules {
		if r.schedules[i].ID == id {
			r.schedules[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Get returns a copy of the schedule with the given ID
func (r *Registry) Get(id string) (models.Schedule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.schedules {
		if s.ID == id {
			return s.Clone(), true
		}
	}
	return models.Schedule{}, false
}

// List returns a snapshot of all schedules in registration order
func (r *Registry) List() []models.Schedule {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Schedule, len(r.schedules))
	for i, s := range r.schedules {
		out[i] = s.Clone()
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.schedules)
}

// OnClear registers fn to run after Clear empties the registry
func (r *Registry) OnClear(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onClear = append(r.onClear, fn)
}

// Clear empties the registry and signals the listeners (the scheduler stops)
func (r *Registry) Clear() {
	r.mu.Lock()
	r.schedules = nil
	hooks := append([]func(){}, r.onClear...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

// evaluate runs fn over every schedule while holding the lock, so a whole
// tick pass observes one consistent registry state.
func (r *Registry) evaluate(fn func(s *models.Schedule)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.schedules {
		fn(&r.schedules[i])
	}
}

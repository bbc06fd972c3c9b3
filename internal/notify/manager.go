package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hray3182/Athena/internal/models"
)

var ErrUnknownSchedule = errors.New("schedule not registered")

// ChangeObserver is told when a schedule is added, changed or removed
type ChangeObserver interface {
	ScheduleChanged(id, op string)
}

// ChangeObservers fans a change out to several observers
type ChangeObservers []ChangeObserver

func (c ChangeObservers) ScheduleChanged(id, op string) {
	for _, o := range c {
		o.ScheduleChanged(id, op)
	}
}

// Manager is the single entry point the settings surfaces use. It owns the
// registry and starts the scheduler on the first registration.
type Manager struct {
	ctx       context.Context
	registry  *Registry
	scheduler *Scheduler
	gate      *Gate
	store     KV
	changes   ChangeObserver
}

func NewManager(ctx context.Context, registry *Registry, scheduler *Scheduler, gate *Gate, store KV, changes ChangeObserver) *Manager {
	return &Manager{
		ctx:       ctx,
		registry:  registry,
		scheduler: scheduler,
		gate:      gate,
		store:     store,
		changes:   changes,
	}
}

func (m *Manager) Registry() *Registry { return m.registry }
func (m *Manager) Gate() *Gate         { return m.gate }

// Schedule registers s, replacing any schedule with the same ID, and makes
// sure the loop is running. A replaced schedule's LastFired carries over.
func (m *Manager) Schedule(s models.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.registry.Reschedule(s)
	if m.scheduler.Start(m.ctx) {
		log.Println("[notify] Scheduler loop created")
	}
	if s.Rule.Frequency == models.FrequencyOnce && s.Rule.At.IsZero() {
		m.scheduler.Notify()
	}
	m.changed(s.ID, "upsert")
	return nil
}

func (m *Manager) ScheduleWaterReminders(intervalMinutes int, start, end string) error {
	return m.Schedule(WaterReminder(intervalMinutes, start, end))
}

func (m *Manager) ScheduleMorningMotivation(clock string) error {
	return m.Schedule(MorningMotivation(clock))
}

func (m *Manager) ScheduleHealthCheck(clock string, days []time.Weekday) error {
	return m.Schedule(HealthCheckReminder(clock, days))
}

// Toggle enables or disables a registered schedule
func (m *Manager) Toggle(id string, enabled bool) error {
	if !m.registry.Toggle(id, enabled) {
		return fmt.Errorf("%w: %s", ErrUnknownSchedule, id)
	}
	m.changed(id, "toggle")
	return nil
}

func (m *Manager) Remove(id string) {
	m.registry.Remove(id)
	m.changed(id, "remove")
}

func (m *Manager) List() []models.Schedule {
	return m.registry.List()
}

// ClearAll empties the registry and tears the loop down
func (m *Manager) ClearAll() {
	m.registry.Clear()
	m.changed("*", "clear")
}

// InstallDefaults registers the built-in reminders with default settings
// and persists them.
func (m *Manager) InstallDefaults(ctx context.Context) error {
	return m.SaveSettings(ctx, models.DefaultReminderSettings())
}

// ApplySettings brings the registry in line with s: enabled categories are
// (re)registered, disabled ones removed.
func (m *Manager) ApplySettings(s models.ReminderSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	apply := func(enabled bool, id string, build func() models.Schedule) error {
		if !enabled {
			if _, ok := m.registry.Get(id); ok {
				m.Remove(id)
			}
			return nil
		}
		return m.Schedule(build())
	}

	if err := apply(s.WaterEnabled, WaterReminderID, func() models.Schedule {
		return WaterReminder(s.WaterInterval, s.WaterStart, s.WaterEnd)
	}); err != nil {
		return err
	}
	if err := apply(s.MotivationEnabled, MorningMotivationID, func() models.Schedule {
		return MorningMotivation(s.MotivationTime)
	}); err != nil {
		return err
	}
	return apply(s.HealthEnabled, HealthCheckID, func() models.Schedule {
		return HealthCheckReminder(s.HealthTime, s.HealthDays)
	})
}

// LoadSettings reads the persisted settings, falling back to defaults per key
func (m *Manager) LoadSettings(ctx context.Context) (models.ReminderSettings, error) {
	kv, err := m.store.All(ctx)
	if err != nil {
		return models.ReminderSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return models.ReminderSettingsFromMap(kv), nil
}

// SaveSettings persists s and re-applies it when notifications are allowed
func (m *Manager) SaveSettings(ctx context.Context, s models.ReminderSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := m.store.SetMany(ctx, s.ToMap()); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if !m.gate.Granted() {
		return nil
	}
	return m.ApplySettings(s)
}

// Restore re-applies persisted settings at start-up. Nothing is scheduled
// until permission has been granted.
func (m *Manager) Restore(ctx context.Context) error {
	if !m.gate.Granted() {
		log.Printf("[notify] Permission is %s, reminders not restored", m.gate.CurrentStatus())
		return nil
	}
	s, err := m.LoadSettings(ctx)
	if err != nil {
		return err
	}
	return m.ApplySettings(s)
}

// Enable prompts for permission and installs the persisted (or default)
// reminders when it is granted.
func (m *Manager) Enable(ctx context.Context) (Status, error) {
	status := m.gate.CurrentStatus()
	if status != StatusGranted {
		status = m.gate.RequestStatus(ctx)
	}
	if status != StatusGranted {
		return status, nil
	}
	return status, m.Restore(ctx)
}

func (m *Manager) changed(id, op string) {
	if m.changes != nil {
		m.changes.ScheduleChanged(id, op)
	}
}

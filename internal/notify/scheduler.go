package notify

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/hray3182/Athena/internal/models"
)

// Composer writes a fresh body for a kind at fire time
type Composer interface {
	Compose(ctx context.Context, kind models.Kind) (string, error)
}

type Scheduler struct {
	registry      *Registry
	sink          Sink
	composer      Composer
	checkInterval time.Duration
	loc           *time.Location
	now           func() time.Time
	pick          func(n int) int
	notifyCh      chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

// WithCheckInterval overrides the one-minute tick
func WithCheckInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.checkInterval = d }
}

func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) { s.loc = loc }
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithPicker replaces the random index source used for message pools
func WithPicker(pick func(n int) int) SchedulerOption {
	return func(s *Scheduler) { s.pick = pick }
}

func WithComposer(c Composer) SchedulerOption {
	return func(s *Scheduler) { s.composer = c }
}

// NewScheduler creates a stopped scheduler. Clearing the registry stops it.
func NewScheduler(registry *Registry, sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		registry:      registry,
		sink:          sink,
		checkInterval: 1 * time.Minute,
		loc:           time.Local,
		now:           time.Now,
		pick:          rand.Intn,
		notifyCh:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	registry.OnClear(s.Stop)
	return s
}

// Start launches the tick loop. Returns false if it is already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		s.run(ctx)
	}()
	return true
}

// Stop cancels the timer and waits for the loop to exit. The registry is untouched.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	log.Printf("[scheduler] Started (interval %s)", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] Stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		case <-s.notifyCh:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	fired := s.Evaluate(s.now())
	if len(fired) == 0 {
		return
	}

	// Deliveries outlive a Stop; only the timer is cancelled
	deliverCtx := context.WithoutCancel(ctx)
	for _, p := range fired {
		go s.dispatch(deliverCtx, p)
	}
}

// Evaluate runs one pass over the registry at now and returns the payloads
// that fired. Firing state (last fired, one-shot disable) is recorded.
func (s *Scheduler) Evaluate(now time.Time) []models.Payload {
	now = now.In(s.loc)

	var fired []models.Payload
	s.registry.evaluate(func(sch *models.Schedule) {
		if due(sch, now, s.loc) {
			fired = append(fired, s.materialize(sch, now))
		}
	})
	return fired
}

func (s *Scheduler) materialize(sch *models.Schedule, now time.Time) models.Payload {
	p := sch.Template.Payload.Clone()
	if pool := sch.Template.Pool; len(pool) > 0 {
		p.Body = pool[s.pick(len(pool))]
	}
	if p.Data == nil {
		p.Data = map[string]string{}
	}
	if p.Data["type"] == "" {
		p.Data["type"] = string(sch.Kind)
	}
	p.Data["id"] = sch.ID
	p.Timestamp = now
	return p
}

func (s *Scheduler) dispatch(ctx context.Context, p models.Payload) {
	if s.composer != nil && p.Kind() == models.KindMotivation {
		composeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		body, err := s.composer.Compose(composeCtx, p.Kind())
		cancel()
		if err != nil {
			log.Printf("[scheduler] Compose failed, using pooled message: %v", err)
		} else if body != "" {
			p.Body = body
		}
	}

	if !s.sink.Deliver(ctx, p) {
		log.Printf("[scheduler] Delivery of %s (%s) did not go through", p.Data["id"], p.Tag)
	}
}

package notify

import (
	"context"
	"log"

	"github.com/hray3182/Athena/internal/models"
)

// Sink is a channel that can put a notification in front of the user
type Sink interface {
	Deliver(ctx context.Context, p models.Payload) bool
	Available() bool
}

// Observer is told about every delivery attempt that reached a channel
type Observer interface {
	Delivered(p models.Payload, channel string, ok bool)
}

// PermissionChecker reports the current permission without prompting
type PermissionChecker interface {
	Granted() bool
}

const (
	ChannelWorker = "worker"
	ChannelDirect = "direct"
)

// Deliverer routes payloads to the background worker when it is active and to
// the foreground sink otherwise. It never returns an error: failures are false.
type Deliverer struct {
	gate      PermissionChecker
	worker    Sink
	direct    Sink
	observers []Observer
}

func NewDeliverer(gate PermissionChecker, worker, direct Sink, observers ...Observer) *Deliverer {
	return &Deliverer{
		gate:      gate,
		worker:    worker,
		direct:    direct,
		observers: observers,
	}
}

func (d *Deliverer) Available() bool {
	return available(d.worker) || available(d.direct)
}

func (d *Deliverer) Deliver(ctx context.Context, p models.Payload) bool {
	if d.gate != nil && !d.gate.Granted() {
		log.Println("[notify] Notification permission not granted")
		return false
	}

	p = p.WithDefaults()

	switch {
	case available(d.worker):
		return d.observe(p, ChannelWorker, d.worker.Deliver(ctx, p))
	case available(d.direct):
		return d.observe(p, ChannelDirect, d.direct.Deliver(ctx, p))
	}

	log.Printf("[notify] No delivery channel for %q, dropping", p.Tag)
	return false
}

func (d *Deliverer) observe(p models.Payload, channel string, ok bool) bool {
	for _, o := range d.observers {
		o.Delivered(p, channel, ok)
	}
	return ok
}

func available(s Sink) bool {
	return s != nil && s.Available()
}

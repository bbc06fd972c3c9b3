package metrics

import (
	"github.com/hray3182/Athena/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts deliveries, clicks and schedule changes
type Metrics struct {
	deliveries *prometheus.CounterVec
	clicks     *prometheus.CounterVec
	changes    *prometheus.CounterVec
	factory    promauto.Factory
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		factory: factory,
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "athena_notifications_delivered_total",
				Help: "Notification delivery attempts by channel, kind and result",
			},
			[]string{"channel", "kind", "result"},
		),
		clicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "athena_notification_clicks_total",
				Help: "Notification clicks by kind and action",
			},
			[]string{"kind", "action"},
		),
		changes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "athena_schedule_changes_total",
				Help: "Schedule registry changes by operation",
			},
			[]string{"op"},
		),
	}
}

// TrackRegistry exports the number of registered schedules
func (m *Metrics) TrackRegistry(size func() int) {
	m.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "athena_schedules_registered",
			Help: "Schedules currently in the registry",
		},
		func() float64 { return float64(size()) },
	)
}

func (m *Metrics) Delivered(p models.Payload, channel string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.deliveries.WithLabelValues(channel, kindLabel(p.Kind()), result).Inc()
}

// clickActions are the button ids the built-in schedules carry
var clickActions = map[string]bool{"open-health": true}

func (m *Metrics) Clicked(msg models.ClickMessage) {
	m.clicks.WithLabelValues(kindLabel(models.Kind(msg.NotificationData["type"])), actionLabel(msg.Action)).Inc()
}

func (m *Metrics) ScheduleChanged(_, op string) {
	m.changes.WithLabelValues(op).Inc()
}

// actionLabel keeps client supplied action ids out of the label set
func actionLabel(action string) string {
	switch {
	case action == "":
		return "default"
	case clickActions[action]:
		return action
	default:
		return "other"
	}
}

// kindLabel bounds label cardinality to the known kinds
func kindLabel(k models.Kind) string {
	if k.Valid() {
		return string(k)
	}
	return "other"
}

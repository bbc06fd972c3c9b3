package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hray3182/Athena/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "athena.notifications"

// Routing keys
const (
	TypeDelivered       = "notification.delivered"
	TypeClicked         = "notification.clicked"
	TypeScheduleChanged = "schedule.changed"
)

// Event is the JSON body published for every notification event
type Event struct {
	Type       string            `json:"event_type"`
	ScheduleID string            `json:"schedule_id,omitempty"`
	Op         string            `json:"op,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Tag        string            `json:"tag,omitempty"`
	Channel    string            `json:"channel,omitempty"`
	Delivered  *bool             `json:"delivered,omitempty"`
	Action     string            `json:"action,omitempty"`
	URL        string            `json:"url,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher fans notification events out to a RabbitMQ topic exchange. With
// no URI configured it is a no-op.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	enabled bool
	now     func() time.Time
}

func NewPublisher(uri string) (*Publisher, error) {
	if uri == "" {
		log.Println("[event] RabbitMQ URI is empty, event publishing is disabled")
		return &Publisher{now: time.Now}, nil
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("[event] Publishing to exchange %s", Exchange)
	return &Publisher{conn: conn, channel: channel, enabled: true, now: time.Now}, nil
}

func (p *Publisher) Enabled() bool { return p.enabled }

func (p *Publisher) Delivered(payload models.Payload, channel string, ok bool) {
	p.publish(deliveredEvent(payload, channel, ok, p.now()))
}

func (p *Publisher) Clicked(msg models.ClickMessage) {
	p.publish(clickedEvent(msg, p.now()))
}

func (p *Publisher) ScheduleChanged(id, op string) {
	p.publish(Event{Type: TypeScheduleChanged, ScheduleID: id, Op: op, Timestamp: p.now()})
}

func deliveredEvent(payload models.Payload, channel string, ok bool, now time.Time) Event {
	return Event{
		Type:       TypeDelivered,
		ScheduleID: payload.Data["id"],
		Kind:       string(payload.Kind()),
		Tag:        payload.Tag,
		Channel:    channel,
		Delivered:  &ok,
		Timestamp:  now,
	}
}

func clickedEvent(msg models.ClickMessage, now time.Time) Event {
	return Event{
		Type:       TypeClicked,
		ScheduleID: msg.NotificationData["id"],
		Kind:       msg.NotificationData["type"],
		Action:     msg.Action,
		URL:        msg.URL,
		Data:       msg.NotificationData,
		Timestamp:  now,
	}
}

// publish logs failures; events are best effort
func (p *Publisher) publish(e Event) {
	if !p.enabled {
		return
	}

	body, err := json.Marshal(e)
	if err != nil {
		log.Printf("[event] Failed to marshal %s: %v", e.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		Exchange, // exchange
		e.Type,   // routing key
		false,    // mandatory
		false,    // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.Timestamp,
			Body:         body,
			Headers: amqp.Table{
				"event_type": e.Type,
			},
		},
	)
	if err != nil {
		log.Printf("[event] Failed to publish %s: %v", e.Type, err)
	}
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		log.Printf("[event] Failed to close channel: %v", err)
	}
	return p.conn.Close()
}

package models

import (
	"maps"
	"slices"
	"time"
)

const (
	DefaultIcon  = "/icons/icon-192x192.png"
	DefaultBadge = "/icons/badge-96x96.png"
	DefaultTag   = "default"
)

// Action is a button shown on a notification
type Action struct {
	ID    string `json:"action"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

// Payload is the rendered content of one delivery
type Payload struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Icon      string            `json:"icon,omitempty"`
	Badge     string            `json:"badge,omitempty"`
	Tag       string            `json:"tag,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Actions   []Action          `json:"actions,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitzero"`
}

// Kind returns the reminder kind carried in the metadata bag
func (p Payload) Kind() Kind {
	return Kind(p.Data["type"])
}

// WithDefaults fills in icon, badge and tag when they are missing
func (p Payload) WithDefaults() Payload {
	p = p.Clone()
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Badge == "" {
		p.Badge = DefaultBadge
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	if p.Data == nil {
		p.Data = map[string]string{}
	}
	return p
}

func (p Payload) Clone() Payload {
	p.Data = maps.Clone(p.Data)
	p.Actions = slices.Clone(p.Actions)
	return p
}

// ClickMessageType is the message type sent to a page when one of its
// notifications is clicked.
const ClickMessageType = "NOTIFICATION_CLICKED"

// ClickMessage tells an open page which notification was clicked and where
// it leads.
type ClickMessage struct {
	Type             string            `json:"type"`
	Action           string            `json:"action"`
	NotificationData map[string]string `json:"notificationData"`
	URL              string            `json:"url"`
}

// Package webhook provides delivery deduplication for inbound messaging
// events. Platforms such as the WhatsApp Cloud API retry webhook deliveries
// until acknowledged, so the same message may arrive more than once; the
// Gate guarantees each event is processed at most once within a retention
// window and drops deliveries that are too old to be worth answering.
package webhook

import "time"

// EventType classifies an inbound message payload.
type EventType string

const (
	EventText     EventType = "text"
	EventDocument EventType = "document"
	EventImage    EventType = "image"
)

// InboundEvent is a single inbound message extracted from a webhook payload.
type InboundEvent struct {
	// ID is the platform-assigned message identifier, unique per delivery
	// attempt group. Retried deliveries carry the same ID.
	ID string

	// SenderID identifies the conversation the message belongs to.
	SenderID string

	// Timestamp is the platform send time of the message.
	Timestamp time.Time

	Type EventType

	// Body is the text content for text events, or the caption for media.
	Body string
}

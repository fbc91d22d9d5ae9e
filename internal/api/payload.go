package api

import (
	"strconv"
	"time"

	"github.com/realtyai/concierge/internal/webhook"
)

// notification mirrors the WhatsApp Cloud API webhook payload, reduced to
// the fields this service reads.
// https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/payload-examples
type notification struct {
	Entry []struct {
		Changes []struct {
			Value changeValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type changeValue struct {
	Contacts []struct {
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []inboundMessage `json:"messages"`
	Statuses []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"statuses"`
}

type inboundMessage struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp"`
	Text      *textValue `json:"text,omitempty"`
	Document  *mediaInfo `json:"document,omitempty"`
	Image     *mediaInfo `json:"image,omitempty"`
}

type textValue struct {
	Body string `json:"body"`
}

type mediaInfo struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
	Caption  string `json:"caption"`
}

// isStatusUpdate reports whether the payload is a sent/delivered/read
// notification rather than a new message.
func (n *notification) isStatusUpdate() bool {
	v := n.value()
	return v != nil && len(v.Statuses) > 0
}

func (n *notification) value() *changeValue {
	if len(n.Entry) == 0 || len(n.Entry[0].Changes) == 0 {
		return nil
	}
	return &n.Entry[0].Changes[0].Value
}

// event extracts the first inbound message as a typed event. Returns false
// when the payload carries no recognizable message.
func (n *notification) event() (webhook.InboundEvent, *inboundMessage, bool) {
	v := n.value()
	if v == nil || len(v.Messages) == 0 || len(v.Contacts) == 0 {
		return webhook.InboundEvent{}, nil, false
	}

	msg := &v.Messages[0]
	ev := webhook.InboundEvent{
		ID:       msg.ID,
		SenderID: v.Contacts[0].WaID,
		Type:     webhook.EventType(msg.Type),
	}
	if unix, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
		ev.Timestamp = time.Unix(unix, 0)
	}
	switch {
	case msg.Type == "text" && msg.Text != nil:
		ev.Body = msg.Text.Body
	case msg.Type == "document" && msg.Document != nil:
		ev.Body = msg.Document.Caption
	case msg.Type == "image" && msg.Image != nil:
		ev.Body = msg.Image.Caption
	}
	return ev, msg, true
}

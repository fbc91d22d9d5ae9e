package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/realtyai/concierge/internal/ingest"
	"github.com/realtyai/concierge/internal/webhook"
	"github.com/realtyai/concierge/internal/whatsapp"
)

// ConversationHandler runs one agent turn and returns the composed reply.
type ConversationHandler interface {
	Handle(ctx context.Context, senderID, input string) string
}

// URLIngestor indexes a user-shared link.
type URLIngestor interface {
	IngestURL(ctx context.Context, ownerID, rawURL string) error
}

// Messenger is the outbound delivery surface the webhook handler needs.
type Messenger interface {
	SendText(ctx context.Context, recipient, text string, previewURL bool) error
	MarkRead(ctx context.Context, messageID string) error
}

// verifyWebhook answers the platform's subscription handshake: echo the
// challenge when the verify token matches.
// https://developers.facebook.com/docs/graph-api/webhooks/getting-started
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if token != s.verifyToken {
		s.logger.Warn("webhook verification failed", "ip", r.RemoteAddr)
		http.Error(w, "Authentication failed. Invalid Token.", http.StatusForbidden)
		return
	}

	// The platform expects the challenge echoed back as a bare integer.
	if n, err := strconv.Atoi(challenge); err == nil {
		writeJSON(w, s.logger, http.StatusOK, n)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, challenge)
}

// receiveWebhook handles event notifications: status updates are
// acknowledged and dropped, duplicates and stale deliveries are filtered by
// the gate, and fresh messages are routed to ingestion or the agent.
//
// Every reply path returns 200; a non-2xx would make the platform retry the
// delivery, and retrying a turn that already ran is worse than dropping it.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	var payload notification
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.logger.Warn("malformed webhook payload", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	if payload.isStatusUpdate() {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "Whatsapp status update received."})
		return
	}

	ev, msg, ok := payload.event()
	if !ok {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "not a whatsapp message"})
		return
	}

	if !s.gate.ShouldProcess(ev.ID, ev.Timestamp) {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"body": "message already seen"})
		return
	}

	ctx := r.Context()
	if err := s.messenger.MarkRead(ctx, ev.ID); err != nil {
		s.logger.Debug("failed to mark message read", "event_id", ev.ID, "error", err)
	}

	switch ev.Type {
	case webhook.EventText:
		s.handleText(ctx, w, ev)
	case webhook.EventDocument, webhook.EventImage:
		s.handleMedia(ctx, w, ev, msg)
	default:
		s.logger.Info("unsupported message type", "type", ev.Type, "sender_id", ev.SenderID)
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"body": "unsupported message type"})
	}
}

func (s *Server) handleText(ctx context.Context, w http.ResponseWriter, ev webhook.InboundEvent) {
	if urls := ingest.ExtractURLs(ev.Body); len(urls) > 0 {
		if err := s.messenger.SendText(ctx, ev.SenderID, "_Processing your urls_...", false); err != nil {
			s.logger.Warn("failed to send ingest notice", "sender_id", ev.SenderID, "error", err)
		}
		for _, u := range urls {
			if err := s.ingestor.IngestURL(ctx, ev.SenderID, u); err != nil {
				s.logger.Error("url ingestion failed", "sender_id", ev.SenderID, "url", u, "error", err)
			}
		}
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"answer": "Url indexed."})
		return
	}

	reply := whatsapp.Normalize(s.agent.Handle(ctx, ev.SenderID, ev.Body))
	if reply != "" {
		if err := s.messenger.SendText(ctx, ev.SenderID, reply, false); err != nil {
			s.logger.Error("failed to deliver reply", "sender_id", ev.SenderID, "error", err)
		}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"answer": reply})
}

func (s *Server) handleMedia(ctx context.Context, w http.ResponseWriter, ev webhook.InboundEvent, msg *inboundMessage) {
	media := msg.Document
	if media == nil {
		media = msg.Image
	}
	if media == nil {
		writeJSON(w, s.logger, http.StatusOK, map[string]string{"body": "malformed media message"})
		return
	}

	s.logger.Info("received media message",
		"sender_id", ev.SenderID, "media_id", media.ID, "mime_type", media.MimeType)

	// Media ingestion (PDF parsing, object storage) lives outside this
	// service; the user still gets an acknowledgment.
	if err := s.messenger.SendText(ctx, ev.SenderID,
		"_Media ingestion is not enabled. Share a link instead._", false); err != nil {
		s.logger.Warn("failed to send media notice", "sender_id", ev.SenderID, "error", err)
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"body": "media acknowledged"})
}

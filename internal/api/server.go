// Package api provides the webhook HTTP server: platform verification,
// event intake, and routing to ingestion or the conversation agent.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/realtyai/concierge/internal/webhook"
)

// ServerConfig carries the collaborators the webhook server needs.
type ServerConfig struct {
	Logger      *slog.Logger
	Gate        *webhook.Gate        // Required: delivery deduplication
	Agent       ConversationHandler  // Required: turn controller
	Ingestor    URLIngestor          // Required: link indexing
	Messenger   Messenger            // Required: outbound delivery
	VerifyToken string               // Required: webhook handshake secret

	// Rate limiting; zero values disable the limiter.
	RatePerSecond float64
	RateBurst     int
	TrustProxy    bool
}

// Server handles the messaging platform's webhook traffic.
type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	gate        *webhook.Gate
	agent       ConversationHandler
	ingestor    URLIngestor
	messenger   Messenger
	verifyToken string
	limiter     *ipLimiter
}

// NewServer creates a webhook server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Gate == nil {
		return nil, errors.New("gate is required")
	}
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if cfg.VerifyToken == "" {
		return nil, errors.New("verify token is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		gate:        cfg.Gate,
		agent:       cfg.Agent,
		ingestor:    cfg.Ingestor,
		messenger:   cfg.Messenger,
		verifyToken: cfg.VerifyToken,
	}
	if cfg.RatePerSecond > 0 && cfg.RateBurst > 0 {
		s.limiter = newIPLimiter(cfg.RatePerSecond, cfg.RateBurst, cfg.TrustProxy)
	}

	s.mux.HandleFunc("GET /healthz", s.health)
	s.mux.HandleFunc("GET /webhook", s.verifyWebhook)
	s.mux.HandleFunc("POST /webhook", s.receiveWebhook)

	return s, nil
}

// ServeHTTP implements http.Handler with the middleware stack:
// recovery, then logging, then rate limiting, then routes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var handler http.Handler = s.mux
	if s.limiter != nil {
		handler = rateLimitMiddleware(s.limiter)(handler)
	}
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

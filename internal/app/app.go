// Package app assembles the application: configuration, database,
// Genkit, stores, tools, agent, and the webhook server.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/api"
	"github.com/realtyai/concierge/internal/config"
	"github.com/realtyai/concierge/internal/ingest"
	"github.com/realtyai/concierge/internal/knowledge"
	"github.com/realtyai/concierge/internal/session"
	"github.com/realtyai/concierge/internal/webhook"
	"github.com/realtyai/concierge/internal/whatsapp"
)

// App holds all initialized components. Create with Setup, release with
// Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Sessions  *session.Store
	Knowledge *knowledge.Store
	Agent     *agent.Agent
	Gate      *webhook.Gate
	WhatsApp  *whatsapp.Client
	Ingestor  *ingest.Ingestor
	Server    *api.Server

	dbCleanup func()
}

// Close releases all resources. Safe to call on a partially initialized
// App.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/realtyai/concierge/db"
	"github.com/realtyai/concierge/internal/agent"
	"github.com/realtyai/concierge/internal/api"
	"github.com/realtyai/concierge/internal/config"
	"github.com/realtyai/concierge/internal/ingest"
	"github.com/realtyai/concierge/internal/knowledge"
	"github.com/realtyai/concierge/internal/llm"
	"github.com/realtyai/concierge/internal/search"
	"github.com/realtyai/concierge/internal/session"
	"github.com/realtyai/concierge/internal/tools"
	"github.com/realtyai/concierge/internal/webhook"
	"github.com/realtyai/concierge/internal/whatsapp"
)

// Setup creates and initializes the application. Returns an App with
// embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Sessions = session.New(session.NewPGQuerier(pool), logger)
	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)

	a.WhatsApp = whatsapp.NewClient(
		cfg.WhatsApp.Version,
		cfg.WhatsApp.AccessToken,
		cfg.WhatsApp.PhoneNumberID,
		logger,
	)

	extractor := search.NewPageExtractor(cfg.Scraper, logger)
	a.Ingestor = ingest.New(a.Knowledge, extractor, logger)

	a.Agent = provideAgent(a, g, cfg, logger)
	a.Gate = webhook.NewGate(logger,
		webhook.WithTTL(time.Duration(cfg.DedupTTLSeconds)*time.Second),
		webhook.WithCapacity(cfg.DedupCapacity))

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Gate:          a.Gate,
		Agent:         a.Agent,
		Ingestor:      a.Ingestor,
		Messenger:     a.WhatsApp,
		VerifyToken:   cfg.WhatsApp.VerifyToken,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		TrustProxy:    cfg.TrustProxy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating webhook server: %w", err)
	}
	a.Server = server

	logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"listen_addr", cfg.ListenAddr,
	)
	return a, nil
}

// provideAgent wires the model, tools and turn controller.
func provideAgent(a *App, g *genkit.Genkit, cfg *config.Config, logger *slog.Logger) *agent.Agent {
	reranker := knowledge.SimilarityReranker{}

	searchTool := tools.NewSearchTool(
		search.NewDDG(logger),
		a.Sessions,
		a.WhatsApp,
		cfg.SearchResultCount,
		logger,
	)

	retrieveTool := tools.NewRetrieveTool(a.Knowledge, reranker, a.WhatsApp, logger)

	// The RAG tool's synthesis step shares the rate limiter with the agent
	// loop, so one user cannot starve the model quota.
	limiter := rate.NewLimiter(10, 30)

	// The RAG tool needs the model and the model needs every tool's
	// declaration, so the Rag spec comes from package constants.
	specs := []agent.ToolSpec{
		{Name: searchTool.Name(), Description: searchTool.Description()},
		{Name: tools.RagToolName, Description: tools.RagToolDescription},
		{Name: retrieveTool.Name(), Description: retrieveTool.Description()},
	}

	model := llm.New(g, "googleai/"+cfg.ModelName, specs, limiter, logger)

	ragTool := tools.NewRAGTool(a.Knowledge, reranker, model, a.WhatsApp, logger).
		WithCitationLimit(cfg.CitationLimit)

	return agent.New(
		model,
		[]agent.Tool{searchTool, ragTool, retrieveTool},
		a.Sessions,
		logger,
		agent.WithHistoryWindow(cfg.HistoryWindow),
		agent.WithTokenBudget(cfg.HistoryTokenBudget),
		agent.WithMaxIterations(cfg.MaxToolIterations),
	)
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// pgvector types are registered on every new connection.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// Package knowledge manages the per-user document index backed by
// PostgreSQL + pgvector. Embeddings are produced by a Genkit ai.Embedder;
// similarity is cosine.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// searchTimeout bounds a single embedding + vector search round trip.
const searchTimeout = 10 * time.Second

// Querier defines the database operations the Store depends on.
// Defined by the consumer; PGQuerier is the production implementation.
type Querier interface {
	// UpsertDocument inserts or updates a document and its embedding.
	UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error

	// SearchDocuments performs an owner-filtered vector search, most
	// similar first. Empty ownerID searches all documents.
	SearchDocuments(ctx context.Context, ownerID string, embedding pgvector.Vector, limit int32) ([]Result, error)

	// DeleteDocument deletes a document by ID.
	DeleteDocument(ctx context.Context, id string) error
}

// Store manages knowledge documents with vector search.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. logger may be nil (defaults to slog.Default()).
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, embedder: embedder, logger: logger}
}

// Add embeds and upserts a document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	if doc.Source == "" {
		doc.Source = UnknownSource
	}

	if err := s.querier.UpsertDocument(ctx, doc, embedding); err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document",
		"id", doc.ID, "owner_id", doc.OwnerID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search, most similar first.
//
// Example:
//
//	results, err := store.Search(ctx, "refund policy",
//	    knowledge.WithTopK(6),
//	    knowledge.WithOwner(senderID))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.querier.SearchDocuments(queryCtx, cfg.owner, embedding, cfg.topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Debug("searched documents",
		"owner_id", cfg.owner, "top_k", cfg.topK, "results", len(results))
	return results, nil
}

// Delete removes a document from the index.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.querier.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("deleting document %q: %w", docID, err)
	}
	return nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

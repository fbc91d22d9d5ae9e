// Package ingest adds user-shared links to the per-user knowledge store so
// later questions can be answered from their content.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"

	"github.com/realtyai/concierge/internal/knowledge"
	"github.com/realtyai/concierge/internal/search"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// ExtractURLs returns every URL found in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// KnowledgeAdder is the slice of the knowledge store ingestion needs.
type KnowledgeAdder interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// Ingestor fetches shared links and indexes their readable content under
// the sharing user's identity.
type Ingestor struct {
	knowledge KnowledgeAdder
	extractor search.Extractor
	logger    *slog.Logger
}

// New creates an Ingestor. logger may be nil (defaults to slog.Default()).
func New(adder KnowledgeAdder, extractor search.Extractor, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{knowledge: adder, extractor: extractor, logger: logger}
}

// IngestURL fetches rawURL, extracts its readable text and indexes it for
// ownerID with the URL itself as the source identifier.
func (i *Ingestor) IngestURL(ctx context.Context, ownerID, rawURL string) error {
	content, err := i.extractor.Extract(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", rawURL, err)
	}

	doc := knowledge.Document{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Source:  rawURL,
		Content: content,
		Metadata: map[string]string{
			"type": "url",
		},
	}
	if err := i.knowledge.Add(ctx, doc); err != nil {
		return fmt.Errorf("ingest %s: %w", rawURL, err)
	}

	i.logger.Info("indexed shared url", "owner_id", ownerID, "url", rawURL, "chars", len(content))
	return nil
}

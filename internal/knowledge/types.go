package knowledge

import "time"

// UnknownSource is the sentinel recorded when a document carries no usable
// source identifier. It is never delivered to users as a file.
const UnknownSource = "_blank"

// VectorDimension is the embedding width stored in the documents table.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation to 768 via OutputDimensionality (Matryoshka Representation
// Learning); the schema declares vector(768) to match.
const VectorDimension int32 = 768

// Document represents an indexed knowledge document.
type Document struct {
	ID        string            // unique identifier
	OwnerID   string            // messaging-platform sender ID; isolates users
	Source    string            // origin identifier: URL, media ID, or UnknownSource
	Content   string            // document text content
	Metadata  map[string]string // optional metadata (caption, filename, etc.)
	CreatedAt time.Time
}

// Result represents a single search result with similarity score.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK  int32
	owner string
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = int32(k)
		}
	}
}

// WithOwner restricts results to documents indexed by the given sender.
// Every retrieval on behalf of a user must set this; it is the per-user
// isolation boundary.
func WithOwner(ownerID string) SearchOption {
	return func(c *searchConfig) {
		c.owner = ownerID
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{topK: 5}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

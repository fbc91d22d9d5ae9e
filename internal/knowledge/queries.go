package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGQuerier implements Querier against PostgreSQL + pgvector via pgx.
// pgvector types must be registered on the pool (see app.Setup).
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier backed by the given pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// UpsertDocument inserts or updates a document and its embedding.
func (q *PGQuerier) UpsertDocument(ctx context.Context, doc Document, embedding pgvector.Vector) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = q.pool.Exec(ctx,
		`INSERT INTO documents (id, owner_id, source, content, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		     owner_id = EXCLUDED.owner_id,
		     source = EXCLUDED.source,
		     content = EXCLUDED.content,
		     embedding = EXCLUDED.embedding,
		     metadata = EXCLUDED.metadata`,
		doc.ID, doc.OwnerID, doc.Source, doc.Content, embedding, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// SearchDocuments performs an owner-filtered cosine similarity search.
func (q *PGQuerier) SearchDocuments(ctx context.Context, ownerID string, embedding pgvector.Vector, limit int32) ([]Result, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, owner_id, source, content, metadata, created_at,
		        1 - (embedding <=> $2) AS similarity
		   FROM documents
		  WHERE ($1 = '' OR owner_id = $1)
		  ORDER BY embedding <=> $2
		  LIMIT $3`,
		ownerID, embedding, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Source, &doc.Content,
			&metadataJSON, &doc.CreatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				// Malformed metadata does not invalidate the document.
				doc.Metadata = nil
			}
		}
		results = append(results, Result{Document: doc, Similarity: float32(similarity)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return results, nil
}

// DeleteDocument deletes a document by ID.
func (q *PGQuerier) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQuerier implements Querier against PostgreSQL via pgx.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier backed by the given pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// InsertMessage appends one message. Ordering is provided by the bigserial
// primary key, so concurrent appends never collide.
func (q *PGQuerier) InsertMessage(ctx context.Context, senderID, role, content string) error {
	_, err := q.pool.Exec(ctx,
		`INSERT INTO chat_messages (sender_id, role, content) VALUES ($1, $2, $3)`,
		senderID, role, content,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit of the newest messages, oldest first.
// The query selects newest-first so the limit keeps the recent tail, then
// the slice is reversed back to chronological order.
func (q *PGQuerier) RecentMessages(ctx context.Context, senderID string, limit int32) ([]Message, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT role, content, created_at
		   FROM chat_messages
		  WHERE sender_id = $1
		  ORDER BY id DESC
		  LIMIT $2`,
		senderID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(msgs)
	return msgs, nil
}

// DeleteMessages removes all messages for a sender.
func (q *PGQuerier) DeleteMessages(ctx context.Context, senderID string) error {
	_, err := q.pool.Exec(ctx,
		`DELETE FROM chat_messages WHERE sender_id = $1`,
		senderID,
	)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

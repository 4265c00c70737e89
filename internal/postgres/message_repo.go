package postgres

import (
	"context"
	"fmt"

	"github.com/chatwave/dispatch-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save persists a message and fills in the generated id and timestamp.
// The dispatcher never broadcasts a message that did not come back from here.
func (r *MessageRepository) Save(ctx context.Context, m *domain.Message) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, group_id, channel_id, content, read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.SenderID, m.ReceiverID, m.GroupID, m.ChannelID, m.Content, m.Read)

	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// SetRead flips the read flag and returns the original sender so the caller
// can notify them. Only the recipient's own row matches; a message read by
// anyone else, or not addressed to readerID, reports not-found. The update
// is idempotent: a second call matches the same row and simply leaves
// read=true.
func (r *MessageRepository) SetRead(ctx context.Context, messageID, readerID string) (string, error) {
	var senderID string
	err := r.db.QueryRow(ctx, `
		UPDATE messages SET read = TRUE
		WHERE id = $1 AND receiver_id = $2
		RETURNING sender_id
	`, messageID, readerID).Scan(&senderID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrMessageNotFound
		}
		return "", err
	}
	return senderID, nil
}

// History returns direct messages between two users with cursor pagination
// (created_at,id DESC).
func (r *MessageRepository) History(ctx context.Context, userID, otherID, after string, limit int) ([]domain.Message, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := parsePageToken(after)
	if err != nil {
		return nil, "", err
	}

	const query = `
		SELECT id, sender_id, receiver_id, group_id, channel_id, content, read, created_at
		FROM messages
		WHERE ((sender_id = $1 AND receiver_id = $2)
		    OR (sender_id = $2 AND receiver_id = $1))
		  AND (
		    $3::timestamptz IS NULL
		    OR created_at < $3
		    OR (created_at = $3 AND id < $4)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $5
	`

	var createdAt any
	var id any
	if cur != nil {
		createdAt = cur.createdAt
		id = cur.id
	}

	rows, err := r.db.Query(ctx, query, userID, otherID, createdAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out, err := scanMessages(rows)
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = pageCursor{createdAt: last.CreatedAt, id: last.ID}.token()
	}
	return out, next, nil
}

// Inbox returns the newest direct message per conversation involving userID,
// newest conversations first.
func (r *MessageRepository) Inbox(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, sender_id, receiver_id, group_id, channel_id, content, read, created_at
		FROM (
			SELECT DISTINCT ON (LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id)) *
			FROM messages
			WHERE receiver_id IS NOT NULL
			  AND (sender_id = $1 OR receiver_id = $1)
			ORDER BY LEAST(sender_id, receiver_id), GREATEST(sender_id, receiver_id), created_at DESC
		) latest
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.GroupID, &m.ChannelID,
			&m.Content, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

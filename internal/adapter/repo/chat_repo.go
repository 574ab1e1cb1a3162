package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const chatColumns = `id, participant_lo, participant_hi, donation_id, last_message_at, closed, created_at`

// ChatRepositoryPG implements domain.ChatRepository using PostgreSQL.
type ChatRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewChatRepository creates a new chat repo.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepositoryPG {
	return &ChatRepositoryPG{pool: pool}
}

// CreateIfAbsent inserts the chat unless an open chat already exists for the
// same sorted participant pair. The partial unique index makes the insert
// atomic, so two concurrent accepts between the same pair converge on one
// chat instead of creating two.
func (r *ChatRepositoryPG) CreateIfAbsent(ctx context.Context, chat *domain.Chat) (*domain.Chat, bool, error) {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO chats (id, participant_lo, participant_hi, donation_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (participant_lo, participant_hi) WHERE NOT closed DO NOTHING;
`, chat.ID, chat.ParticipantLo, chat.ParticipantHi, chat.DonationID)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() > 0 {
		inserted, err := r.GetByID(ctx, chat.ID)
		return inserted, true, err
	}
	existing, err := r.GetOpenByParticipants(ctx, chat.ParticipantLo, chat.ParticipantHi)
	return existing, false, err
}

// GetByID fetches a chat by id.
func (r *ChatRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id)
	return scanChat(row)
}

// GetOpenByParticipants fetches the open chat for a participant pair, in
// either order.
func (r *ChatRepositoryPG) GetOpenByParticipants(ctx context.Context, a, b string) (*domain.Chat, error) {
	lo, hi := domain.ParticipantPair(a, b)
	row := r.pool.QueryRow(ctx, `
SELECT `+chatColumns+` FROM chats
WHERE participant_lo = $1 AND participant_hi = $2 AND NOT closed;
`, lo, hi)
	return scanChat(row)
}

// ListByUser returns the chats the user participates in, most recently
// active first.
func (r *ChatRepositoryPG) ListByUser(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+chatColumns+` FROM chats
WHERE participant_lo = $1 OR participant_hi = $1
ORDER BY COALESCE(last_message_at, created_at) DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Close marks a chat closed. History is retained.
func (r *ChatRepositoryPG) Close(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `UPDATE chats SET closed = TRUE WHERE id = $1`, id)
	return err
}

// CloseByDonation closes every open chat linked to the donation and returns
// how many were affected. Closing an already-closed chat is a no-op.
func (r *ChatRepositoryPG) CloseByDonation(ctx context.Context, donationID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE chats SET closed = TRUE WHERE donation_id = $1 AND NOT closed;
`, donationID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// AppendMessage appends a message and refreshes the chat's activity stamp.
// The created_at default is server-assigned, giving the strict per-chat
// ordering.
func (r *ChatRepositoryPG) AppendMessage(ctx context.Context, m *domain.Message) error {
	var createdAt = m.CreatedAt
	err := r.pool.QueryRow(ctx, `
WITH inserted AS (
    INSERT INTO chat_messages (id, chat_id, sender_id, body)
    VALUES ($1, $2, $3, $4)
    RETURNING chat_id, created_at
)
UPDATE chats SET last_message_at = inserted.created_at
FROM inserted
WHERE chats.id = inserted.chat_id
RETURNING inserted.created_at;
`, m.ID, m.ChatID, m.SenderID, m.Body).Scan(&createdAt)
	if err != nil {
		return err
	}
	m.CreatedAt = createdAt
	return nil
}

// ListMessages returns up to limit messages in creation order.
func (r *ChatRepositoryPG) ListMessages(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, chat_id, sender_id, body, created_at
FROM chat_messages
WHERE chat_id = $1
ORDER BY created_at ASC, id ASC
LIMIT $2;
`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanChat(row pgx.Row) (*domain.Chat, error) {
	var c domain.Chat
	if err := row.Scan(&c.ID, &c.ParticipantLo, &c.ParticipantHi, &c.DonationID, &c.LastMessageAt, &c.Closed, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

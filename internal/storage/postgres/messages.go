package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronov/huddle/internal/domain"
)

// MessageRepository appends chat messages and resolves user avatars.
// Rooms are addressed by their chat name; the chat row is created lazily,
// mirroring the gateway's implicit-room semantics.
type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) SaveMessage(ctx context.Context, m domain.ChatMessage) error {
	_, err := r.db.Exec(ctx, `
		WITH chat AS (
			INSERT INTO "Chats" (chat_name)
			VALUES ($1)
			ON CONFLICT (chat_name) DO UPDATE SET chat_name = EXCLUDED.chat_name
			RETURNING chat_id
		)
		INSERT INTO "Messages" (chat_id, user_id, message_text, sent_at)
		SELECT chat_id, $2, $3, $4 FROM chat
	`, string(m.Room), string(m.Sender), m.Text, m.SentAt)
	return err
}

// AvatarOf returns the stored avatar URI for a user, or "" when the user
// has none.
func (r *MessageRepository) AvatarOf(ctx context.Context, id domain.Identity) (string, error) {
	var uri *string
	err := r.db.QueryRow(ctx, `
		SELECT user_avatar FROM "Users" WHERE user_id = $1
	`, string(id)).Scan(&uri)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if uri == nil {
		return "", nil
	}
	return *uri, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/baberlabs/chatr-sub000/internal/models"
)

type ChatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateOrGet returns the direct chat between the two users, creating it on
// first use. The pair is stored in normalized order so either argument order
// resolves to the same row.
func (r *ChatRepository) CreateOrGet(
	ctx context.Context,
	userID int64,
	partnerID int64,
) (*models.Chat, error) {
	query := `
		INSERT INTO chats (user_a_id, user_b_id)
		VALUES (LEAST($1::bigint, $2::bigint), GREATEST($1::bigint, $2::bigint))
		ON CONFLICT (user_a_id, user_b_id)
		DO UPDATE SET updated_at = chats.updated_at
		RETURNING id, user_a_id, user_b_id, is_group, COALESCE(group_name, ''), group_admin_id,
		          last_message_id, created_at, updated_at
	`

	var chat models.Chat
	err := r.db.QueryRow(ctx, query, userID, partnerID).Scan(
		&chat.ID,
		&chat.UserAID,
		&chat.UserBID,
		&chat.IsGroup,
		&chat.GroupName,
		&chat.GroupAdminID,
		&chat.LastMessageID,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &chat, nil
}

func (r *ChatRepository) GetByIDForParticipant(
	ctx context.Context,
	chatID int64,
	participantID int64,
) (*models.Chat, error) {
	query := `
		SELECT id, user_a_id, user_b_id, is_group, COALESCE(group_name, ''), group_admin_id,
		       last_message_id, created_at, updated_at
		FROM chats
		WHERE id = $1 AND (user_a_id = $2 OR user_b_id = $2)
	`

	var chat models.Chat
	err := r.db.QueryRow(ctx, query, chatID, participantID).Scan(
		&chat.ID,
		&chat.UserAID,
		&chat.UserBID,
		&chat.IsGroup,
		&chat.GroupName,
		&chat.GroupAdminID,
		&chat.LastMessageID,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &chat, nil
}

// ListForParticipant returns the caller's chats with the denormalized latest
// message, most recently active first.
func (r *ChatRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ChatSummary, error) {
	query := `
		SELECT
			c.id,
			c.user_a_id,
			c.user_b_id,
			c.is_group,
			COALESCE(c.group_name, ''),
			c.group_admin_id,
			c.last_message_id,
			c.created_at,
			c.updated_at,
			lm.id,
			lm.chat_id,
			lm.sender_id,
			lm.text,
			lm.image_url,
			lm.seen,
			lm.created_at
		FROM chats c
		LEFT JOIN messages lm ON lm.id = c.last_message_id
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY COALESCE(lm.created_at, c.updated_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ChatSummary, 0)
	for rows.Next() {
		var summary models.ChatSummary
		var messageID sql.NullInt64
		var messageChatID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageText sql.NullString
		var messageImageURL sql.NullString
		var messageSeen sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.UserAID,
			&summary.UserBID,
			&summary.IsGroup,
			&summary.GroupName,
			&summary.GroupAdminID,
			&summary.LastMessageID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&messageID,
			&messageChatID,
			&messageSenderID,
			&messageText,
			&messageImageURL,
			&messageSeen,
			&messageCreatedAt,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:        messageID.Int64,
				ChatID:    messageChatID.Int64,
				SenderID:  messageSenderID.Int64,
				Text:      messageText.String,
				ImageURL:  messageImageURL.String,
				Seen:      messageSeen.Bool,
				CreatedAt: messageCreatedAt.Time,
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// SetLastMessage points the chat at a known newest message.
func (r *ChatRepository) SetLastMessage(ctx context.Context, chatID int64, messageID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chats
		SET last_message_id = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, chatID, messageID)
	return err
}

// RefreshLastMessage recomputes the latest-message pointer from the remaining
// messages. The pointer becomes NULL when the chat has no messages left.
func (r *ChatRepository) RefreshLastMessage(ctx context.Context, chatID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chats
		SET last_message_id = (
			SELECT id
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		),
		    updated_at = NOW()
		WHERE id = $1
	`, chatID)
	return err
}

package repository

import (
	"context"

	"github.com/baberlabs/chatr-sub000/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	chatID int64,
	senderID int64,
	text string,
	imageURL string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (chat_id, sender_id, text, image_url, seen)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, chat_id, sender_id, text, image_url, seen, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, chatID, senderID, text, imageURL).Scan(
		&message.ID,
		&message.ChatID,
		&message.SenderID,
		&message.Text,
		&message.ImageURL,
		&message.Seen,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, messageID int64) (*models.ChatMessage, error) {
	query := `
		SELECT id, chat_id, sender_id, text, image_url, seen, created_at
		FROM messages
		WHERE id = $1
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID,
		&message.ChatID,
		&message.SenderID,
		&message.Text,
		&message.ImageURL,
		&message.Seen,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByChat returns a page of messages in ascending creation order, the
// order clients render them in.
func (r *MessageRepository) ListByChat(
	ctx context.Context,
	chatID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE chat_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, chatID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, chat_id, sender_id, text, image_url, seen, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ChatID,
			&message.SenderID,
			&message.Text,
			&message.ImageURL,
			&message.Seen,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// Delete removes a message if it belongs to the given author. It reports
// whether a row was deleted.
func (r *MessageRepository) Delete(ctx context.Context, messageID int64, authorID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM messages
		WHERE id = $1 AND sender_id = $2
	`, messageID, authorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

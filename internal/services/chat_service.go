package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatService struct {
	db          *pgxpool.Pool
	chatRepo    *repository.ChatRepository
	messageRepo *repository.MessageRepository
	userRepo    userReader
	storage     StorageService
}

// ChatDelivery is everything the caller needs to fan a sent message out: the
// persisted message, its chat, and the other participant.
type ChatDelivery struct {
	Chat        *models.Chat
	Message     *models.ChatMessage
	RecipientID int64
}

// MessageRemoval reports a deletion to the caller so it can notify the room.
type MessageRemoval struct {
	ChatID    int64
	MessageID int64
}

func NewChatService(
	db *pgxpool.Pool,
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	storage StorageService,
) *ChatService {
	return &ChatService{
		db:          db,
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		storage:     storage,
	}
}

func (s *ChatService) ListChats(ctx context.Context, actorID int64) ([]models.ChatSummary, error) {
	return s.chatRepo.ListForParticipant(ctx, actorID)
}

// CreateChat finds or lazily creates the direct chat between the caller and
// the partner. A repeated call with the same pair, in either order, returns
// the existing chat.
func (s *ChatService) CreateChat(
	ctx context.Context,
	actorID int64,
	partnerID int64,
) (*models.Chat, error) {
	if partnerID <= 0 || partnerID == actorID {
		return nil, ErrInvalidInput
	}

	_, err := s.userRepo.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.chatRepo.CreateOrGet(ctx, actorID, partnerID)
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	chatID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, error) {
	if chatID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	if _, err := s.chatRepo.GetByIDForParticipant(ctx, chatID, actorID); err != nil {
		return nil, 0, err
	}

	return s.messageRepo.ListByChat(ctx, chatID, limit, (page-1)*limit)
}

// SendMessage persists a message with text and/or an image and advances the
// chat's latest-message pointer in the same transaction.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	chatID int64,
	text string,
	imageBase64 string,
) (*ChatDelivery, error) {
	if chatID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" && imageBase64 == "" {
		return nil, ErrInvalidInput
	}

	chat, err := s.chatRepo.GetByIDForParticipant(ctx, chatID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	imageURL := ""
	if imageBase64 != "" {
		if s.storage == nil {
			return nil, ErrUploadUnavailable
		}
		imageURL, err = s.storage.UploadBase64(ctx, imageBase64, "messages")
		if err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txChatRepo := repository.NewChatRepository(tx)

	message, err := txMessageRepo.Create(ctx, chatID, actorID, trimmed, imageURL)
	if err != nil {
		return nil, err
	}

	if err := txChatRepo.SetLastMessage(ctx, chatID, message.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Chat:        chat,
		Message:     message,
		RecipientID: chat.PartnerID(actorID),
	}, nil
}

// DeleteMessage removes an author's own message and recomputes the chat's
// latest-message pointer to the newest remaining message, or NULL if none.
func (s *ChatService) DeleteMessage(
	ctx context.Context,
	actorID int64,
	messageID int64,
) (*MessageRemoval, error) {
	if messageID <= 0 {
		return nil, ErrInvalidInput
	}

	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != actorID {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txChatRepo := repository.NewChatRepository(tx)

	deleted, err := txMessageRepo.Delete(ctx, messageID, actorID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, pgx.ErrNoRows
	}

	if err := txChatRepo.RefreshLastMessage(ctx, message.ChatID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &MessageRemoval{ChatID: message.ChatID, MessageID: messageID}, nil
}

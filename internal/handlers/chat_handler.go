package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/baberlabs/chatr-sub000/internal/metrics"
	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/internal/services"
)

type chatApplicationService interface {
	ListChats(ctx context.Context, actorID int64) ([]models.ChatSummary, error)
	CreateChat(ctx context.Context, actorID int64, partnerID int64) (*models.Chat, error)
	ListMessages(ctx context.Context, actorID int64, chatID int64, page int, limit int) ([]models.ChatMessage, int, error)
	SendMessage(ctx context.Context, actorID int64, chatID int64, text string, imageBase64 string) (*services.ChatDelivery, error)
	DeleteMessage(ctx context.Context, actorID int64, messageID int64) (*services.MessageRemoval, error)
}

type ChatHandler struct {
	service chatApplicationService
}

type createChatRequest struct {
	PartnerID int64 `json:"partner_id"`
}

type sendMessageRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func NewChatHandler(service chatApplicationService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) ListChats(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	chats, err := h.service.ListChats(c.Context(), userID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"chats": chats})
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	chat, err := h.service.CreateChat(c.Context(), userID, req.PartnerID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"chat": chat})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	chatID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || chatID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), userID, chatID, page, limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	chatID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || chatID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat id"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	delivery, err := h.service.SendMessage(c.Context(), userID, chatID, req.Text, req.Image)
	if err != nil {
		return mapChatError(c, err)
	}

	metrics.MessagesSent.Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      delivery.Message,
		"recipient_id": delivery.RecipientID,
	})
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	removal, err := h.service.DeleteMessage(c.Context(), userID, messageID)
	if err != nil {
		return mapChatError(c, err)
	}

	metrics.MessagesDeleted.Inc()

	return c.JSON(fiber.Map{
		"chat_id":    removal.ChatID,
		"message_id": removal.MessageID,
	})
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	case errors.Is(err, services.ErrUploadUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Image upload unavailable"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}

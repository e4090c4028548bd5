package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/internal/services"
)

type stubChatService struct {
	listChatsResult []models.ChatSummary
	listChatsErr    error
	createResult    *models.Chat
	createErr       error
	messagesResult  []models.ChatMessage
	messagesTotal   int
	messagesErr     error
	sendResult      *services.ChatDelivery
	sendErr         error
	deleteResult    *services.MessageRemoval
	deleteErr       error

	lastActorID   int64
	lastPartnerID int64
	lastChatID    int64
	lastMessageID int64
	lastPage      int
	lastLimit     int
	lastText      string
	lastImage     string
}

func (s *stubChatService) ListChats(_ context.Context, actorID int64) ([]models.ChatSummary, error) {
	s.lastActorID = actorID
	return s.listChatsResult, s.listChatsErr
}

func (s *stubChatService) CreateChat(_ context.Context, actorID, partnerID int64) (*models.Chat, error) {
	s.lastActorID = actorID
	s.lastPartnerID = partnerID
	return s.createResult, s.createErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID, chatID int64, page, limit int) ([]models.ChatMessage, int, error) {
	s.lastActorID = actorID
	s.lastChatID = chatID
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID, chatID int64, text, imageBase64 string) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastChatID = chatID
	s.lastText = text
	s.lastImage = imageBase64
	return s.sendResult, s.sendErr
}

func (s *stubChatService) DeleteMessage(_ context.Context, actorID, messageID int64) (*services.MessageRemoval, error) {
	s.lastActorID = actorID
	s.lastMessageID = messageID
	return s.deleteResult, s.deleteErr
}

func newChatTestApp(service chatApplicationService) *fiber.App {
	handler := NewChatHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/chats", handler.ListChats)
	app.Post("/api/v1/chats", handler.CreateChat)
	app.Get("/api/v1/chats/:id/messages", handler.GetMessages)
	app.Post("/api/v1/chats/:id/messages", handler.SendMessage)
	app.Delete("/api/v1/messages/:id", handler.DeleteMessage)
	return app
}

func TestListChatsReturnsSummaries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	service := &stubChatService{
		listChatsResult: []models.ChatSummary{
			{
				Chat:        models.Chat{ID: 7, UserAID: 2, UserBID: 42, CreatedAt: now, UpdatedAt: now},
				LastMessage: &models.ChatMessage{ID: 9, ChatID: 7, SenderID: 2, Text: "hi", CreatedAt: now},
			},
		},
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected actor id 42, got %d", service.lastActorID)
	}

	var body struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Chats) != 1 || body.Chats[0].ID != 7 {
		t.Fatalf("expected chat 7, got %+v", body.Chats)
	}
	if body.Chats[0].LastMessage == nil || body.Chats[0].LastMessage.ID != 9 {
		t.Fatalf("expected last message 9, got %+v", body.Chats[0].LastMessage)
	}
}

func TestCreateChatReturnsCreated(t *testing.T) {
	service := &stubChatService{
		createResult: &models.Chat{ID: 7, UserAID: 2, UserBID: 42},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats", strings.NewReader(`{"partner_id": 2}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPartnerID != 2 {
		t.Fatalf("expected partner id 2, got %d", service.lastPartnerID)
	}
}

func TestCreateChatUnknownPartnerIsNotFound(t *testing.T) {
	service := &stubChatService{createErr: services.ErrUserNotFound}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats", strings.NewReader(`{"partner_id": 404}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetMessagesPassesPagination(t *testing.T) {
	service := &stubChatService{messagesTotal: 45}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats/7/messages?page=2&limit=10", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastChatID != 7 || service.lastPage != 2 || service.lastLimit != 10 {
		t.Fatalf("expected chat 7 page 2 limit 10, got %d %d %d",
			service.lastChatID, service.lastPage, service.lastLimit)
	}

	var body struct {
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Pagination.Total != 45 || body.Pagination.TotalPages != 5 {
		t.Fatalf("expected total 45 over 5 pages, got %+v", body.Pagination)
	}
}

func TestGetMessagesForeignChatIsForbidden(t *testing.T) {
	service := &stubChatService{messagesErr: services.ErrForbidden}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats/7/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetMessagesInvalidChatID(t *testing.T) {
	app := newChatTestApp(&stubChatService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats/abc/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSendMessageReturnsDelivery(t *testing.T) {
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Message:     &models.ChatMessage{ID: 9, ChatID: 7, SenderID: 42, Text: "hello"},
			RecipientID: 2,
		},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/7/messages", strings.NewReader(`{"text": "hello"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastChatID != 7 || service.lastText != "hello" {
		t.Fatalf("expected chat 7 text hello, got %d %q", service.lastChatID, service.lastText)
	}

	var body struct {
		Message     models.ChatMessage `json:"message"`
		RecipientID int64              `json:"recipient_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Message.ID != 9 || body.RecipientID != 2 {
		t.Fatalf("expected message 9 for recipient 2, got %+v", body)
	}
}

func TestSendMessageEmptyBodyIsBadRequest(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrInvalidInput}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/7/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSendMessageUploadUnavailable(t *testing.T) {
	service := &stubChatService{sendErr: services.ErrUploadUnavailable}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chats/7/messages", strings.NewReader(`{"image": "data:image/png;base64,AAAA"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestDeleteMessageReturnsRemoval(t *testing.T) {
	service := &stubChatService{
		deleteResult: &services.MessageRemoval{ChatID: 7, MessageID: 9},
	}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/messages/9", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastMessageID != 9 {
		t.Fatalf("expected message id 9, got %d", service.lastMessageID)
	}

	var body struct {
		ChatID    int64 `json:"chat_id"`
		MessageID int64 `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ChatID != 7 || body.MessageID != 9 {
		t.Fatalf("expected chat 7 message 9, got %+v", body)
	}
}

func TestDeleteForeignMessageIsForbidden(t *testing.T) {
	service := &stubChatService{deleteErr: services.ErrForbidden}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/messages/9", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestDeleteMissingMessageIsNotFound(t *testing.T) {
	service := &stubChatService{deleteErr: pgx.ErrNoRows}
	app := newChatTestApp(service)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/messages/9", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

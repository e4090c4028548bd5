// Package chatr provides a Go client for the chatr one-on-one chat API:
// a REST client for history and account operations, a realtime socket for
// live events, and a reconciliation store that merges the two into one
// consistent view.
package chatr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a chatr REST API client.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// User is a chat participant.
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Chat is a direct conversation between two users.
type Chat struct {
	ID        int64     `json:"id"`
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one chat message as served by the API.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Text      string    `json:"text,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is a chat with its denormalized latest message.
type ChatSummary struct {
	Chat
	LastMessage *Message `json:"last_message,omitempty"`
}

// RoomID derives the realtime room name for a chat. It must match the
// server's convention exactly; a mismatch silently receives nothing.
func RoomID(chatID int64) string {
	return "chat-" + strconv.FormatInt(chatID, 10)
}

// Login authenticates and stores the session token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out.User, nil
}

// Register creates an account and stores the session token on the client.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (*User, error) {
	body := map[string]string{"full_name": fullName, "email": email, "password": password}
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out.User, nil
}

// Logout clears client-side session state. Tokens are invalidated only by
// expiry; there is no server-side revocation.
func (c *Client) Logout() {
	c.Token = ""
}

// ListUsers returns every other user, for starting a chat.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// ListChats returns the caller's chats, most recently active first.
func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var out struct {
		Chats []ChatSummary `json:"chats"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/chats", nil, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// CreateChat finds or creates the direct chat with the partner. Calling it
// again with the same partner returns the same chat.
func (c *Client) CreateChat(ctx context.Context, partnerID int64) (*Chat, error) {
	body := map[string]int64{"partner_id": partnerID}
	var out struct {
		Chat Chat `json:"chat"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/chats", body, &out); err != nil {
		return nil, err
	}
	return &out.Chat, nil
}

// ListMessages fetches a page of a chat's history in creation order.
func (c *Client) ListMessages(ctx context.Context, chatID int64, page, limit int) ([]Message, error) {
	path := fmt.Sprintf("/api/v1/chats/%d/messages", chatID)
	if page > 0 || limit > 0 {
		values := url.Values{}
		if page > 0 {
			values.Set("page", strconv.Itoa(page))
		}
		if limit > 0 {
			values.Set("limit", strconv.Itoa(limit))
		}
		path += "?" + values.Encode()
	}

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage persists a message over REST. imageBase64 may be empty. The
// returned recipient id is what message:send expects as receiverId.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, imageBase64 string) (*Message, int64, error) {
	body := map[string]string{"text": text, "image": imageBase64}
	var out struct {
		Message     Message `json:"message"`
		RecipientID int64   `json:"recipient_id"`
	}
	path := fmt.Sprintf("/api/v1/chats/%d/messages", chatID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, 0, err
	}
	return &out.Message, out.RecipientID, nil
}

// DeleteMessage deletes the caller's own message.
func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	path := fmt.Sprintf("/api/v1/messages/%d", messageID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("api: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

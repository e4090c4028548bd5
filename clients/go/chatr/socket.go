package chatr

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

// Socket is a realtime connection to the chatr gateway.
type Socket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventHandlers receives decoded server events. Nil handlers are skipped.
type EventHandlers struct {
	OnMessageReceived     func(Message)
	OnMessageNotification func(Message)
	OnMessageDeleted      func(messageID int64)
	OnTypingStarted       func(length int)
	OnTypingStopped       func()
	OnUsersOnline         func(userIDs []string)
	OnError               func(message string)
}

// DialSocket opens the realtime connection, presenting the client's session
// token as a bearer credential.
func DialSocket(ctx context.Context, wsURL, token string) (*Socket, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &Socket{conn: conn}, nil
}

// Close terminates the realtime connection.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// JoinChat subscribes to a chat's room. Opening a chat must always join its
// room; switching chats must leave the previous room first.
func (s *Socket) JoinChat(roomID string) error {
	return s.emit("chat:join", map[string]string{"roomId": roomID})
}

// LeaveChat unsubscribes from a room. Safe to call for a room never joined.
func (s *Socket) LeaveChat(roomID string) error {
	return s.emit("chat:leave", map[string]string{"roomId": roomID})
}

// SendMessage relays an already-persisted message to the room and to the
// receiver's notification stream.
func (s *Socket) SendMessage(roomID string, message Message, receiverID int64) error {
	return s.emit("message:send", map[string]any{
		"roomId":     roomID,
		"message":    message,
		"receiverId": strconv.FormatInt(receiverID, 10),
	})
}

// DeleteMessage announces a deletion to the room.
func (s *Socket) DeleteMessage(roomID string, messageID int64) error {
	return s.emit("message:delete", map[string]string{
		"roomId":    roomID,
		"messageId": strconv.FormatInt(messageID, 10),
	})
}

func (s *Socket) TypingStart(roomID string, length int) error {
	return s.emit("typing:start", map[string]any{"roomId": roomID, "length": length})
}

func (s *Socket) TypingStop(roomID string) error {
	return s.emit("typing:stop", map[string]string{"roomId": roomID})
}

// Listen reads server events until the connection closes or ctx is done,
// dispatching each to the matching handler. Frames that fail to decode are
// reported through OnError and skipped.
func (s *Socket) Listen(ctx context.Context, handlers EventHandlers) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.dispatch(payload, handlers)
	}
}

func (s *Socket) dispatch(payload []byte, handlers EventHandlers) {
	var frame envelope
	if err := json.Unmarshal(payload, &frame); err != nil {
		if handlers.OnError != nil {
			handlers.OnError("undecodable frame")
		}
		return
	}

	switch frame.Event {
	case "message:received", "message:notification":
		var data struct {
			Message Message `json:"message"`
		}
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			if handlers.OnError != nil {
				handlers.OnError("undecodable message event")
			}
			return
		}
		if frame.Event == "message:received" {
			if handlers.OnMessageReceived != nil {
				handlers.OnMessageReceived(data.Message)
			}
		} else if handlers.OnMessageNotification != nil {
			handlers.OnMessageNotification(data.Message)
		}
	case "message:deleted":
		var data struct {
			MessageID string `json:"messageId"`
		}
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return
		}
		messageID, err := strconv.ParseInt(data.MessageID, 10, 64)
		if err != nil {
			return
		}
		if handlers.OnMessageDeleted != nil {
			handlers.OnMessageDeleted(messageID)
		}
	case "typing:started":
		var data struct {
			Length int `json:"length"`
		}
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return
		}
		if handlers.OnTypingStarted != nil {
			handlers.OnTypingStarted(data.Length)
		}
	case "typing:stopped":
		if handlers.OnTypingStopped != nil {
			handlers.OnTypingStopped()
		}
	case "users:online":
		var userIDs []string
		if err := json.Unmarshal(frame.Data, &userIDs); err != nil {
			return
		}
		if handlers.OnUsersOnline != nil {
			handlers.OnUsersOnline(userIDs)
		}
	case "error":
		var data struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			return
		}
		if handlers.OnError != nil {
			handlers.OnError(data.Message)
		}
	}
}

func (s *Socket) emit(event string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope{Event: event, Data: encoded})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

package chatr

import (
	"sort"
	"sync"
	"time"
)

// Store reconciles REST-fetched history with live socket events into a single
// consistent client view: the chat list sorted by recency, the open chat's
// ordered message list, the online-user set, and a single-slot typing
// indicator. REST is the source of truth for history; live events only ever
// refine the view and a message delivered by both paths appears once.
type Store struct {
	mu sync.RWMutex

	chats      []ChatSummary
	openChatID int64
	openPeerID string
	messages   []Message

	online map[string]struct{}

	typingActive bool
	typingLength int
}

// NewStore returns an empty store for one authenticated session.
func NewStore() *Store {
	return &Store{online: make(map[string]struct{})}
}

// SetChats replaces the chat list from a REST fetch and re-sorts it by
// descending latest-message recency.
func (s *Store) SetChats(chats []ChatSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = append([]ChatSummary(nil), chats...)
	s.sortChatsLocked()
}

// OpenChat switches the open conversation, replacing the message list with
// REST-fetched history. Locally buffered state from a previously open chat is
// discarded, and any typing indicator is cleared.
func (s *Store) OpenChat(chatID int64, peerID string, history []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openChatID = chatID
	s.openPeerID = peerID
	s.messages = s.messages[:0]
	for _, msg := range history {
		s.insertMessageLocked(msg)
	}
	s.typingActive = false
	s.typingLength = 0
}

// CloseChat clears the open conversation.
func (s *Store) CloseChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openChatID = 0
	s.openPeerID = ""
	s.messages = nil
	s.typingActive = false
	s.typingLength = 0
}

// ApplyMessageReceived merges a live message into the view. The open chat's
// message list gains the message (deduplicated against REST delivery of the
// same logical message); the chat list summary updates and re-sorts whether
// or not the chat is open.
func (s *Store) ApplyMessageReceived(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ChatID == s.openChatID {
		s.insertMessageLocked(msg)
	}
	s.updateSummaryLocked(msg)
}

// ApplyMessageNotification updates only the chat-list summary. It never
// touches the open message list, which may belong to a different chat.
func (s *Store) ApplyMessageNotification(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.updateSummaryLocked(msg)
}

// ApplyMessageDeleted removes the message from the open list if present. The
// chat list's latest-message pointer is NOT recomputed locally; the caller
// re-fetches the chat list over REST and accepts the brief staleness window.
func (s *Store) ApplyMessageDeleted(messageID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
}

// ApplyOnlineUsers replaces the online set from a users:online snapshot. If
// the open chat's peer dropped offline, any typing indicator is cleared: a
// typing signal cannot outlive the sender's connection.
func (s *Store) ApplyOnlineUsers(userIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.online = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		s.online[id] = struct{}{}
	}

	if s.openPeerID != "" {
		if _, stillOnline := s.online[s.openPeerID]; !stillOnline {
			s.typingActive = false
			s.typingLength = 0
		}
	}
}

// SetTypingIndicator records the peer's typing state. Single slot,
// last-write-wins; one-on-one chat never has concurrent typists.
func (s *Store) SetTypingIndicator(length int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingActive = true
	s.typingLength = length
}

func (s *Store) ClearTypingIndicator() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingActive = false
	s.typingLength = 0
}

// Chats returns a copy of the chat list, most recently active first.
func (s *Store) Chats() []ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ChatSummary(nil), s.chats...)
}

// Messages returns a copy of the open chat's messages in creation order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Message(nil), s.messages...)
}

func (s *Store) OpenChatID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openChatID
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

// OnlineUsers returns the current online-user-id set in unspecified order.
func (s *Store) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.online))
	for id := range s.online {
		ids = append(ids, id)
	}
	return ids
}

// TypingIndicator reports the single-slot typing state for the open chat.
func (s *Store) TypingIndicator() (length int, active bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typingLength, s.typingActive
}

// Handlers binds the store to a socket's event stream. refreshChats is
// invoked after a deletion so the caller can re-fetch the chat list and feed
// it back through SetChats; it may be nil.
func (s *Store) Handlers(refreshChats func()) EventHandlers {
	return EventHandlers{
		OnMessageReceived:     s.ApplyMessageReceived,
		OnMessageNotification: s.ApplyMessageNotification,
		OnMessageDeleted: func(messageID int64) {
			s.ApplyMessageDeleted(messageID)
			if refreshChats != nil {
				refreshChats()
			}
		},
		OnTypingStarted: s.SetTypingIndicator,
		OnTypingStopped: func() { s.ClearTypingIndicator() },
		OnUsersOnline:   s.ApplyOnlineUsers,
	}
}

// insertMessageLocked adds msg to the open message list, keeping the list
// ordered by server-assigned creation time (id as tiebreak) and dropping
// duplicates of a message delivered by both REST and push.
func (s *Store) insertMessageLocked(msg Message) {
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			return
		}
	}

	at := sort.Search(len(s.messages), func(i int) bool {
		if s.messages[i].CreatedAt.Equal(msg.CreatedAt) {
			return s.messages[i].ID > msg.ID
		}
		return s.messages[i].CreatedAt.After(msg.CreatedAt)
	})

	s.messages = append(s.messages, Message{})
	copy(s.messages[at+1:], s.messages[at:])
	s.messages[at] = msg
}

// updateSummaryLocked advances a chat's latest-message summary and re-sorts
// the chat list. A chat unknown to the list (created by the peer since the
// last REST fetch) gets a minimal entry until the next refresh.
func (s *Store) updateSummaryLocked(msg Message) {
	found := false
	for i := range s.chats {
		if s.chats[i].ID == msg.ChatID {
			last := s.chats[i].LastMessage
			if last == nil || !last.CreatedAt.After(msg.CreatedAt) {
				m := msg
				s.chats[i].LastMessage = &m
			}
			found = true
			break
		}
	}

	if !found {
		m := msg
		s.chats = append(s.chats, ChatSummary{
			Chat:        Chat{ID: msg.ChatID},
			LastMessage: &m,
		})
	}

	s.sortChatsLocked()
}

func (s *Store) sortChatsLocked() {
	sort.SliceStable(s.chats, func(i, j int) bool {
		return chatRecency(s.chats[i]).After(chatRecency(s.chats[j]))
	})
}

func chatRecency(summary ChatSummary) time.Time {
	if summary.LastMessage != nil {
		return summary.LastMessage.CreatedAt
	}
	return summary.UpdatedAt
}

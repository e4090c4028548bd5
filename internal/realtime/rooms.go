package realtime

import "sync"

// RoomID derives the broadcast group name for a chat. Client and server must
// agree on this exactly; a mismatched name silently receives nothing.
func RoomID(chatID string) string {
	return "chat-" + chatID
}

// RoomRegistry tracks which connections belong to which broadcast group.
// Membership lives only in memory for the life of each connection.
type RoomRegistry struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]*Connection
	memberships map[string]map[string]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:       make(map[string]map[string]*Connection),
		memberships: make(map[string]map[string]struct{}),
	}
}

func (r *RoomRegistry) Join(conn *Connection, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[roomID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[roomID] = room
	}
	room[conn.ID] = conn

	rooms := r.memberships[conn.ID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		r.memberships[conn.ID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave is idempotent and safe to call for a room never joined.
func (r *RoomRegistry) Leave(conn *Connection, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conn.ID, roomID)
}

// LeaveAll removes the connection from every room it joined.
func (r *RoomRegistry) LeaveAll(conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.memberships[conn.ID] {
		r.leaveLocked(conn.ID, roomID)
	}
	delete(r.memberships, conn.ID)
}

// Broadcast writes payload to every member of the room. excludeConnID, when
// non-empty, skips that connection. Returns the number of deliveries.
func (r *RoomRegistry) Broadcast(roomID string, payload []byte, excludeConnID string) int {
	r.mu.RLock()
	room := r.rooms[roomID]
	members := make([]*Connection, 0, len(room))
	for _, conn := range room {
		if excludeConnID != "" && conn.ID == excludeConnID {
			continue
		}
		members = append(members, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// MemberCount reports the current size of a room.
func (r *RoomRegistry) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *RoomRegistry) leaveLocked(connID, roomID string) {
	room := r.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	if rooms, ok := r.memberships[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.memberships, connID)
		}
	}
}

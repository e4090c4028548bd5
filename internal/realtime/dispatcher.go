package realtime

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/baberlabs/chatr-sub000/internal/metrics"
)

// Dispatcher routes inbound realtime events to handlers and fans outbound
// events out to rooms and individual connections. It owns the only mutable
// shared state in the realtime core: the presence registry, the room
// registry, and the connection table. Delivery is fire-and-forget; a
// disconnected receiver misses the live event and reconciles over REST.
type Dispatcher struct {
	presence *PresenceRegistry
	rooms    *RoomRegistry
	logger   zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*Connection
}

func NewDispatcher(presence *PresenceRegistry, rooms *RoomRegistry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		presence: presence,
		rooms:    rooms,
		logger:   logger,
		conns:    make(map[string]*Connection),
	}
}

// Connect registers an authenticated connection. If the user already had a
// live connection it is force-closed before the new mapping takes effect, so
// a stale socket never keeps receiving events the registry has forgotten
// about. Every client then receives a fresh online-user snapshot.
func (d *Dispatcher) Connect(conn *Connection) {
	previousID, replaced := d.presence.Add(conn.UserID, conn.ID)

	d.mu.Lock()
	var previous *Connection
	if replaced {
		previous = d.conns[previousID]
		delete(d.conns, previousID)
	}
	d.conns[conn.ID] = conn
	d.mu.Unlock()

	if previous != nil {
		d.rooms.LeaveAll(previous)
		previous.Close("session replaced")
		// The replaced connection's own Disconnect will see it untracked
		// and skip cleanup, so its gauge slot is released here.
		metrics.ConnectionsActive.Dec()
	}

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	d.logger.Info().
		Str("user_id", conn.UserID).
		Str("connection_id", conn.ID).
		Bool("replaced", replaced).
		Msg("connection registered")

	d.broadcastOnlineUsers()
}

// Disconnect cleans a connection out of every registry and announces the new
// online-user snapshot. Cleanup is immediate: there is no grace period for a
// fast reconnect.
func (d *Dispatcher) Disconnect(conn *Connection) {
	d.mu.Lock()
	_, tracked := d.conns[conn.ID]
	delete(d.conns, conn.ID)
	d.mu.Unlock()

	if !tracked {
		// Already torn down by a replacing connection.
		return
	}

	d.rooms.LeaveAll(conn)
	d.presence.RemoveConnection(conn.UserID, conn.ID)
	conn.Close("disconnect")

	metrics.ConnectionsActive.Dec()
	d.logger.Info().
		Str("user_id", conn.UserID).
		Str("connection_id", conn.ID).
		Msg("connection removed")

	d.broadcastOnlineUsers()
}

// ReadLoop pumps frames off the wire into Handle until the connection drops.
func (d *Dispatcher) ReadLoop(conn *Connection) {
	defer d.Disconnect(conn)

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		d.Handle(conn, payload)
	}
}

// Handle processes one inbound frame. Malformed input is reported back to the
// offending connection only; it never reaches a room and never tears the
// connection down.
func (d *Dispatcher) Handle(conn *Connection, payload []byte) {
	event, err := ParseInbound(payload)
	if err != nil {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "malformed event")
		return
	}

	switch event.Kind {
	case KindChatJoin:
		metrics.EventsInbound.WithLabelValues(EventChatJoin).Inc()
		d.handleJoin(conn, event.Room)
	case KindChatLeave:
		metrics.EventsInbound.WithLabelValues(EventChatLeave).Inc()
		d.handleLeave(conn, event.Room)
	case KindMessageSend:
		metrics.EventsInbound.WithLabelValues(EventMessageSend).Inc()
		d.handleSend(conn, event.Send)
	case KindMessageDelete:
		metrics.EventsInbound.WithLabelValues(EventMessageDelete).Inc()
		d.handleDelete(conn, event.Delete)
	case KindTypingStart:
		metrics.EventsInbound.WithLabelValues(EventTypingStart).Inc()
		d.handleTypingStart(conn, event.Typing)
	case KindTypingStop:
		metrics.EventsInbound.WithLabelValues(EventTypingStop).Inc()
		d.handleTypingStop(conn, event.Room)
	default:
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "malformed event")
	}
}

func (d *Dispatcher) handleJoin(conn *Connection, data *RoomPayload) {
	if data == nil || data.RoomID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId is required")
		return
	}
	d.rooms.Join(conn, data.RoomID)
}

func (d *Dispatcher) handleLeave(conn *Connection, data *RoomPayload) {
	if data == nil || data.RoomID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId is required")
		return
	}
	d.rooms.Leave(conn, data.RoomID)
}

func (d *Dispatcher) handleSend(conn *Connection, data *SendMessagePayload) {
	if data == nil || data.RoomID == "" || isEmptyJSON(data.Message) || data.ReceiverID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId, message and receiverId are required")
		return
	}

	received, err := NewEvent(EventMessageReceived, struct {
		Message any `json:"message"`
	}{Message: data.Message})
	if err != nil {
		d.logger.Error().Err(err).Msg("encode message:received")
		return
	}
	d.rooms.Broadcast(data.RoomID, received, "")

	connectionID, online := d.presence.ConnectionID(data.ReceiverID)
	if !online {
		return
	}

	d.mu.RLock()
	receiver := d.conns[connectionID]
	d.mu.RUnlock()
	if receiver == nil {
		return
	}

	notification, err := NewEvent(EventMessageNotification, struct {
		Message any `json:"message"`
	}{Message: data.Message})
	if err != nil {
		d.logger.Error().Err(err).Msg("encode message:notification")
		return
	}
	_ = receiver.Send(notification)
}

func (d *Dispatcher) handleDelete(conn *Connection, data *DeleteMessagePayload) {
	if data == nil || data.RoomID == "" || data.MessageID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId and messageId are required")
		return
	}

	deleted, err := NewEvent(EventMessageDeleted, struct {
		MessageID string `json:"messageId"`
	}{MessageID: data.MessageID})
	if err != nil {
		d.logger.Error().Err(err).Msg("encode message:deleted")
		return
	}
	d.rooms.Broadcast(data.RoomID, deleted, conn.ID)
}

func (d *Dispatcher) handleTypingStart(conn *Connection, data *TypingStartPayload) {
	if data == nil || data.RoomID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId is required")
		return
	}

	started, err := NewEvent(EventTypingStarted, struct {
		Length int `json:"length"`
	}{Length: data.Length})
	if err != nil {
		d.logger.Error().Err(err).Msg("encode typing:started")
		return
	}
	d.rooms.Broadcast(data.RoomID, started, conn.ID)
}

func (d *Dispatcher) handleTypingStop(conn *Connection, data *RoomPayload) {
	if data == nil || data.RoomID == "" {
		metrics.EventsMalformed.Inc()
		d.sendError(conn, "roomId is required")
		return
	}

	stopped, err := NewEvent(EventTypingStopped, nil)
	if err != nil {
		d.logger.Error().Err(err).Msg("encode typing:stopped")
		return
	}
	d.rooms.Broadcast(data.RoomID, stopped, conn.ID)
}

// broadcastOnlineUsers pushes the full current online-user-id list to every
// connection. A ground-truth snapshot rather than a delta, so clients cannot
// drift on a missed event.
func (d *Dispatcher) broadcastOnlineUsers() {
	payload, err := NewEvent(EventUsersOnline, d.presence.OnlineUserIDs())
	if err != nil {
		d.logger.Error().Err(err).Msg("encode users:online")
		return
	}

	d.mu.RLock()
	conns := make([]*Connection, 0, len(d.conns))
	for _, conn := range d.conns {
		conns = append(conns, conn)
	}
	d.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Send(payload)
	}
}

func (d *Dispatcher) sendError(conn *Connection, message string) {
	payload, err := NewEvent(EventError, struct {
		Message string `json:"message"`
	}{Message: message})
	if err != nil {
		return
	}
	_ = conn.Send(payload)
}

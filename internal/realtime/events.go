package realtime

import (
	"encoding/json"
	"fmt"
)

// Inbound event names. The set is closed: anything else is malformed.
const (
	EventChatJoin      = "chat:join"
	EventChatLeave     = "chat:leave"
	EventMessageSend   = "message:send"
	EventMessageDelete = "message:delete"
	EventTypingStart   = "typing:start"
	EventTypingStop    = "typing:stop"
)

// Outbound event names.
const (
	EventMessageReceived     = "message:received"
	EventMessageNotification = "message:notification"
	EventMessageDeleted      = "message:deleted"
	EventTypingStarted       = "typing:started"
	EventTypingStopped       = "typing:stopped"
	EventUsersOnline         = "users:online"
	EventError               = "error"
)

// InboundKind is the closed set of events a client may send. Adding a kind is
// a compile-time-checked change to the dispatcher's switch.
type InboundKind int

const (
	KindChatJoin InboundKind = iota + 1
	KindChatLeave
	KindMessageSend
	KindMessageDelete
	KindTypingStart
	KindTypingStop
)

// Envelope is the wire frame for every realtime event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomPayload is shared by chat:join, chat:leave and typing:stop.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload relays an already-persisted message to a room. The
// message object passes through opaquely.
type SendMessagePayload struct {
	RoomID     string          `json:"roomId"`
	Message    json.RawMessage `json:"message"`
	ReceiverID string          `json:"receiverId"`
}

type DeleteMessagePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

type TypingStartPayload struct {
	RoomID string `json:"roomId"`
	Length int    `json:"length"`
}

// InboundEvent is the decoded form of a client frame. Exactly one payload
// field matching Kind is set.
type InboundEvent struct {
	Kind   InboundKind
	Room   *RoomPayload
	Send   *SendMessagePayload
	Delete *DeleteMessagePayload
	Typing *TypingStartPayload
}

// ParseInbound decodes a client frame into the tagged union. It rejects
// unknown event names and undecodable payloads; required-field validation
// happens in the dispatcher so each handler can report precisely.
func ParseInbound(payload []byte) (*InboundEvent, error) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch envelope.Event {
	case EventChatJoin, EventChatLeave, EventTypingStop:
		var data RoomPayload
		if err := unmarshalData(envelope.Data, &data); err != nil {
			return nil, err
		}
		kind := KindChatJoin
		switch envelope.Event {
		case EventChatLeave:
			kind = KindChatLeave
		case EventTypingStop:
			kind = KindTypingStop
		}
		return &InboundEvent{Kind: kind, Room: &data}, nil
	case EventMessageSend:
		var data SendMessagePayload
		if err := unmarshalData(envelope.Data, &data); err != nil {
			return nil, err
		}
		return &InboundEvent{Kind: KindMessageSend, Send: &data}, nil
	case EventMessageDelete:
		var data DeleteMessagePayload
		if err := unmarshalData(envelope.Data, &data); err != nil {
			return nil, err
		}
		return &InboundEvent{Kind: KindMessageDelete, Delete: &data}, nil
	case EventTypingStart:
		var data TypingStartPayload
		if err := unmarshalData(envelope.Data, &data); err != nil {
			return nil, err
		}
		return &InboundEvent{Kind: KindTypingStart, Typing: &data}, nil
	default:
		return nil, fmt.Errorf("unknown event %q", envelope.Event)
	}
}

// isEmptyJSON reports whether a raw payload field carries no value: absent,
// empty, or the JSON null literal.
func isEmptyJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func unmarshalData(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// NewEvent marshals an outbound frame.
func NewEvent(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebSocketMessageType distinguishes pushed events from error replies.
type WebSocketMessageType string

const (
	EventMessage WebSocketMessageType = "event"
	ErrorMessage WebSocketMessageType = "error"
)

// ClientMethod names an invocation a client may send over a hub connection.
type ClientMethod string

const (
	JoinSession          ClientMethod = "JoinSession"
	LeaveSession         ClientMethod = "LeaveSession"
	PushContentUpdate    ClientMethod = "PushContentUpdate"
	PushDrawingUpdate    ClientMethod = "PushDrawingUpdate"
	Typing               ClientMethod = "Typing"
	MarkNotificationRead ClientMethod = "MarkNotificationRead"
)

// ServerEventKind names an event pushed to connected clients.
type ServerEventKind string

const (
	JoinedEvent              ServerEventKind = "Joined"
	LeftEvent                ServerEventKind = "Left"
	TypingEvent              ServerEventKind = "Typing"
	ContentUpdatedEvent      ServerEventKind = "ContentUpdated"
	DrawingAddedEvent        ServerEventKind = "DrawingAdded"
	ReceiveNotificationEvent ServerEventKind = "ReceiveNotification"
	NotificationReadEvent    ServerEventKind = "NotificationRead"
)

// ClientMessage is a single invocation frame read from a client.
type ClientMessage struct {
	Method  ClientMethod    `json:"method"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func NewClientMessage(method ClientMethod, params interface{}) (*ClientMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return &ClientMessage{Method: method, Payload: raw}, nil
}

// DecodeParams unmarshals the payload into v. An absent payload leaves v untouched.
func (m *ClientMessage) DecodeParams(v interface{}) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

type NoteParams struct {
	NoteID string `json:"note_id"`
}

type ContentParams struct {
	NoteID  string `json:"note_id"`
	Content string `json:"content"`
}

type DrawingParams struct {
	NoteID  string          `json:"note_id"`
	Drawing json.RawMessage `json:"drawing"`
}

type TypingParams struct {
	NoteID    string `json:"note_id"`
	ActorName string `json:"actor_name,omitempty"`
}

type ReadParams struct {
	NotificationID string `json:"notification_id"`
}

// ServerEvent is the frame pushed to clients, both for broadcasts and for
// errors returned to the caller only.
type ServerEvent struct {
	ID        string               `json:"id"`
	Type      WebSocketMessageType `json:"type"`
	Event     ServerEventKind      `json:"event,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	GroupKey  string               `json:"group,omitempty"`
	Payload   json.RawMessage      `json:"payload,omitempty"`
}

// NewServerEvent creates an event frame carrying payload.
func NewServerEvent(kind ServerEventKind, payload interface{}) (*ServerEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ServerEvent{
		ID:        uuid.New().String(),
		Type:      EventMessage,
		Event:     kind,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}, nil
}

// NewErrorEvent creates the error frame sent back to the invoking client.
func NewErrorEvent(method ClientMethod, err error) *ServerEvent {
	raw, _ := json.Marshal(ErrorPayload{Method: method, Error: err.Error()})
	return &ServerEvent{
		ID:        uuid.New().String(),
		Type:      ErrorMessage,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}
}

// WithGroup sets the group the event was broadcast to.
func (e *ServerEvent) WithGroup(key string) *ServerEvent {
	e.GroupKey = key
	return e
}

func (e *ServerEvent) DecodePayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

func (e *ServerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func (e *ServerEvent) FromJSON(data []byte) error {
	return json.Unmarshal(data, e)
}

type PresencePayload struct {
	NoteID    string `json:"note_id"`
	ActorName string `json:"actor_name"`
}

type ContentPayload struct {
	NoteID  string `json:"note_id"`
	Content string `json:"content"`
}

type DrawingPayload struct {
	NoteID  string          `json:"note_id"`
	Drawing json.RawMessage `json:"drawing"`
}

type NotificationReadPayload struct {
	NotificationID string `json:"notification_id"`
}

type ErrorPayload struct {
	Method ClientMethod `json:"method,omitempty"`
	Error  string       `json:"error"`
}

// IsEmptyJSON reports whether raw carries no drawing: absent, null or "".
func IsEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}

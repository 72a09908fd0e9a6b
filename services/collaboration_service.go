package services

import (
	"encoding/json"
	"strings"

	"notewiz-notes/notewiz/models"

	"github.com/rs/zerolog/log"
)

type CollaborationServiceInterface interface {
	JoinSession(conn *Connection, noteID string) error
	LeaveSession(conn *Connection, noteID string) error
	PushContentUpdate(conn *Connection, noteID, content string) error
	PushDrawingUpdate(conn *Connection, noteID string, drawing json.RawMessage) error
	Typing(conn *Connection, noteID, actorName string) error
}

// CollaborationService relays presence and edits between connections that
// share a note. Edits are last-writer-wins and never merged or stored here.
type CollaborationService struct {
	registry *GroupRegistry
}

func NewCollaborationService(registry *GroupRegistry) *CollaborationService {
	return &CollaborationService{registry: registry}
}

func noteKey(noteID string) (string, string, error) {
	id := strings.ToLower(strings.TrimSpace(noteID))
	if id == "" {
		return "", "", ErrInvalidNoteID
	}
	return NoteGroupKey(id), id, nil
}

func (s *CollaborationService) JoinSession(conn *Connection, noteID string) error {
	key, id, err := noteKey(noteID)
	if err != nil {
		return err
	}
	if conn.InGroup(key) {
		return nil
	}
	if !s.registry.Join(key, conn) {
		return ErrConnectionClosed
	}
	log.Info().Str("conn_id", conn.ID).Str("note_id", id).Msg("Joined note session")
	s.broadcast(key, models.JoinedEvent, models.PresencePayload{NoteID: id, ActorName: conn.DisplayName}, conn)
	return nil
}

func (s *CollaborationService) LeaveSession(conn *Connection, noteID string) error {
	key, id, err := noteKey(noteID)
	if err != nil {
		return err
	}
	if !conn.InGroup(key) {
		return nil
	}
	s.registry.Leave(key, conn)
	log.Info().Str("conn_id", conn.ID).Str("note_id", id).Msg("Left note session")
	s.broadcast(key, models.LeftEvent, models.PresencePayload{NoteID: id, ActorName: conn.DisplayName}, conn)
	return nil
}

func (s *CollaborationService) PushContentUpdate(conn *Connection, noteID, content string) error {
	key, id, err := noteKey(noteID)
	if err != nil {
		return err
	}
	if content == "" {
		return ErrEmptyPayload
	}
	if !conn.InGroup(key) {
		return nil
	}
	s.broadcast(key, models.ContentUpdatedEvent, models.ContentPayload{NoteID: id, Content: content}, conn)
	return nil
}

func (s *CollaborationService) PushDrawingUpdate(conn *Connection, noteID string, drawing json.RawMessage) error {
	key, id, err := noteKey(noteID)
	if err != nil {
		return err
	}
	if models.IsEmptyJSON(drawing) {
		return ErrEmptyPayload
	}
	if !conn.InGroup(key) {
		return nil
	}
	s.broadcast(key, models.DrawingAddedEvent, models.DrawingPayload{NoteID: id, Drawing: drawing}, conn)
	return nil
}

// Typing is best effort; an empty actorName falls back to the connection's
// display name.
func (s *CollaborationService) Typing(conn *Connection, noteID, actorName string) error {
	key, id, err := noteKey(noteID)
	if err != nil {
		return err
	}
	if !conn.InGroup(key) {
		return nil
	}
	if strings.TrimSpace(actorName) == "" {
		actorName = conn.DisplayName
	}
	s.broadcast(key, models.TypingEvent, models.PresencePayload{NoteID: id, ActorName: actorName}, conn)
	return nil
}

func (s *CollaborationService) broadcast(key string, kind models.ServerEventKind, payload interface{}, sender *Connection) {
	event, err := models.NewServerEvent(kind, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(kind)).Msg("Failed to build server event")
		return
	}
	s.registry.BroadcastEvent(key, event, sender)
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	TaskReminderNotification  NotificationType = "task_reminder"
	TaskCompletedNotification NotificationType = "task_completed"
	NoteSharedNotification    NotificationType = "note_shared"
	GenericNotification       NotificationType = "general"
)

// Notification is the persisted record; it is the source of truth that
// clients reconcile against after missing live pushes.
type Notification struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Title             string           `gorm:"not null" json:"title"`
	Message           string           `json:"message"`
	Type              NotificationType `gorm:"default:'general'" json:"type"`
	IsRead            bool             `gorm:"not null;default:false;index" json:"is_read"`
	RelatedEntityID   *uuid.UUID       `gorm:"type:uuid" json:"related_entity_id,omitempty"`
	RelatedEntityType string           `json:"related_entity_type,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// NotificationEvent is the broker envelope announcing a freshly persisted
// notification to whichever process holds the recipient's connections.
type NotificationEvent struct {
	UserID       string       `json:"user_id"`
	EventType    string       `json:"event_type"`
	Notification Notification `json:"notification"`
	Timestamp    string       `json:"timestamp"`
}

func NewNotificationEvent(n Notification) NotificationEvent {
	return NotificationEvent{
		UserID:       n.UserID.String(),
		EventType:    string(n.Type),
		Notification: n,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}

func (n *NotificationEvent) FromJSON(data []byte) error {
	return json.Unmarshal(data, n)
}

func (n *NotificationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

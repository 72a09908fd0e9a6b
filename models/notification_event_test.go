package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotificationEvent(t *testing.T) {
	taskID := uuid.New()
	n := Notification{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Title:             "Task completed",
		Message:           "Ship release",
		Type:              TaskCompletedNotification,
		RelatedEntityID:   &taskID,
		RelatedEntityType: "task",
	}

	event := NewNotificationEvent(n)
	assert.Equal(t, n.UserID.String(), event.UserID)
	assert.Equal(t, string(TaskCompletedNotification), event.EventType)
	assert.NotEmpty(t, event.Timestamp)

	data, err := event.ToJSON()
	require.NoError(t, err)
	var decoded NotificationEvent
	require.NoError(t, decoded.FromJSON(data))
	assert.Equal(t, n.ID, decoded.Notification.ID)
	require.NotNil(t, decoded.Notification.RelatedEntityID)
	assert.Equal(t, taskID, *decoded.Notification.RelatedEntityID)
}

func TestNotificationEventFromJSON(t *testing.T) {
	data := `{
		"user_id": "9b2f7c1e-5a0d-4a53-9a57-0f3c9f1e2d11",
		"event_type": "note_shared",
		"notification": {"id": "4f1c2a9e-0d3b-4c8e-8e2f-6a7b5c4d3e21", "title": "Shared with you", "is_read": false},
		"timestamp": "2026-01-01T00:00:00Z"
	}`

	var event NotificationEvent
	require.NoError(t, event.FromJSON([]byte(data)))
	assert.Equal(t, "note_shared", event.EventType)
	assert.Equal(t, "Shared with you", event.Notification.Title)
	assert.False(t, event.Notification.IsRead)
}

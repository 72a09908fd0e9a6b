package services

import (
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// NotificationFanout pushes notification changes to every live device of the
// recipient. Pushes are at most once; devices that miss one reconcile against
// the stored records.
type NotificationFanout struct {
	registry *GroupRegistry
}

func NewNotificationFanout(registry *GroupRegistry) *NotificationFanout {
	return &NotificationFanout{registry: registry}
}

// NotifyCreated pushes a new notification to all of userID's connections.
func (f *NotificationFanout) NotifyCreated(userID uuid.UUID, n models.Notification) int {
	event, err := models.NewServerEvent(models.ReceiveNotificationEvent, n)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build notification event")
		return 0
	}
	delivered := f.registry.BroadcastEvent(UserGroupKey(userID), event, nil)
	log.Debug().
		Str("user_id", userID.String()).
		Str("notification_id", n.ID.String()).
		Int("devices", delivered).
		Msg("Notification pushed")
	return delivered
}

// NotifyRead tells userID's devices that notificationID was read. The device
// that marked it, if any, is skipped.
func (f *NotificationFanout) NotifyRead(userID uuid.UUID, notificationID uuid.UUID, origin *Connection) int {
	event, err := models.NewServerEvent(models.NotificationReadEvent, models.NotificationReadPayload{
		NotificationID: notificationID.String(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build read event")
		return 0
	}
	return f.registry.BroadcastEvent(UserGroupKey(userID), event, origin)
}

// Deliver routes a notification arriving from the broker.
func (f *NotificationFanout) Deliver(n models.Notification) {
	f.NotifyCreated(n.UserID, n)
}

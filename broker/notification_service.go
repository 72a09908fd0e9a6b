package broker

import (
	"errors"
	"fmt"

	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

var ErrMissingRecipient = errors.New("notification event has no recipient")

// DecodeNotificationEvent parses a notifications.created payload.
func DecodeNotificationEvent(data []byte) (models.NotificationEvent, error) {
	var event models.NotificationEvent
	if err := event.FromJSON(data); err != nil {
		return event, fmt.Errorf("decode notification event: %w", err)
	}
	if event.Notification.UserID == uuid.Nil {
		return event, ErrMissingRecipient
	}
	return event, nil
}

// StartNotificationConsumer feeds every notifications.created event to deliver.
// Malformed events are logged and dropped.
func StartNotificationConsumer(sub Subscriber, deliver func(models.Notification)) (*nats.Subscription, error) {
	return StartConsumer(sub, NotificationCreatedSubject, func(msg Message) {
		event, err := DecodeNotificationEvent(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping notification event")
			return
		}
		log.Debug().
			Str("user_id", event.UserID).
			Str("notification_id", event.Notification.ID.String()).
			Msg("Delivering notification event")
		deliver(event.Notification)
	})
}

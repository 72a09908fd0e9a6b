package services

import (
	"errors"
	"strings"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NotificationPublisher hands a persisted notification to the broker.
type NotificationPublisher interface {
	PublishNotification(n models.Notification) error
}

type NotificationServiceInterface interface {
	CreateNotification(db *database.Database, n models.Notification) (models.Notification, error)
	GetNotifications(db *database.Database, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(db *database.Database, userID, id string, origin *Connection) (models.Notification, error)
	MarkAllAsRead(db *database.Database, userID string) (int, error)
}

// NotificationService stores notifications and announces changes. New records
// go through the broker when one is configured, falling back to in-process
// fan-out when publishing fails.
type NotificationService struct {
	fanout    *NotificationFanout
	publisher NotificationPublisher
}

func NewNotificationService(fanout *NotificationFanout, publisher NotificationPublisher) *NotificationService {
	return &NotificationService{fanout: fanout, publisher: publisher}
}

func (s *NotificationService) CreateNotification(db *database.Database, n models.Notification) (models.Notification, error) {
	if n.UserID == uuid.Nil || strings.TrimSpace(n.Title) == "" {
		return models.Notification{}, ErrInvalidInput
	}
	n.ID = uuid.New()
	n.IsRead = false
	if n.Type == "" {
		n.Type = models.GenericNotification
	}

	if err := db.DB.Create(&n).Error; err != nil {
		return models.Notification{}, err
	}

	s.announce(n)
	return n, nil
}

func (s *NotificationService) announce(n models.Notification) {
	if s.publisher != nil {
		err := s.publisher.PublishNotification(n)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("Publish failed, pushing directly")
	}
	if s.fanout != nil {
		s.fanout.NotifyCreated(n.UserID, n)
	}
}

func (s *NotificationService) GetNotifications(db *database.Database, userID string, unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := db.DB.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead persists the read flag and then tells the user's other devices.
// Notifications owned by someone else are reported as not found.
func (s *NotificationService) MarkAsRead(db *database.Database, userID, id string, origin *Connection) (models.Notification, error) {
	notificationID, err := uuid.Parse(id)
	if err != nil {
		return models.Notification{}, ErrInvalidInput
	}

	var n models.Notification
	if err := db.DB.First(&n, "id = ? AND user_id = ?", notificationID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Notification{}, ErrNotificationNotFound
		}
		return models.Notification{}, err
	}
	if n.IsRead {
		return n, nil
	}

	if err := db.DB.Model(&n).Update("is_read", true).Error; err != nil {
		return models.Notification{}, err
	}
	n.IsRead = true

	if s.fanout != nil {
		s.fanout.NotifyRead(n.UserID, n.ID, origin)
	}
	return n, nil
}

func (s *NotificationService) MarkAllAsRead(db *database.Database, userID string) (int, error) {
	var unread []models.Notification
	if err := db.DB.Where("user_id = ? AND is_read = ?", userID, false).Find(&unread).Error; err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(unread))
	for _, n := range unread {
		ids = append(ids, n.ID)
	}
	if err := db.DB.Model(&models.Notification{}).Where("id IN ?", ids).Update("is_read", true).Error; err != nil {
		return 0, err
	}

	if s.fanout != nil {
		for _, n := range unread {
			s.fanout.NotifyRead(n.UserID, n.ID, nil)
		}
	}
	return len(unread), nil
}

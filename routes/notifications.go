package routes

import (
	"errors"
	"net/http"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/middleware"
	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createNotificationRequest struct {
	Title             string                  `json:"title" binding:"required"`
	Message           string                  `json:"message"`
	Type              models.NotificationType `json:"type"`
	RelatedEntityID   *uuid.UUID              `json:"related_entity_id"`
	RelatedEntityType string                  `json:"related_entity_type"`
}

func RegisterNotificationRoutes(group *gin.RouterGroup, db *database.Database, notificationService services.NotificationServiceInterface) {
	group.GET("/notifications", func(c *gin.Context) { GetNotifications(c, db, notificationService) })
	group.POST("/notifications", func(c *gin.Context) { CreateNotification(c, db, notificationService) })
	group.PUT("/notifications/read-all", func(c *gin.Context) { MarkAllNotificationsRead(c, db, notificationService) })
	group.PUT("/notifications/:id/read", middleware.ResourceIDMiddleware("id"), func(c *gin.Context) {
		MarkNotificationRead(c, db, notificationService)
	})
}

func respondNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetNotifications is the reconciliation read clients run after reconnecting.
func GetNotifications(c *gin.Context, db *database.Database, notificationService services.NotificationServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notifications, err := notificationService.GetNotifications(db, userID.String(), c.Query("unread") == "true")
	if err != nil {
		respondNotificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func CreateNotification(c *gin.Context, db *database.Database, notificationService services.NotificationServiceInterface) {
	var request createNotificationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	created, err := notificationService.CreateNotification(db, models.Notification{
		UserID:            userID,
		Title:             request.Title,
		Message:           request.Message,
		Type:              request.Type,
		RelatedEntityID:   request.RelatedEntityID,
		RelatedEntityType: request.RelatedEntityType,
	})
	if err != nil {
		respondNotificationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// MarkNotificationRead persists the read flag and syncs every connected device.
// A REST caller holds no hub connection, so no device is excluded.
func MarkNotificationRead(c *gin.Context, db *database.Database, notificationService services.NotificationServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	notification, err := notificationService.MarkAsRead(db, userID.String(), c.Param("id"), nil)
	if err != nil {
		respondNotificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func MarkAllNotificationsRead(c *gin.Context, db *database.Database, notificationService services.NotificationServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	count, err := notificationService.MarkAllAsRead(db, userID.String())
	if err != nil {
		respondNotificationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

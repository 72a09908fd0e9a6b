package routes

import (
	"errors"
	"net/http"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/middleware"
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
)

func RegisterUserRoutes(group *gin.RouterGroup, db *database.Database, userService services.UserServiceInterface) {
	group.GET("/users/me", func(c *gin.Context) { GetCurrentUser(c, db, userService) })
}

// GetCurrentUser returns the caller's profile, including the name shown to
// collaborators in presence events.
func GetCurrentUser(c *gin.Context, db *database.Database, userService services.UserServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := userService.GetUserById(db, userID.String())
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"username":     user.Username,
		"display_name": user.DisplayName(),
		"created_at":   user.CreatedAt,
	})
}

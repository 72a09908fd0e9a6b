package routes

import (
	"net/http"

	"notewiz-notes/notewiz/middleware"
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes sets up the two hub endpoints with authentication
func RegisterWebSocketRoutes(router *gin.Engine, authService services.AuthServiceInterface, wsService services.WebSocketServiceInterface) {
	for _, route := range []services.HubRoute{services.NotesRoute, services.NotificationsRoute} {
		route := route
		router.GET(string(route), middleware.WebSocketAuthMiddleware(authService, route), func(c *gin.Context) {
			userID, ok := middleware.UserID(c)
			if !ok {
				c.JSON(http.StatusUnauthorized, gin.H{"error": services.SessionExpiredMessage})
				return
			}
			wsService.ServeHub(c.Writer, c.Request, userID, route)
		})
	}
}

package middleware

import (
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware authenticates hub upgrades. Unlike the API, hub
// routes also accept the token in the access_token query parameter, since
// browsers cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(authService services.AuthServiceInterface, route services.HubRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authService.Authenticate(c.Request)
		if err != nil {
			AbortUnauthorized(c, err)
			return
		}

		c.Set("userID", userID)
		c.Set("hubRoute", route)
		c.Next()
	}
}

package middleware

import (
	"errors"
	"net/http"

	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware resolves the caller's principal and stores it as "userID".
func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authService.Authenticate(c.Request)
		if err != nil {
			AbortUnauthorized(c, err)
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// AbortUnauthorized ends the request with the session-expired response every
// client treats as "sign in again".
func AbortUnauthorized(c *gin.Context, err error) {
	reason := services.AuthInvalid
	var authErr *services.AuthError
	if errors.As(err, &authErr) {
		reason = authErr.Reason
	}
	log.Debug().Err(err).Str("path", c.Request.URL.Path).Str("reason", string(reason)).Msg("Rejected unauthenticated request")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":  services.SessionExpiredMessage,
		"reason": reason,
	})
}

// UserID returns the principal stored by AuthMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

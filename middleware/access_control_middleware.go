package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ResourceIDMiddleware rejects requests whose path parameter is not a UUID,
// so handlers only ever see well-formed record IDs.
func ResourceIDMiddleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(param)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid resource ID"})
			return
		}
		c.Next()
	}
}

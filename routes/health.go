package routes

import (
	"net/http"
	"time"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes exposes liveness and the hub metrics.
func RegisterHealthRoutes(router *gin.Engine, db *database.Database, metrics *services.HubMetrics) {
	router.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			if err := db.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
					"error":  err.Error(),
					"time":   time.Now(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
}

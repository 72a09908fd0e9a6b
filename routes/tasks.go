package routes

import (
	"errors"
	"net/http"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/middleware"
	"notewiz-notes/notewiz/services"

	"github.com/gin-gonic/gin"
)

func RegisterTaskRoutes(group *gin.RouterGroup, db *database.Database, taskService services.TaskServiceInterface) {
	// Use GetTasks instead of GetAllTasks to support query parameters
	group.GET("/tasks", func(c *gin.Context) { GetTasks(c, db, taskService) })
	group.POST("/tasks", func(c *gin.Context) { CreateTask(c, db, taskService) })

	byID := group.Group("/tasks/:id", middleware.ResourceIDMiddleware("id"))
	byID.GET("", func(c *gin.Context) { GetTaskById(c, db, taskService) })
	byID.PUT("", func(c *gin.Context) { UpdateTask(c, db, taskService) })
	byID.DELETE("", func(c *gin.Context) { DeleteTask(c, db, taskService) })
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func CreateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	var taskData map[string]interface{}
	if err := c.ShouldBindJSON(&taskData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	createdTask, err := taskService.CreateTask(db, userID.String(), taskData)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createdTask)
}

func GetTaskById(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	task, err := taskService.GetTaskById(db, userID.String(), c.Param("id"))
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask applies a partial update. Setting is_completed to true raises a
// "Task completed" notification for every device of the owner.
func UpdateTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	var taskData map[string]interface{}
	if err := c.ShouldBindJSON(&taskData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	updatedTask, err := taskService.UpdateTask(db, userID.String(), c.Param("id"), taskData)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, updatedTask)
}

func DeleteTask(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := taskService.DeleteTask(db, userID.String(), c.Param("id")); err != nil {
		respondTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func GetTasks(c *gin.Context, db *database.Database, taskService services.TaskServiceInterface) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	params := make(map[string]interface{})
	for _, key := range []string{"note_id", "completed"} {
		if value := c.Query(key); value != "" {
			params[key] = value
		}
	}

	tasks, err := taskService.GetTasks(db, userID.String(), params)
	if err != nil {
		respondTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type TaskServiceInterface interface {
	CreateTask(db *database.Database, userID string, taskData map[string]interface{}) (models.Task, error)
	GetTaskById(db *database.Database, userID, id string) (models.Task, error)
	UpdateTask(db *database.Database, userID, id string, taskData map[string]interface{}) (models.Task, error)
	DeleteTask(db *database.Database, userID, id string) error
	GetTasks(db *database.Database, userID string, params map[string]interface{}) ([]models.Task, error)
}

// TaskService owns task records. Completing a task raises a notification for
// its owner.
type TaskService struct {
	notifications NotificationServiceInterface
}

func NewTaskService(notifications NotificationServiceInterface) *TaskService {
	return &TaskService{notifications: notifications}
}

func (s *TaskService) CreateTask(db *database.Database, userID string, taskData map[string]interface{}) (models.Task, error) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return models.Task{}, fmt.Errorf("%w: user_id", ErrInvalidInput)
	}

	title, _ := taskData["title"].(string)
	if strings.TrimSpace(title) == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	task := models.Task{
		ID:       uuid.New(),
		UserID:   owner,
		Title:    title,
		Priority: models.PriorityMedium,
	}
	if err := applyTaskData(&task, taskData); err != nil {
		return models.Task{}, err
	}
	if task.IsCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	if err := db.DB.Create(&task).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskService) GetTaskById(db *database.Database, userID, id string) (models.Task, error) {
	var task models.Task
	if err := db.DB.First(&task, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func (s *TaskService) UpdateTask(db *database.Database, userID, id string, taskData map[string]interface{}) (models.Task, error) {
	task, err := s.GetTaskById(db, userID, id)
	if err != nil {
		return models.Task{}, err
	}

	wasCompleted := task.IsCompleted
	if err := applyTaskData(&task, taskData); err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(task.Title) == "" {
		return models.Task{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	switch {
	case task.IsCompleted && !wasCompleted:
		now := time.Now().UTC()
		task.CompletedAt = &now
	case !task.IsCompleted:
		task.CompletedAt = nil
	}

	if err := db.DB.Save(&task).Error; err != nil {
		return models.Task{}, err
	}

	if task.IsCompleted && !wasCompleted {
		s.notifyCompleted(db, task)
	}
	return task, nil
}

func (s *TaskService) notifyCompleted(db *database.Database, task models.Task) {
	if s.notifications == nil {
		return
	}
	taskID := task.ID
	_, err := s.notifications.CreateNotification(db, models.Notification{
		UserID:            task.UserID,
		Title:             "Task completed",
		Message:           task.Title,
		Type:              models.TaskCompletedNotification,
		RelatedEntityID:   &taskID,
		RelatedEntityType: "task",
	})
	if err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Msg("Failed to create completion notification")
	}
}

func (s *TaskService) DeleteTask(db *database.Database, userID, id string) error {
	task, err := s.GetTaskById(db, userID, id)
	if err != nil {
		return err
	}
	return db.DB.Delete(&task).Error
}

func (s *TaskService) GetTasks(db *database.Database, userID string, params map[string]interface{}) ([]models.Task, error) {
	var tasks []models.Task
	query := db.DB.Where("user_id = ?", userID)

	if completed, ok := params["completed"].(string); ok && completed != "" {
		query = query.Where("is_completed = ?", completed == "true")
	}
	if noteID, ok := params["note_id"].(string); ok && noteID != "" {
		query = query.Where("note_id = ?", noteID)
	}

	if err := query.Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// applyTaskData copies the recognised keys of data onto task. A null
// due_date, reminder or note_id clears the field.
func applyTaskData(task *models.Task, data map[string]interface{}) error {
	for key, value := range data {
		switch key {
		case "title":
			title, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: title must be a string", ErrInvalidInput)
			}
			task.Title = title
		case "description":
			desc, ok := value.(string)
			if !ok && value != nil {
				return fmt.Errorf("%w: description must be a string", ErrInvalidInput)
			}
			task.Description = desc
		case "is_completed":
			done, ok := value.(bool)
			if !ok {
				return fmt.Errorf("%w: is_completed must be a boolean", ErrInvalidInput)
			}
			task.IsCompleted = done
		case "priority":
			p, _ := value.(string)
			priority := models.TaskPriority(strings.ToLower(p))
			if !priority.Valid() {
				return fmt.Errorf("%w: priority must be low, medium or high", ErrInvalidInput)
			}
			task.Priority = priority
		case "note_id":
			id, err := optionalUUID(value)
			if err != nil {
				return fmt.Errorf("%w: note_id", ErrInvalidInput)
			}
			task.NoteID = id
		case "due_date":
			t, err := optionalTime(value)
			if err != nil {
				return fmt.Errorf("%w: due_date: %v", ErrInvalidInput, err)
			}
			task.DueDate = t
		case "reminder":
			t, err := optionalTime(value)
			if err != nil {
				return fmt.Errorf("%w: reminder: %v", ErrInvalidInput, err)
			}
			task.Reminder = t
		}
	}
	return nil
}

func optionalTime(value interface{}) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("must be an RFC 3339 string")
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func optionalUUID(value interface{}) (*uuid.UUID, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, errors.New("must be a string")
	}
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

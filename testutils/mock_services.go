package testutils

import (
	"net/http"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/utils/token"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskService mocks services.TaskServiceInterface.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(db *database.Database, userID string, taskData map[string]interface{}) (models.Task, error) {
	args := m.Called(db, userID, taskData)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) GetTaskById(db *database.Database, userID, id string) (models.Task, error) {
	args := m.Called(db, userID, id)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(db *database.Database, userID, id string, taskData map[string]interface{}) (models.Task, error) {
	args := m.Called(db, userID, id, taskData)
	return args.Get(0).(models.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(db *database.Database, userID, id string) error {
	args := m.Called(db, userID, id)
	return args.Error(0)
}

func (m *MockTaskService) GetTasks(db *database.Database, userID string, params map[string]interface{}) ([]models.Task, error) {
	args := m.Called(db, userID, params)
	return args.Get(0).([]models.Task), args.Error(1)
}

// MockAuthService mocks services.AuthServiceInterface.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(db *database.Database, email, password string) (string, error) {
	args := m.Called(db, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*token.JWTClaims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*token.JWTClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthService) Authenticate(r *http.Request) (uuid.UUID, error) {
	args := m.Called(r)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockAuthService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ComparePasswords(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}

package services

import (
	"errors"
	"fmt"
	"strings"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRegistration struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required,min=8"`
}

type UserServiceInterface interface {
	CreateUser(db *database.Database, registration UserRegistration) (models.User, error)
	GetUserById(db *database.Database, id string) (models.User, error)
	GetDisplayName(db *database.Database, id uuid.UUID) string
}

type UserService struct{}

func (s *UserService) CreateUser(db *database.Database, registration UserRegistration) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(registration.Email))
	if email == "" || registration.Password == "" {
		return models.User{}, ErrInvalidInput
	}

	var existing int64
	if err := db.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return models.User{}, err
	}
	if existing > 0 {
		return models.User{}, fmt.Errorf("%w: email already registered", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     strings.TrimSpace(registration.Username),
		PasswordHash: string(hash),
	}
	if err := db.DB.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *UserService) GetUserById(db *database.Database, id string) (models.User, error) {
	var user models.User
	if err := db.DB.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// GetDisplayName resolves the name shown to collaborators. Lookup failures
// degrade to the anonymous name rather than failing the connection.
func (s *UserService) GetDisplayName(db *database.Database, id uuid.UUID) string {
	if db == nil {
		return models.AnonymousName
	}
	user, err := s.GetUserById(db, id.String())
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Warn().Err(err).Str("user_id", id.String()).Msg("Failed to resolve display name")
		}
		return models.AnonymousName
	}
	return user.DisplayName()
}

var UserServiceInstance UserServiceInterface = &UserService{}

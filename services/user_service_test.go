package services

import (
	"testing"

	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/testutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateUser_Success(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()

	userService := &UserService{}
	user, err := userService.CreateUser(db, UserRegistration{
		Email:    " Ada@Example.com ",
		Username: "ada",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	_, err = userService.CreateUser(db, UserRegistration{Email: "ada@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetUserById_NotFound(t *testing.T) {
	db, mock, close := testutils.SetupMockDB()
	defer close()

	mock.ExpectQuery(`SELECT (.+) FROM "users" WHERE id = \$1 (.+)LIMIT \$2`).
		WithArgs("non-existent-id", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	userService := &UserService{}
	_, err := userService.GetUserById(db, "non-existent-id")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDisplayName(t *testing.T) {
	db, close := testutils.SetupTestDB()
	defer close()
	userService := &UserService{}

	named, err := userService.CreateUser(db, UserRegistration{Email: "bob@example.com", Username: "Bob", Password: "password1"})
	require.NoError(t, err)
	unnamed, err := userService.CreateUser(db, UserRegistration{Email: "eve@example.com", Password: "password1"})
	require.NoError(t, err)

	assert.Equal(t, "Bob", userService.GetDisplayName(db, named.ID))
	assert.Equal(t, "eve@example.com", userService.GetDisplayName(db, unnamed.ID))
	assert.Equal(t, models.AnonymousName, userService.GetDisplayName(db, uuid.New()))
	assert.Equal(t, models.AnonymousName, userService.GetDisplayName(nil, named.ID))
}

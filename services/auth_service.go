package services

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"notewiz-notes/notewiz/database"
	"notewiz-notes/notewiz/models"
	"notewiz-notes/notewiz/utils/token"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Use the JWTClaims from token package
type JWTClaims = token.JWTClaims

type AuthServiceInterface interface {
	Login(db *database.Database, email, password string) (string, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
	Authenticate(r *http.Request) (uuid.UUID, error)
	HashPassword(password string) (string, error)
	ComparePasswords(hashedPassword, password string) error
}

type AuthService struct {
	jwtSecret     []byte
	jwtExpiration time.Duration
}

func NewAuthService(jwtSecret string, jwtExpirationHours int) *AuthService {
	return &AuthService{
		jwtSecret:     []byte(jwtSecret),
		jwtExpiration: time.Duration(jwtExpirationHours) * time.Hour,
	}
}

func (s *AuthService) Login(db *database.Database, email, password string) (string, error) {
	var user models.User
	if err := db.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := s.ComparePasswords(user.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}

	return token.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtExpiration)
}

// ValidateToken verifies tokenString and reports failures as *AuthError.
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims, err := token.ValidateToken(tokenString, s.jwtSecret)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			return nil, &AuthError{Reason: AuthExpired, Err: err}
		}
		return nil, &AuthError{Reason: AuthInvalid, Err: err}
	}
	return claims, nil
}

// AllowsQueryToken reports whether path may carry its credential in the
// access_token query parameter. Only the hub endpoints qualify, since browsers
// cannot set headers on a websocket upgrade.
func AllowsQueryToken(path string) bool {
	for _, prefix := range []string{string(NotesRoute), string(NotificationsRoute)} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Authenticate resolves the principal behind r.
func (s *AuthService) Authenticate(r *http.Request) (uuid.UUID, error) {
	raw, err := token.ExtractToken(r, AllowsQueryToken(r.URL.Path))
	if err != nil {
		if errors.Is(err, token.ErrAuthHeaderMissing) {
			return uuid.Nil, &AuthError{Reason: AuthMissing, Err: err}
		}
		return uuid.Nil, &AuthError{Reason: AuthInvalid, Err: err}
	}

	claims, err := s.ValidateToken(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePasswords(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

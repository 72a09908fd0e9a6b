package token

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()
	signed, err := GenerateToken(userID, "ada@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(signed, secret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestValidateToken_Expired(t *testing.T) {
	signed, err := GenerateToken(uuid.New(), "ada@example.com", secret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(signed, secret)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	signed, err := GenerateToken(uuid.New(), "ada@example.com", secret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(signed, []byte("other"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Malformed(t *testing.T) {
	_, err := ValidateToken("not-a-token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_UnsignedRejected(t *testing.T) {
	claims := JWTClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(unsigned, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/hubs/notes?access_token=query-token", nil)
	got, err := ExtractToken(req, true)
	require.NoError(t, err)
	assert.Equal(t, "query-token", got)

	_, err = ExtractToken(req, false)
	assert.ErrorIs(t, err, ErrAuthHeaderMissing)

	req.Header.Set("Authorization", "Bearer header-token")
	got, err = ExtractToken(req, true)
	require.NoError(t, err)
	assert.Equal(t, "header-token", got)

	req.Header.Set("Authorization", "Token abc")
	_, err = ExtractToken(req, true)
	assert.ErrorIs(t, err, ErrInvalidAuthFormat)
}

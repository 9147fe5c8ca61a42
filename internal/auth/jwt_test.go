package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "a@example.com")
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)

	sub, err := svc.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, userID, sub)
}

func TestJWTService_RejectsForeignAndExpiredTokens(t *testing.T) {
	token, err := NewJWTService("other", 1).Generate(uuid.New(), "a@example.com")
	require.NoError(t, err)
	_, err = NewJWTService("secret", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewJWTService("secret", -1).Generate(uuid.New(), "a@example.com")
	require.NoError(t, err)
	_, err = NewJWTService("secret", 1).Subject(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", 1).Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsOtherIssuerAndAlgorithm(t *testing.T) {
	svc := NewJWTService("secret", 1)
	userID := uuid.New()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: userID.String(), ExpiresAt: exp},
	})
	raw, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: userID.String(), ExpiresAt: exp},
	})
	raw, err = hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	mismatch := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: uuid.NewString(), ExpiresAt: exp},
	})
	raw, err = mismatch.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

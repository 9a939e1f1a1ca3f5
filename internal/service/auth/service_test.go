package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mamadbah2/inventory/internal/domain/models"
)

func newTestAuth(t *testing.T, now time.Time) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewService("admin", string(hash), "signing-key", time.Hour)
	svc.now = func() time.Time { return now }
	return svc
}

func TestLoginAndVerify(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := newTestAuth(t, now)

	token, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), token.ExpiresAt)

	subject, err := svc.Verify(token.Token)
	require.NoError(t, err)
	require.Equal(t, "admin", subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestAuth(t, time.Now())

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "nope"})
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "root", Password: "s3cret"})
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	svc := newTestAuth(t, now)
	token, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "s3cret"})
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return now.Add(2 * time.Hour) }
		defer func() { svc.now = func() time.Time { return now } }()

		_, err := svc.Verify(token.Token)
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewService("admin", "", "another-key", time.Hour)
		other.now = svc.now

		_, err := other.Verify(token.Token)
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Verify(raw)
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Verify("not-a-token")
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

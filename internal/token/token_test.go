package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-tracker/internal/domain"
)

var testUser = &domain.User{
	ID:       42,
	Email:    "ada@example.com",
	Username: "ada",
	Role:     domain.RoleAdmin,
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService("test-signing-key", opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService("   ")
	require.Error(t, err)
}

func TestIssue_ClaimsMirrorUser(t *testing.T) {
	svc := newTestService(t)

	signed, err := svc.Issue(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := svc.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, claims.UserID)
	assert.Equal(t, testUser.Email, claims.Email)
	assert.Equal(t, testUser.Username, claims.Username)
	assert.Equal(t, testUser.Role, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(Lifetime), claims.ExpiresAt.Time, time.Minute)
	assert.True(t, claims.IsAdmin())
}

func TestValidate_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-Lifetime - time.Hour)
	past := newTestService(t, WithClock(func() time.Time { return issuedAt }))

	signed, err := past.Issue(testUser)
	require.NoError(t, err)

	_, err = newTestService(t).Validate(signed)
	require.ErrorIs(t, err, domain.ErrExpiredToken)
	assert.NotErrorIs(t, err, domain.ErrInvalidToken)
}

func TestValidate_ValidJustBeforeExpiry(t *testing.T) {
	issuedAt := time.Now().Add(-Lifetime + time.Minute)
	past := newTestService(t, WithClock(func() time.Time { return issuedAt }))

	signed, err := past.Issue(testUser)
	require.NoError(t, err)

	_, err = newTestService(t).Validate(signed)
	require.NoError(t, err)
}

func TestValidate_Invalid(t *testing.T) {
	svc := newTestService(t)

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.Validate("not-a-token")
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewService("another-key")
		require.NoError(t, err)
		signed, err := other.Issue(testUser)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		signed, err := svc.Issue(testUser)
		require.NoError(t, err)
		parts := strings.Split(signed, ".")
		require.Len(t, parts, 3)

		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			UserID: 1,
			Role:   domain.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte("attacker"))
		require.NoError(t, err)
		forgedParts := strings.Split(forged, ".")

		_, err = svc.Validate(parts[0] + "." + forgedParts[1] + "." + parts[2])
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			UserID: 1,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(unsigned)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})

	t.Run("missing expiry", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).
			SignedString([]byte("test-signing-key"))
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		require.ErrorIs(t, err, domain.ErrInvalidToken)
	})
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubRevocations struct {
	revoked bool
	err     error
}

func (s stubRevocations) IsTokenRevoked(ctx context.Context, tokenString string) (bool, error) {
	return s.revoked, s.err
}

func signClaims(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestService_IssueAndValidate(t *testing.T) {
	svc := NewService(Config{Secret: testSecret, Issuer: "drawroom", Expiration: time.Hour}, nil)

	token, err := svc.IssueToken("user-1", "room-1", "moderator")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "room-1", claims.RoomID)
	assert.Equal(t, "moderator", claims.Access)
	assert.Equal(t, "drawroom", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
}

func TestService_ValidateToken_Rejections(t *testing.T) {
	svc := NewService(Config{Secret: testSecret}, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty", func(t *testing.T) string { return "" }},
		{"garbage", func(t *testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte("other"), RoomClaims{UserID: "u", RoomID: "r"})
		}},
		{"expired", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), RoomClaims{
				UserID: "u", RoomID: "r",
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			})
		}},
		{"missing room", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), RoomClaims{UserID: "u"})
		}},
		{"missing user", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), RoomClaims{RoomID: "r"})
		}},
		{"unexpected algorithm", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), RoomClaims{UserID: "u", RoomID: "r"})
		}},
		{"none algorithm", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, RoomClaims{UserID: "u", RoomID: "r"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, tt.token(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestService_ValidateToken_Issuer(t *testing.T) {
	issuer := NewService(Config{Secret: testSecret, Issuer: "accounts"}, nil)
	verifier := NewService(Config{Secret: testSecret, Issuer: "drawroom"}, nil)

	token, err := issuer.IssueToken("u", "r", "user")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_ValidateToken_WithoutExpiry(t *testing.T) {
	svc := NewService(Config{Secret: testSecret}, nil)

	token, err := svc.IssueToken("u", "r", "user")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestService_ValidateToken_Revocation(t *testing.T) {
	ctx := context.Background()
	token, err := NewService(Config{Secret: testSecret}, nil).IssueToken("u", "r", "user")
	require.NoError(t, err)

	t.Run("revoked", func(t *testing.T) {
		svc := NewService(Config{Secret: testSecret}, stubRevocations{revoked: true})
		_, err := svc.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc := NewService(Config{Secret: testSecret}, stubRevocations{err: errors.New("redis down")})
		_, err := svc.ValidateToken(ctx, token)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalidToken))
		assert.False(t, errors.Is(err, ErrTokenRevoked))
	})

	t.Run("not revoked", func(t *testing.T) {
		svc := NewService(Config{Secret: testSecret}, stubRevocations{})
		_, err := svc.ValidateToken(ctx, token)
		assert.NoError(t, err)
	})
}

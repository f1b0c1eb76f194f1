// Package auth verifies the room tokens that the upstream account service
// hands to clients, and keeps a revocation list for them.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, badly signed, expired or incomplete tokens
	ErrInvalidToken = errors.New("invalid room token")
	// ErrTokenRevoked is returned for tokens on the revocation list
	ErrTokenRevoked = errors.New("room token revoked")
)

// RoomClaims are the claims of a room token. Access is the role granted
// when the user joined the room; it is advisory only and the broker always
// re-reads the durable membership.
type RoomClaims struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
	Access string `json:"access,omitempty"`
	jwt.RegisteredClaims
}

// Config holds room token settings
type Config struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// RevocationChecker reports whether a token has been revoked
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenString string) (bool, error)
}

// Service validates and issues room tokens
type Service struct {
	secret      []byte
	issuer      string
	expiration  time.Duration
	revocations RevocationChecker
}

// NewService creates a room token service. revocations may be nil.
func NewService(cfg Config, revocations RevocationChecker) *Service {
	return &Service{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		expiration:  cfg.Expiration,
		revocations: revocations,
	}
}

// ValidateToken verifies signature, expiry and issuer and returns the claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*RoomClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &RoomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: token not valid", ErrInvalidToken)
	}
	if claims.UserID == "" || claims.RoomID == "" {
		return nil, fmt.Errorf("%w: userId and roomId are required", ErrInvalidToken)
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsTokenRevoked(ctx, tokenString)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// IssueToken signs a room token. The account service does this in
// production; the broker uses it for tooling and tests.
func (s *Service) IssueToken(userID, roomID, access string) (string, error) {
	now := time.Now()
	claims := RoomClaims{
		UserID: userID,
		RoomID: roomID,
		Access: access,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Subject:  userID,
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.expiration > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.expiration))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign room token: %w", err)
	}
	return signed, nil
}

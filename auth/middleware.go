package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/gin-gonic/gin"
)

// ClaimsContextKey is the gin context key for verified *RoomClaims
const ClaimsContextKey = "roomClaims"

// RoomTokenCookie is the cookie the account service sets after a room join
const RoomTokenCookie = "roomToken"

// ExtractToken finds a room token on a request. Browsers cannot set headers
// on a WebSocket handshake, so the query parameter is checked first.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(RoomTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Middleware provides room token authentication for REST routes
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RoomTokenRequired rejects requests without a valid room token and stores
// the claims in the gin context.
func (m *Middleware) RoomTokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := slogging.GetContextLogger(c)

		tokenString := ExtractToken(c.Request)
		if tokenString == "" {
			logger.Warn("Authentication failed: missing room token client_ip=%v", c.ClientIP())
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "room token is required",
			})
			return
		}

		claims, err := m.service.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrTokenRevoked) {
				status = http.StatusServiceUnavailable
			}
			logger.Warn("Authentication failed: client_ip=%v error=%v", c.ClientIP(), err)
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(status, gin.H{
				"error":   "unauthorized",
				"message": "invalid room token",
			})
			return
		}

		c.Set(ClaimsContextKey, claims)
		c.Set(slogging.ContextKeyUserID, claims.UserID)
		c.Set(slogging.ContextKeyRoomID, claims.RoomID)
		c.Next()
	}
}

// GetClaims returns the claims stored by RoomTokenRequired
func GetClaims(c *gin.Context) (*RoomClaims, bool) {
	v, ok := c.Get(ClaimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*RoomClaims)
	return claims, ok
}

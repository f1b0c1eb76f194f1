package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ericfitz/drawroom/auth"
	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterConfig holds what the HTTP surface needs besides the broker
type RouterConfig struct {
	Broker      *Broker
	Contents    ContentStore
	Memberships MembershipStore
	Auth        *auth.Middleware
	Database    Pinger
	Gatherer    prometheus.Gatherer
}

// NewRouter builds the gin engine serving the WebSocket entry point,
// health, metrics and the room content read path.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(slogging.LoggerMiddleware())
	r.Use(slogging.Recoverer())

	r.GET("/ws", cfg.Broker.HandleWS)
	r.GET("/health", healthHandler(cfg.Broker.Registry(), cfg.Database))
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	contents := NewContentHandler(cfg.Contents, cfg.Memberships)
	rooms := r.Group("/rooms", cfg.Auth.RoomTokenRequired())
	rooms.GET("/:roomId/contents", contents.ListRoomContents)

	return r
}

func healthHandler(registry *SessionRegistry, database Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := database.Ping(ctx); err != nil {
				slogging.GetContextLogger(c).Error("Health check failed: %v", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"sessions": registry.SessionCount(),
			"rooms":    registry.RoomCount(),
		})
	}
}

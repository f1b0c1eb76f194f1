package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/ericfitz/drawroom/auth"
	"github.com/ericfitz/drawroom/internal/slogging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// TokenVerifier validates room tokens
type TokenVerifier interface {
	ValidateToken(ctx context.Context, tokenString string) (*auth.RoomClaims, error)
}

// BrokerConfig holds transport limits and timeouts
type BrokerConfig struct {
	ReadLimit      int64
	SendBufferSize int
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
	// StoreTimeout bounds each gateway call made for one message
	StoreTimeout   time.Duration
	AllowedOrigins []string
	Logging        slogging.WebSocketLoggingConfig
}

// DefaultBrokerConfig returns the limits used when none are configured
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		ReadLimit:      64 * 1024,
		SendBufferSize: 256,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		WriteWait:      10 * time.Second,
		StoreTimeout:   5 * time.Second,
	}
}

// BrokerDeps are the collaborators of a Broker. Limiter and Registerer may
// be nil.
type BrokerDeps struct {
	Verifier    TokenVerifier
	Memberships MembershipStore
	Contents    ContentStore
	Limiter     InboundLimiter
	Registerer  prometheus.Registerer
}

// Broker accepts room WebSocket connections and runs one receive loop per
// connection.
type Broker struct {
	cfg         BrokerConfig
	verifier    TokenVerifier
	memberships MembershipStore
	limiter     InboundLimiter

	registry *SessionRegistry
	router   *BroadcastRouter
	presence *PresenceTracker
	canvas   *CanvasHandler
	control  *RoomControlHandler
	metrics  *Metrics

	upgrader websocket.Upgrader
}

// NewBroker wires a broker with its own session registry
func NewBroker(cfg BrokerConfig, deps BrokerDeps) *Broker {
	registry := NewSessionRegistry()

	var metrics *Metrics
	if deps.Registerer != nil {
		metrics = NewMetrics(deps.Registerer, registry)
	}
	router := NewBroadcastRouter(registry, metrics, cfg.Logging)

	b := &Broker{
		cfg:         cfg,
		verifier:    deps.Verifier,
		memberships: deps.Memberships,
		limiter:     deps.Limiter,
		registry:    registry,
		router:      router,
		presence:    NewPresenceTracker(registry, router),
		canvas:      NewCanvasHandler(deps.Contents, router, metrics),
		control:     NewRoomControlHandler(deps.Memberships, registry, router, metrics),
		metrics:     metrics,
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     b.checkOrigin,
	}
	return b
}

// Registry returns the broker's session registry
func (b *Broker) Registry() *SessionRegistry {
	return b.registry
}

// Shutdown closes every live session with a going-away frame. The HTTP
// server does not track hijacked connections, so this runs alongside
// http.Server.Shutdown.
func (b *Broker) Shutdown() int {
	sessions := b.registry.Sessions()
	for _, s := range sessions {
		s.Close(CloseGoingAway, ReasonShutdown)
	}
	if len(sessions) > 0 {
		slogging.Get().Info("Closed %d sessions for shutdown", len(sessions))
	}
	return len(sessions)
}

// checkOrigin allows any origin when none are configured
func (b *Broker) checkOrigin(r *http.Request) bool {
	if len(b.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(b.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// HandleWS upgrades the request, authenticates it and serves the session
// until the connection ends. Authentication failures are reported with a
// close frame so browsers can read the code.
func (b *Broker) HandleWS(c *gin.Context) {
	logger := slogging.GetContextLogger(c)

	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade connection: %v", err)
		return
	}

	membership, code, reason := b.authenticate(c.Request)
	if code != 0 {
		logger.Info("Connection refused code=%d reason=%q", code, reason)
		b.rejectConnection(conn, code, reason)
		return
	}

	session := NewSession(membership, b.cfg.SendBufferSize)
	session.conn = conn
	b.metrics.connection("accepted")
	b.serve(session)
}

// authenticate verifies the token and re-reads the durable membership.
// A zero code means the connection is admitted.
func (b *Broker) authenticate(r *http.Request) (*Membership, int, string) {
	ctx, cancel := context.WithTimeout(r.Context(), b.cfg.StoreTimeout)
	defer cancel()

	claims, err := b.verifier.ValidateToken(ctx, auth.ExtractToken(r))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrTokenRevoked) {
			b.metrics.connection("auth_failed")
			return nil, CloseAuthFailed, ReasonAuthFailed
		}
		slogging.Get().Error("Token verification unavailable: %v", err)
		b.metrics.connection("error")
		return nil, CloseInternalError, ReasonInternalError
	}

	membership, err := b.memberships.GetMembership(ctx, claims.UserID, claims.RoomID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			b.metrics.connection("auth_failed")
			return nil, CloseAuthFailed, ReasonAuthFailed
		}
		slogging.Get().Error("Failed to read membership user_id=%s room_id=%s error=%v", claims.UserID, claims.RoomID, err)
		b.metrics.connection("error")
		return nil, CloseInternalError, ReasonInternalError
	}
	if membership.IsBanned {
		b.metrics.connection("banned")
		return nil, CloseBanned, ReasonBannedAtJoin
	}
	return membership, 0, ""
}

func (b *Broker) rejectConnection(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(b.cfg.WriteWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}

// serve admits the session, runs its pumps and cleans up when the
// connection ends for any reason.
func (b *Broker) serve(s *Session) {
	replaced, remaining := b.registry.Admit(s)
	if replaced != nil {
		b.metrics.forcedClose(CloseReplaced)
		// The replaced session no longer removes itself, so its old room
		// hears the departure here. In the same room the user stays online.
		if replaced.RoomID != s.RoomID {
			b.presence.Left(replaced, remaining)
		}
	}
	slogging.LogWebSocketConnection("connected", s.ID, s.UserID, s.RoomID, slog.String("role", s.Role()))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		b.writePump(s)
	}()

	b.presence.Joined(s)
	b.readPump(s)

	s.Close(CloseNormal, "")
	<-writerDone

	removed, remaining := b.registry.Remove(s)
	if removed {
		b.presence.Left(s, remaining)
	}

	code, reason := s.CloseStatus()
	slogging.LogWebSocketConnection("disconnected", s.ID, s.UserID, s.RoomID,
		slog.Int("close_code", code),
		slog.String("close_reason", reason),
		slog.Bool("replaced", !removed),
	)
}

// readPump reads frames until the peer goes away or the session is closed,
// handling each one before reading the next.
func (b *Broker) readPump(s *Session) {
	s.conn.SetReadLimit(b.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(b.cfg.PongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && !s.IsClosed() {
				slogging.Get().Debug("WebSocket read error session_id=%s user_id=%s error=%v", s.ID, s.UserID, err)
			}
			return
		}
		if s.IsClosed() {
			return
		}
		b.HandleMessage(s, frame)
	}
}

// writePump drains the session's queue to the socket and sends pings. Once
// the session is closed it flushes what is queued, sends the close frame
// with the recorded code and closes the connection.
func (b *Broker) writePump(s *Session) {
	ticker := time.NewTicker(b.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			if err := b.writeFrame(s, frame); err != nil {
				s.Close(CloseNormal, "")
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close(CloseNormal, "")
				return
			}

		case <-s.done:
			code, reason := s.CloseStatus()
			if code != CloseSlowConsumer {
				b.flush(s)
			}
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(b.cfg.WriteWait))
			return
		}
	}
}

func (b *Broker) writeFrame(s *Session, frame []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteWait))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// flush writes frames still queued when the session closed, so a target
// sees the ban or role change before the close frame.
func (b *Broker) flush(s *Session) {
	for {
		select {
		case frame := <-s.send:
			if err := b.writeFrame(s, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatwave/dispatch-service/internal/domain"
	"github.com/chatwave/dispatch-service/internal/hub"

	"github.com/gorilla/websocket"
)

type Identity interface {
	Validate(ctx context.Context, token string) (string, error)
}

type DispatchSvc interface {
	SendDirect(ctx context.Context, authID, sender, receiver, content string) (*domain.Message, error)
	SendGroup(ctx context.Context, authID, sender, groupID, content string) (*domain.Message, error)
	MarkRead(ctx context.Context, readerID, messageID string) error
}

type Server struct {
	upgrader   websocket.Upgrader
	hub        *hub.Hub
	identity   Identity
	dispatcher DispatchSvc

	pingEvery   time.Duration
	authTimeout time.Duration
}

func NewServer(h *hub.Hub, identity Identity, dispatcher DispatchSvc) *Server {
	return &Server{
		hub:        h,
		identity:   identity,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:   15 * time.Second,
		authTimeout: 5 * time.Second,
	}
}

func (s *Server) SetPingInterval(d time.Duration) {
	if d > 0 {
		s.pingEvery = d
	}
}

func (s *Server) SetAuthTimeout(d time.Duration) {
	if d > 0 {
		s.authTimeout = d
	}
}

// WS endpoint: GET /ws?access_token=... (or Authorization: Bearer).
// The credential is validated under a bounded window before the upgrade;
// a failed or missing token never reaches the registry.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing credential token", http.StatusUnauthorized)
		return
	}

	authCtx, cancel := context.WithTimeout(r.Context(), s.authTimeout)
	userID, err := s.identity.Validate(authCtx, token)
	cancel()
	if err != nil {
		slog.Warn("ws auth failed", "err", err)
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "user", userID, "err", err)
		return
	}

	c := newWsConn(conn, userID)
	s.hub.Register(c)
	slog.Debug("ws connected", "user", userID, "session", c.sessionID)

	go s.writeLoop(r.Context(), c)
	s.readLoop(r.Context(), c)

	s.hub.Unregister(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", userID, "err", err)
	}
	slog.Debug("ws disconnected", "user", userID, "session", c.sessionID)
}

// readLoop drives all inbound events for one connection, in order. One
// goroutine per connection keeps per-connection ordering without blocking
// other connections.
func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = c.Send(errorEvent("", errBadEnvelope))
			continue
		}
		s.handleEvent(ctx, c, env)
	}
}

func (s *Server) handleEvent(ctx context.Context, c *wsConn, env Envelope) {
	switch env.Type {
	case TypeJoin:
		s.hub.JoinPersonal(c)
		_ = c.Send(ackEvent(env.Ref, AckPayload{Status: "ok"}))

	case TypeJoinGroup:
		var p JoinGroupPayload
		if decode(env.Payload, &p) != nil || p.GroupID == "" {
			_ = c.Send(errorEvent(env.Ref, errBadPayload))
			return
		}
		s.hub.Join(c, hub.GroupRoom(p.GroupID))
		_ = c.Send(ackEvent(env.Ref, AckPayload{Status: "ok"}))

	case TypeSendMessage:
		var p SendMessagePayload
		if decode(env.Payload, &p) != nil {
			_ = c.Send(errorEvent(env.Ref, errBadPayload))
			return
		}
		msg, err := s.dispatcher.SendDirect(ctx, c.userID, p.Sender, p.Receiver, p.Content)
		if err != nil {
			slog.Debug("ws send rejected", "user", c.userID, "err", err)
			_ = c.Send(errorEvent(env.Ref, err))
			return
		}
		_ = c.Send(ackEvent(env.Ref, msg))

	case TypeSendGroupMessage:
		var p SendGroupMessagePayload
		if decode(env.Payload, &p) != nil {
			_ = c.Send(errorEvent(env.Ref, errBadPayload))
			return
		}
		msg, err := s.dispatcher.SendGroup(ctx, c.userID, p.Sender, p.GroupID, p.Content)
		if err != nil {
			slog.Debug("ws group send rejected", "user", c.userID, "group", p.GroupID, "err", err)
			_ = c.Send(errorEvent(env.Ref, err))
			return
		}
		_ = c.Send(ackEvent(env.Ref, msg))

	case TypeMarkAsRead:
		var p MarkAsReadPayload
		if decode(env.Payload, &p) != nil || p.MessageID == "" {
			_ = c.Send(errorEvent(env.Ref, errBadPayload))
			return
		}
		if err := s.dispatcher.MarkRead(ctx, c.userID, p.MessageID); err != nil {
			_ = c.Send(errorEvent(env.Ref, err))
			return
		}
		_ = c.Send(ackEvent(env.Ref, AckPayload{Status: "ok"}))

	default:
		_ = c.Send(hub.Event{
			Type:    TypeError,
			Ref:     env.Ref,
			Payload: ErrorPayload{Code: codeUnknownEvent, Error: "unknown event type: " + env.Type},
		})
	}
}

func (s *Server) writeLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func bearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func decode(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return errBadPayload
	}
	return json.Unmarshal(payload, dst)
}

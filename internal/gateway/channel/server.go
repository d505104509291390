package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Laisky/zap"
	"github.com/gorilla/websocket"

	"github.com/Laisky/syncd/internal/ratelimit"
	"github.com/Laisky/syncd/internal/syncd"
	"github.com/Laisky/syncd/library/log"
)

// Server is C5: the bidirectional event channel gateway.
type Server struct {
	hub      *Hub
	auth     *syncd.Authenticator
	store    *syncd.Store
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
}

// NewServer constructs the gateway. allowedOrigins mirrors the REST
// gateway's CORS allow-list, per spec §6's shared CORS_ORIGINS config.
// limiter enforces the same per-credential budget as the REST
// gateway's rateLimitMiddleware, per spec §4.6a's channel-path rule.
func NewServer(auth *syncd.Authenticator, store *syncd.Store, limiter *ratelimit.Limiter, allowedOrigins []string) *Server {
	return &Server{
		hub:     NewHub(),
		auth:    auth,
		store:   store,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Hub exposes the room registry.
func (s *Server) Hub() *Hub { return s.hub }

// Broadcast implements the rest gateway's Broadcaster interface: an
// entire-room fanout with no exclusion, per spec §4.6's dual-path
// broadcast parity requirement.
func (s *Server) Broadcast(tenantID string, ev syncd.Event) {
	r := s.hub.roomFor(tenantID)
	for _, c := range r.members(nil) {
		c.broadcast(ev)
	}
}

// ServeHTTP upgrades the connection, runs the handshake, and then
// drives the read loop. It is mounted by the REST gateway as a plain
// http.HandlerFunc (gin.WrapF), since websocket upgrade bypasses gin's
// own response-writer wrapping.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	apiKey := r.URL.Query().Get("apiKey")
	identity, err := s.auth.Authenticate(r.Context(), apiKey)
	if err != nil {
		code := syncd.CodeOf(err)
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, string(code)),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}

	conn := newConn(ws, identity)
	s.hub.Join(conn)
	defer s.hub.Leave(conn)

	go conn.writePump()
	defer conn.close()

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.readLoop(conn)
}

// readLoop preserves per-connection ordering up to acknowledgment by
// handling frames one at a time on this goroutine, per spec §4.5's
// connection scheduling model.
func (s *Server) readLoop(conn *Conn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		s.dispatch(conn, frame)
	}
}

func (s *Server) dispatch(conn *Conn, frame inboundFrame) {
	ack := newAckHandle(conn, frame.AckID)
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Warn("event handler panicked", zap.Any("recover", r), zap.String("event", frame.Event))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !conn.identity.IsAdmin && s.limiter != nil {
		allowed, lerr := s.limiter.Allow(ctx, conn.identity.CredentialID)
		if lerr != nil {
			log.Logger.Warn("rate limiter check failed, allowing event", zap.Error(lerr))
		} else if !allowed {
			s.fail(ack, syncd.NewError(syncd.ErrCodeRateLimited, "rate limit exceeded"))
			return
		}
	}

	if !conn.identity.Can(syncd.PermWrite) {
		ack.Error(syncd.ErrCodeForbidden, "write permission required")
		return
	}

	switch frame.Event {
	case "created-file":
		s.handleCreatedFile(ctx, conn, frame.Payload, ack)
	case "modified-file":
		s.handleModifiedFile(ctx, conn, frame.Payload, ack)
	case "deleted-file":
		s.handleDeletedFile(ctx, conn, frame.Payload, ack)
	case "renamed-file":
		s.handleRenamedFile(ctx, conn, frame.Payload, ack)
	default:
		ack.Error(syncd.ErrCodeValidation, "unrecognized event")
	}
}

func (s *Server) fail(ack *ackHandle, err error) {
	code := syncd.CodeOf(err)
	if code == syncd.ErrCodeNotFound || code == syncd.ErrCodeUnauthorized ||
		code == syncd.ErrCodeInvalidKey || code == syncd.ErrCodeKeyRevoked ||
		code == syncd.ErrCodeConflict || code == syncd.ErrCodeRateLimited {
		// The channel ack vocabulary is restricted to
		// {FORBIDDEN, VALIDATION_ERROR, INTERNAL_ERROR} per spec §4.5.
		code = syncd.ErrCodeValidation
	}
	if code != syncd.ErrCodeForbidden && code != syncd.ErrCodeValidation {
		code = syncd.ErrCodeInternal
		log.Logger.Error("channel handler failed", zap.Error(err))
	}
	ack.Error(code, err.Error())
}

type pathPayload struct {
	Path string `json:"path"`
}

type contentPayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type renamePayload struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

func (s *Server) handleCreatedFile(ctx context.Context, conn *Conn, raw json.RawMessage, ack *ackHandle) {
	var p pathPayload
	if err := json.Unmarshal(raw, &p); err != nil || syncd.ValidatePath(p.Path) != nil {
		ack.Error(syncd.ErrCodeValidation, "invalid path")
		return
	}

	rec, created, err := s.store.CreateEmpty(ctx, conn.identity.TenantID, p.Path)
	if err != nil {
		s.fail(ack, err)
		return
	}
	ack.Success(rec.Hash)
	if created {
		s.broadcastExcept(conn, syncd.FileCreatedEvent(rec))
	}
}

func (s *Server) handleModifiedFile(ctx context.Context, conn *Conn, raw json.RawMessage, ack *ackHandle) {
	var p contentPayload
	if err := json.Unmarshal(raw, &p); err != nil || syncd.ValidatePath(p.Path) != nil {
		ack.Error(syncd.ErrCodeValidation, "invalid path")
		return
	}
	if err := syncd.ValidateContentSize(p.Content); err != nil {
		ack.Error(syncd.ErrCodeValidation, err.Error())
		return
	}

	rec, created, err := s.store.Upsert(ctx, conn.identity.TenantID, p.Path, p.Content)
	if err != nil {
		s.fail(ack, err)
		return
	}
	ack.Success(rec.Hash)
	if created {
		s.broadcastExcept(conn, syncd.FileCreatedEvent(rec))
	} else {
		s.broadcastExcept(conn, syncd.FileModifiedEvent(rec))
	}
}

func (s *Server) handleDeletedFile(ctx context.Context, conn *Conn, raw json.RawMessage, ack *ackHandle) {
	var p pathPayload
	if err := json.Unmarshal(raw, &p); err != nil || syncd.ValidatePath(p.Path) != nil {
		ack.Error(syncd.ErrCodeValidation, "invalid path")
		return
	}

	deleted, err := s.store.SoftDelete(ctx, conn.identity.TenantID, p.Path)
	if err != nil {
		s.fail(ack, err)
		return
	}
	ack.Success("")
	if deleted {
		s.broadcastExcept(conn, syncd.FileDeletedEvent(p.Path, time.Now().UTC()))
	}
}

func (s *Server) handleRenamedFile(ctx context.Context, conn *Conn, raw json.RawMessage, ack *ackHandle) {
	var p renamePayload
	if err := json.Unmarshal(raw, &p); err != nil ||
		syncd.ValidatePath(p.OldPath) != nil || syncd.ValidatePath(p.NewPath) != nil {
		ack.Error(syncd.ErrCodeValidation, "invalid path")
		return
	}

	rec, created, err := s.store.Rename(ctx, conn.identity.TenantID, p.OldPath, p.NewPath)
	if err != nil {
		s.fail(ack, err)
		return
	}
	ack.Success(rec.Hash)
	if created {
		s.broadcastExcept(conn, syncd.FileCreatedEvent(rec))
	} else {
		s.broadcastExcept(conn, syncd.FileRenamedEvent(p.OldPath, rec))
	}
}

// broadcastExcept fans out to every other room member, per spec §4.5's
// sender-exclusion rule for connection-originated broadcasts.
func (s *Server) broadcastExcept(sender *Conn, ev syncd.Event) {
	r := s.hub.roomFor(sender.identity.TenantID)
	for _, c := range r.members(sender) {
		c.broadcast(ev)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimSpace(o))] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowAll {
			return true
		}
		parsed, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(parsed.Hostname())]
	}
}

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler owns the live channel: it upgrades connections, verifies the
// optional session token and runs the per-connection event loop.
type LiveHandler struct {
	hub      *Hub
	auth     *auth.Manager
	messages repositories.MessageRepository

	// legacyRoomID, when non-zero, selects the single-global-room mode:
	// joins receive a message backlog and socket-level sends persist there.
	legacyRoomID int64
	backlogLimit int
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(hub *Hub, authManager *auth.Manager, messages repositories.MessageRepository, legacyRoomID int64) *LiveHandler {
	return &LiveHandler{
		hub:          hub,
		auth:         authManager,
		messages:     messages,
		legacyRoomID: legacyRoomID,
		backlogLimit: 100,
	}
}

// Handle upgrades the connection and starts the event loop.
//
// A missing or unverifiable token does NOT reject the connection: the session
// is accepted as anonymous. This mirrors the long-standing behavior clients
// depend on; durable-store endpoints stay strictly authenticated regardless.
func (h *LiveHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var identity auth.Identity
	if token := bearerToken(c); token != "" {
		verified, err := h.auth.Verify(token)
		if err != nil {
			log.Printf("live channel token rejected, continuing anonymous: %v", err)
		} else {
			identity = verified
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session := &Session{
		ID:          uuid.NewString(),
		AccountID:   identity.AccountID,
		DisplayName: identity.Username,
		RemoteIP:    observability.IPFromRequest(c.Request),
		ConnectedAt: time.Now(),
		conn:        conn,
	}

	observability.IncWSActive("live")
	observability.IncWSEvent("live", "ws_connect")
	h.publishLifecycle(ctx, session, "ws_connect", "", observability.RequestIDFromRequest(c.Request))

	go h.readLoop(conn, session, observability.RequestIDFromRequest(c.Request))
}

func (h *LiveHandler) readLoop(conn *websocket.Conn, session *Session, requestID string) {
	var closeReason string
	defer func() {
		if h.hub.Remove(conn) != nil {
			h.hub.BroadcastPresence()
		}
		observability.DecWSActive("live")
		observability.IncWSEvent("live", "ws_disconnect")
		h.publishLifecycle(context.Background(), session, "ws_disconnect", closeReason, requestID)
		conn.Close()
		log.Printf("%s left. Total joined: %d", session.DisplayName, h.hub.Joined())
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("live", "ws_error")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(frame, &event); err != nil {
			session.send(EventError, gin.H{"error": "malformed event"})
			continue
		}
		h.dispatch(session, event)
	}
}

func (h *LiveHandler) dispatch(session *Session, event Event) {
	switch event.Name {
	case EventJoin:
		h.handleJoin(session, event.Payload)
	case EventTyping:
		h.hub.Broadcast(EventTyping, TypingPayload{SessionID: session.ID, DisplayName: session.DisplayName}, session.conn)
	case EventStopTyping:
		h.hub.Broadcast(EventStopTyping, TypingPayload{SessionID: session.ID}, session.conn)
	case EventSend:
		h.handleSend(session, event.Payload)
	default:
		// Everything else is a relay request. The payload names its own
		// target set; it is rebroadcast verbatim without re-checking
		// membership against the store.
		var target relayTarget
		if err := json.Unmarshal(event.Payload, &target); err != nil || len(target.MemberIDs) == 0 {
			return
		}
		h.hub.Relay(event.Name, target.MemberIDs, event.Payload)
	}
}

func (h *LiveHandler) handleJoin(session *Session, payload json.RawMessage) {
	var join JoinPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &join); err != nil {
			session.send(EventError, gin.H{"error": "malformed join payload"})
			return
		}
	}
	// A verified identity wins over the client-supplied name.
	if session.DisplayName == "" {
		session.DisplayName = join.DisplayName
	}

	h.hub.Join(session.conn, session)

	if h.legacyRoomID != 0 {
		backlog, err := h.messages.ListRecent(context.Background(), h.legacyRoomID, h.backlogLimit)
		if err != nil {
			log.Printf("backlog load error: %v", err)
			session.send(EventHistory, []struct{}{})
		} else {
			session.send(EventHistory, backlog)
		}
	}

	h.hub.BroadcastPresence()
	observability.IncWSEvent("live", "join")
	log.Printf("%s joined. Total joined: %d", session.DisplayName, h.hub.Joined())
}

// handleSend is the legacy socket-level send: authenticated sessions persist
// into the legacy room, anonymous sessions broadcast without persisting.
func (h *LiveHandler) handleSend(session *Session, payload json.RawMessage) {
	var send SendPayload
	if err := json.Unmarshal(payload, &send); err != nil {
		session.send(EventError, gin.H{"error": "malformed message payload"})
		return
	}
	if send.Content == "" && (send.Attachment == nil || *send.Attachment == "") {
		session.send(EventError, gin.H{"error": "message content or attachment required"})
		return
	}

	if session.AccountID != 0 && h.legacyRoomID != 0 {
		msg, err := h.messages.Create(context.Background(), h.legacyRoomID, session.AccountID, session.DisplayName, send.Content, send.Attachment)
		if err != nil {
			log.Printf("legacy message store error: %v", err)
			session.send(EventError, gin.H{"error": "failed to store message"})
			return
		}
		h.hub.Broadcast(EventReceived, msg, nil)
	} else {
		name := send.SenderName
		if session.DisplayName != "" {
			name = session.DisplayName
		}
		h.hub.Broadcast(EventReceived, gin.H{
			"id":          fmt.Sprintf("msg-%d-%s", time.Now().UnixMilli(), session.ID),
			"content":     send.Content,
			"sender_name": name,
			"attachment":  send.Attachment,
			"sent_at":     time.Now(),
		}, nil)
	}
	observability.IncWSEvent("live", "message")
}

func (h *LiveHandler) publishLifecycle(ctx context.Context, session *Session, event, reason, requestID string) {
	_ = observability.PublishEvent(ctx, "ws_events.live", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"session_id":  session.ID,
			"account_id":  session.AccountID,
			"ip":          session.RemoteIP,
			"event":       event,
			"duration_ms": time.Since(session.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
	}, observability.BuildHeaders(requestID, ""))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

package ws

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messenger-service/internal/observability"
)

// Hub is the presence registry: the table of currently joined sessions. It
// lives purely in process memory; a horizontally scaled deployment fragments
// presence per process, which is a known limitation of this design.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*websocket.Conn]*Session
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[*websocket.Conn]*Session)}
}

// Join registers the session in the presence table.
func (h *Hub) Join(conn *websocket.Conn, session *Session) {
	session.JoinedAt = time.Now()
	h.mu.Lock()
	h.sessions[conn] = session
	h.mu.Unlock()
}

// Remove drops the connection from the presence table and reports the
// removed session. Removing an unknown connection is a no-op.
func (h *Hub) Remove(conn *websocket.Conn) *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[conn]
	if !ok {
		return nil
	}
	delete(h.sessions, conn)
	return session
}

// Joined reports how many sessions are currently registered.
func (h *Hub) Joined() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// PresenceList snapshots the presence table, ordered by join time.
func (h *Hub) PresenceList() []PresenceEntry {
	h.mu.RLock()
	entries := make([]PresenceEntry, 0, len(h.sessions))
	order := make(map[string]time.Time, len(h.sessions))
	for _, s := range h.sessions {
		entries = append(entries, PresenceEntry{
			SessionID:   s.ID,
			AccountID:   s.AccountID,
			DisplayName: s.DisplayName,
		})
		order[s.ID] = s.JoinedAt
	}
	h.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return order[entries[i].SessionID].Before(order[entries[j].SessionID])
	})
	return entries
}

// BroadcastPresence pushes the full presence list to every joined session.
func (h *Hub) BroadcastPresence() {
	h.Broadcast(EventUsersList, h.PresenceList(), nil)
}

// Broadcast sends an event to every joined session, optionally skipping one
// connection. Dead connections are pruned on write failure.
func (h *Hub) Broadcast(event string, payload any, except *websocket.Conn) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	for conn, session := range h.snapshot() {
		if conn == except {
			continue
		}
		if err := session.sendRaw(event, body); err != nil {
			log.Printf("websocket write error: %v", err)
			h.drop(conn, session)
		}
	}
}

// Relay rebroadcasts the payload verbatim to every joined session whose
// account id is in the caller-supplied target set. The target set is trusted
// as-is: it comes from a prior durable-store response and is not re-derived
// here, so the relay is a notification bus, not an authorization boundary.
func (h *Hub) Relay(event string, memberIDs []int64, payload json.RawMessage) {
	targets := make(map[int64]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		targets[id] = struct{}{}
	}

	for conn, session := range h.snapshot() {
		if session.AccountID == 0 {
			continue
		}
		if _, ok := targets[session.AccountID]; !ok {
			continue
		}
		if err := session.sendRaw(event, payload); err != nil {
			log.Printf("websocket relay write error: %v", err)
			h.drop(conn, session)
		}
	}
	observability.IncWSEvent("live", "relay")
}

func (h *Hub) snapshot() map[*websocket.Conn]*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[*websocket.Conn]*Session, len(h.sessions))
	for conn, session := range h.sessions {
		out[conn] = session
	}
	return out
}

func (h *Hub) drop(conn *websocket.Conn, session *Session) {
	conn.Close()
	if h.Remove(conn) != nil {
		observability.IncWSEvent("live", "ws_error")
		log.Printf("dropped session %s (%s)", session.ID, session.DisplayName)
	}
}

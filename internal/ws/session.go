package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Session is one live connection. AccountID is zero for anonymous sessions;
// it is a lookup reference only, never written back to durable storage, and
// the session dies with the connection.
type Session struct {
	ID          string
	AccountID   int64
	DisplayName string
	RemoteIP    string
	ConnectedAt time.Time
	JoinedAt    time.Time

	conn *websocket.Conn
	mu   sync.Mutex
}

// send marshals an envelope and writes it. The mutex serializes writes from
// concurrent broadcasters; gorilla allows only one writer at a time.
func (s *Session) send(event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Name: event, Payload: body})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// sendRaw writes an envelope around an already-marshaled payload.
func (s *Session) sendRaw(event string, payload json.RawMessage) error {
	frame, err := json.Marshal(Event{Name: event, Payload: payload})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

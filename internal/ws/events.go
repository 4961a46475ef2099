package ws

import "encoding/json"

// Client → server event names.
const (
	EventJoin       = "user:join"
	EventTyping     = "user:typing"
	EventStopTyping = "user:stop-typing"
	EventSend       = "message:send"
)

// Server → client event names.
const (
	EventUsersList = "users:list"
	EventHistory   = "messages:history"
	EventReceived  = "message:received"
	EventError     = "error"
)

// Event is the envelope for every frame on the live channel. Any inbound
// event outside the fixed set is treated as a relay request: the payload is
// rebroadcast verbatim to the sessions of the accounts in its member_ids.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinPayload registers the connection in the presence table.
type JoinPayload struct {
	DisplayName string `json:"display_name"`
}

// SendPayload is a legacy single-room message sent over the socket rather
// than through the message endpoint.
type SendPayload struct {
	Content    string  `json:"content"`
	SenderName string  `json:"sender_name"`
	Attachment *string `json:"attachment,omitempty"`
}

// TypingPayload announces a typing state change to other sessions.
type TypingPayload struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
}

// relayTarget extracts only the target set from a relay payload; everything
// else passes through untouched.
type relayTarget struct {
	MemberIDs []int64 `json:"member_ids"`
}

// PresenceEntry is one row of the broadcast presence list.
type PresenceEntry struct {
	SessionID   string `json:"session_id"`
	AccountID   int64  `json:"account_id,omitempty"`
	DisplayName string `json:"display_name"`
}

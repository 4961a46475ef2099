package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

const defaultPageSize = 50

// MessageHandler manages the durable message endpoints. It never touches the
// live channel: mutation responses carry the conversation's member id list and
// the client emits that into the relay itself.
type MessageHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	audit         *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		messages:      messages,
		audit:         audit,
	}
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), accountIDFromContext(c))
}

// Fetch returns a page of messages oldest-first, each annotated with how many
// members have not read it yet. Pagination walks backwards through `before`;
// another page exists exactly when a full page came back.
func (h *MessageHandler) Fetch(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	if _, err := h.conversations.Get(c.Request.Context(), convID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	callerID := accountID(c)
	members, err := h.conversations.ListMemberships(c.Request.Context(), convID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	isMember := false
	for _, m := range members {
		if m.AccountID == callerID {
			isMember = true
			break
		}
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		beforeID = &parsed
	}

	msgs, err := h.messages.List(c.Request.Context(), convID, limit, beforeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	type messageResponse struct {
		models.Message
		UnreadCount int `json:"unread_count"`
	}

	// Per-message unread count: how many members other than the sender sit
	// with a cursor ordered before this message.
	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		unread := 0
		for _, member := range members {
			if m.UnreadBy(member) {
				unread++
			}
		}
		resp = append(resp, messageResponse{Message: m, UnreadCount: unread})
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": resp,
		"has_more": len(msgs) == limit,
	})
}

// Send stores a message and refreshes the conversation summary. The summary
// update runs after the message commit and never fails the request: the
// stored message is the source of truth. The response carries the member id
// list so the caller can emit the relay notification; the durable write
// completes before any relay emission is possible.
func (h *MessageHandler) Send(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	var req struct {
		Content    string  `json:"content"`
		Attachment *string `json:"attachment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && (req.Attachment == nil || *req.Attachment == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs content or an attachment"})
		return
	}

	callerID := accountID(c)
	if _, err := h.conversations.Get(c.Request.Context(), convID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	member, err := h.conversations.IsMember(c.Request.Context(), convID, callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msg, err := h.messages.Create(c.Request.Context(), convID, callerID, username(c), req.Content, req.Attachment)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	observability.IncMessageStored()

	summary := msg.Content
	if summary == "" {
		summary = "[attachment]"
	}
	if err := h.conversations.UpdateSummary(c.Request.Context(), convID, summary, msg.SentAt); err != nil {
		log.Printf("summary update failed conversation=%d: %v", convID, err)
	}

	memberIDs, err := h.conversations.MemberIDs(c.Request.Context(), convID)
	if err != nil {
		log.Printf("member lookup failed conversation=%d: %v", convID, err)
		memberIDs = nil
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("message stored conversation=%d id=%d", convID, msg.ID))
	c.JSON(http.StatusCreated, gin.H{
		"message":         msg,
		"conversation_id": convID,
		"member_ids":      memberIDs,
	})
}

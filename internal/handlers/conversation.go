package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ConversationHandler manages conversation and membership endpoints.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	accounts      repositories.AccountRepository
	audit         *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, accounts repositories.AccountRepository, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		accounts:      accounts,
		audit:         audit,
	}
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), accountIDFromContext(c))
}

// List returns the caller's conversations with unread counts, most recently
// active first. Direct conversations carry the other member as peer.
func (h *ConversationHandler) List(c *gin.Context) {
	callerID := accountID(c)

	convs, err := h.conversations.ListForAccount(c.Request.Context(), callerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	peerIDs := make([]int64, 0, len(convs))
	for _, conv := range convs {
		member, err := h.conversations.GetMembership(c.Request.Context(), conv.ID, callerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load membership"})
			return
		}

		unread, err := h.messages.CountUnread(c.Request.Context(), conv.ID, callerID, member.LastReadMessageID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
			return
		}

		memberIDs, err := h.conversations.MemberIDs(c.Request.Context(), conv.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
			return
		}

		summary := models.ConversationSummary{
			Conversation: conv,
			CustomName:   member.CustomName,
			UnreadCount:  unread,
			MemberIDs:    memberIDs,
		}
		if conv.Kind == models.ConversationDirect {
			for _, id := range memberIDs {
				if id != callerID {
					peerIDs = append(peerIDs, id)
					break
				}
			}
		}
		summaries = append(summaries, summary)
	}

	refs, err := h.accounts.GetRefs(c.Request.Context(), peerIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load peers"})
		return
	}
	refByID := make(map[int64]models.AccountRef, len(refs))
	for _, ref := range refs {
		refByID[ref.ID] = ref
	}
	for i := range summaries {
		if summaries[i].Kind != models.ConversationDirect {
			continue
		}
		for _, id := range summaries[i].MemberIDs {
			if id == callerID {
				continue
			}
			if ref, ok := refByID[id]; ok {
				peer := ref
				summaries[i].Peer = &peer
			}
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// Create starts a conversation. With exactly one member id a direct
// conversation is created or reused; more member ids make a group.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req struct {
		MemberIDs []int64 `json:"member_ids" binding:"required,min=1"`
		Name      *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callerID := accountID(c)
	others := make([]int64, 0, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		if id != callerID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	if len(others) == 1 {
		conv, isNew, err := h.conversations.CreateDirect(c.Request.Context(), callerID, others[0])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
			return
		}
		status := http.StatusOK
		if isNew {
			status = http.StatusCreated
			h.emitAudit(c, "INFO", fmt.Sprintf("direct conversation created id=%d", conv.ID))
		}
		c.JSON(status, gin.H{"conversation": conv, "created": isNew})
		return
	}

	conv, err := h.conversations.CreateGroup(c.Request.Context(), callerID, others, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}
	h.emitAudit(c, "INFO", fmt.Sprintf("group conversation created id=%d", conv.ID))
	c.JSON(http.StatusCreated, gin.H{"conversation": conv, "created": true})
}

// AddMembers adds accounts to the conversation. Adding to a direct
// conversation converts it to a group.
func (h *ConversationHandler) AddMembers(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	var req struct {
		MemberIDs []int64 `json:"member_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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

	added, err := h.conversations.AddMembers(c.Request.Context(), convID, req.MemberIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add members"})
		return
	}
	if len(added) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "all accounts are already members"})
		return
	}

	conv, err := h.conversations.Get(c.Request.Context(), convID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload conversation"})
		return
	}
	memberIDs, err := h.conversations.MemberIDs(c.Request.Context(), convID)
	if err != nil {
		memberIDs = nil
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("members added conversation=%d count=%d", convID, len(added)))
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "added": added, "member_ids": memberIDs})
}

// Rename sets the caller's private display name for the conversation. It is
// per-member: other members keep their own names.
func (h *ConversationHandler) Rename(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.conversations.SetCustomName(c.Request.Context(), convID, accountID(c), req.Name)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not rename conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": convID, "custom_name": req.Name})
}

// Leave removes only the caller's membership. The conversation and its
// history remain for everyone else.
func (h *ConversationHandler) Leave(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	err := h.conversations.Leave(c.Request.Context(), convID, accountID(c))
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave conversation"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("left conversation id=%d", convID))
	c.Status(http.StatusNoContent)
}

// MarkRead advances the caller's read cursor. Without an explicit message id
// the cursor jumps to the conversation's newest message.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	convID, ok := parseID(c, "conversation_id", "conversation id")
	if !ok {
		return
	}

	var req struct {
		MessageID *int64 `json:"message_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	messageID := int64(0)
	if req.MessageID != nil {
		messageID = *req.MessageID
	} else {
		latest, err := h.messages.LatestID(c.Request.Context(), convID)
		if err != nil {
			if errors.Is(err, repositories.ErrNoMessages) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "conversation has no messages"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve latest message"})
			return
		}
		messageID = latest
	}

	err := h.conversations.MarkRead(c.Request.Context(), convID, accountID(c), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMembershipNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update read cursor"})
		return
	}

	// The member list rides along so the client can relay the read event.
	memberIDs, err := h.conversations.MemberIDs(c.Request.Context(), convID)
	if err != nil {
		memberIDs = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id":      convID,
		"last_read_message_id": messageID,
		"member_ids":           memberIDs,
	})
}

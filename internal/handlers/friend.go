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

// FriendHandler manages the friend request state machine.
type FriendHandler struct {
	friends  repositories.FriendRepository
	accounts repositories.AccountRepository
	audit    *telemetry.AuditEmitter
}

// NewFriendHandler builds a FriendHandler.
func NewFriendHandler(friends repositories.FriendRepository, accounts repositories.AccountRepository, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friends: friends, accounts: accounts, audit: audit}
}

func (h *FriendHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), accountIDFromContext(c))
}

// List returns the caller's accepted friends and the requests still pending
// against them.
func (h *FriendHandler) List(c *gin.Context) {
	callerID := accountID(c)

	accepted, err := h.friends.ListForAccount(c.Request.Context(), callerID, models.FriendAccepted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friends"})
		return
	}
	pending, err := h.friends.ListForAccount(c.Request.Context(), callerID, models.FriendPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}

	friendIDs := make([]int64, 0, len(accepted))
	for _, edge := range accepted {
		friendIDs = append(friendIDs, otherSide(edge, callerID))
	}
	refs, err := h.accounts.GetRefs(c.Request.Context(), friendIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load friend accounts"})
		return
	}
	refByID := make(map[int64]models.AccountRef, len(refs))
	for _, ref := range refs {
		refByID[ref.ID] = ref
	}

	type friendResponse struct {
		EdgeID  int64             `json:"edge_id"`
		Account models.AccountRef `json:"account"`
	}
	friends := make([]friendResponse, 0, len(accepted))
	for _, edge := range accepted {
		friends = append(friends, friendResponse{
			EdgeID:  edge.ID,
			Account: refByID[otherSide(edge, callerID)],
		})
	}

	incoming := make([]models.FriendEdge, 0, len(pending))
	outgoing := make([]models.FriendEdge, 0, len(pending))
	for _, edge := range pending {
		if edge.RecipientID == callerID {
			incoming = append(incoming, edge)
		} else {
			outgoing = append(outgoing, edge)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"friends":  friends,
		"incoming": incoming,
		"outgoing": outgoing,
	})
}

// Request creates a pending friend edge towards another account. A pair of
// accounts carries at most one edge in either direction; duplicates report
// whether the existing edge is already accepted or still pending.
func (h *FriendHandler) Request(c *gin.Context) {
	var req struct {
		AccountID int64 `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	callerID := accountID(c)
	if req.AccountID == callerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot friend yourself"})
		return
	}

	if _, err := h.accounts.GetByID(c.Request.Context(), req.AccountID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "account not found"})
		return
	}

	existing, err := h.friends.FindBetween(c.Request.Context(), callerID, req.AccountID)
	if err == nil {
		switch existing.Status {
		case models.FriendAccepted:
			c.JSON(http.StatusConflict, gin.H{"error": repositories.ErrAlreadyFriends.Error()})
		case models.FriendPending:
			c.JSON(http.StatusConflict, gin.H{"error": repositories.ErrRequestPending.Error()})
		default:
			// A rejected edge blocks a repeat request through the same pair.
			c.JSON(http.StatusConflict, gin.H{"error": "request was rejected"})
		}
		return
	}
	if !errors.Is(err, repositories.ErrEdgeNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check existing request"})
		return
	}

	edge, err := h.friends.Create(c.Request.Context(), callerID, req.AccountID)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateEdge) {
			c.JSON(http.StatusConflict, gin.H{"error": repositories.ErrDuplicateEdge.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create request"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("friend request created edge=%d", edge.ID))
	c.JSON(http.StatusCreated, gin.H{"request": edge})
}

// Accept transitions a pending request to accepted. Only the recipient may
// accept, and only while the request is still pending.
func (h *FriendHandler) Accept(c *gin.Context) {
	h.resolve(c, models.FriendAccepted)
}

// Reject transitions a pending request to rejected. Only the recipient may
// reject.
func (h *FriendHandler) Reject(c *gin.Context) {
	h.resolve(c, models.FriendRejected)
}

func (h *FriendHandler) resolve(c *gin.Context, status string) {
	edgeID, ok := parseID(c, "request_id", "request id")
	if !ok {
		return
	}

	edge, err := h.friends.Get(c.Request.Context(), edgeID)
	if err != nil {
		httpStatus := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrEdgeNotFound) {
			httpStatus = http.StatusNotFound
		}
		c.JSON(httpStatus, gin.H{"error": "request not found"})
		return
	}

	if edge.RecipientID != accountID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the recipient can resolve a request"})
		return
	}
	if edge.Status != models.FriendPending {
		c.JSON(http.StatusConflict, gin.H{"error": "request already resolved"})
		return
	}

	if err := h.friends.SetStatus(c.Request.Context(), edgeID, status); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update request"})
		return
	}
	edge.Status = status

	h.emitAudit(c, "INFO", fmt.Sprintf("friend request %s edge=%d", status, edgeID))
	c.JSON(http.StatusOK, gin.H{"request": edge})
}

func otherSide(edge models.FriendEdge, accountID int64) int64 {
	if edge.RequesterID == accountID {
		return edge.RecipientID
	}
	return edge.RequesterID
}

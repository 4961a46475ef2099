package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/auth"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// AuthHandler manages account registration and login.
type AuthHandler struct {
	accounts repositories.AccountRepository
	tokens   *auth.Manager
	audit    *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(accounts repositories.AccountRepository, tokens *auth.Manager, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens, audit: audit}
}

func (h *AuthHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), accountIDFromContext(c))
}

// Register creates an account and returns a session token for it.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), strings.ToLower(req.Email), hash, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateAccount) {
			c.JSON(http.StatusConflict, gin.H{"error": "email or username already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}

	token, err := h.tokens.Issue(auth.Identity{AccountID: account.ID, Email: account.Email, Username: account.Username})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("account registered id=%d", account.ID))
	c.JSON(http.StatusCreated, gin.H{"account": account, "token": token})
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accounts.GetByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load account"})
		return
	}
	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(auth.Identity{AccountID: account.ID, Email: account.Email, Username: account.Username})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.emitAudit(c, "INFO", fmt.Sprintf("account login id=%d", account.ID))
	c.JSON(http.StatusOK, gin.H{"account": account, "token": token})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.accounts.GetByID(c.Request.Context(), accountID(c))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrAccountNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

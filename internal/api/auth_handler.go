package api

import (
	"errors"
	"net/http"
	"time"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/service"
	"alcyxob/flexcoach/internal/session"

	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the acting session.
type AuthHandler struct {
	store     *service.EntityStore
	jwtSecret string
	tokenTTL  time.Duration
	devTokens bool
}

// NewAuthHandler creates a new AuthHandler. devTokens enables the token
// minting endpoint used for local development.
func NewAuthHandler(store *service.EntityStore, jwtSecret string, tokenTTL time.Duration, devTokens bool) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL, devTokens: devTokens}
}

// --- Request/Response Structs ---

type DevTokenRequest struct {
	UserID  string      `json:"userId" binding:"required"`
	Role    domain.Role `json:"role" binding:"required,oneof=coach client"`
	CoachID string      `json:"coachId"`
}

type SessionResponse struct {
	Role          domain.Role `json:"role"`
	AccountID     string      `json:"accountId,omitempty"`
	ActiveID      string      `json:"activeId,omitempty"`
	CoachID       string      `json:"coachId,omitempty"`
	Authenticated bool        `json:"authenticated"`
	RemoteReady   bool        `json:"remoteReady"`
}

func mapSessionToResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		Role:          s.Role(),
		AccountID:     s.AccountID(),
		ActiveID:      s.ActiveID(),
		CoachID:       s.CoachID(),
		Authenticated: s.Authenticated(),
		RemoteReady:   s.RemoteReady(),
	}
}

// --- Handler Methods ---

// IssueDevToken godoc
// @Summary Mint a token for local development
// @Tags Auth
// @Accept json
// @Produce json
// @Param tokenRequest body DevTokenRequest true "Identity to sign"
// @Success 200 {object} gin.H "Signed token"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Development tokens disabled"
// @Router /auth/token [post]
func (h *AuthHandler) IssueDevToken(c *gin.Context) {
	if !h.devTokens || h.jwtSecret == "" {
		abortWithError(c, http.StatusNotFound, "Development tokens are disabled")
		return
	}
	var req DevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Role == domain.RoleClient && req.CoachID == "" {
		abortWithError(c, http.StatusBadRequest, "coachId is required for client tokens")
		return
	}

	token, err := session.IssueToken(h.jwtSecret, req.UserID, req.Role, req.CoachID, h.tokenTTL)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to sign token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Me returns the acting session.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, mapSessionToResponse(h.store.Session()))
}

// Logout drops the session and all in-memory data.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.store.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// Refresh re-pulls the data set. A fallback to the offline cache is
// reported, not treated as a failure.
func (h *AuthHandler) Refresh(c *gin.Context) {
	source := "remote"
	if !h.store.Session().RemoteReady() {
		source = "cache"
	}
	if err := h.store.Refresh(c.Request.Context()); err != nil {
		if !errors.Is(err, service.ErrOfflineFallback) {
			abortWithServiceError(c, err)
			return
		}
		source = "cache"
	}
	c.JSON(http.StatusOK, gin.H{
		"source":    source,
		"clients":   len(h.store.ListClients()),
		"templates": len(h.store.Templates()),
	})
}

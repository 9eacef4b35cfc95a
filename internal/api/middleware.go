package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/repository"
	"alcyxob/flexcoach/internal/service"
	"alcyxob/flexcoach/internal/session"
	"alcyxob/flexcoach/internal/storage"

	"github.com/gin-gonic/gin"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserRoleKey = "userRole"
)

// AuthMiddleware verifies the bearer token and makes its identity the
// store's session. The bridge serves one actor at a time, so a token for a
// different identity switches the session and reloads the data set.
// With no secret configured the bridge runs unauthenticated and the core
// stays in cache-only mode.
//
// Requests for the current identity run concurrently. A request that switches
// identity holds the actor exclusively until its handler returns, so no
// handler ever decides against another request's session.
func AuthMiddleware(jwtSecret string, store *service.EntityStore) gin.HandlerFunc {
	var actorMu sync.RWMutex
	return func(c *gin.Context) {
		sess := store.Session()
		if jwtSecret == "" {
			c.Set(ContextUserIDKey, sess.AccountID())
			c.Set(ContextUserRoleKey, sess.Role())
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := session.ParseToken(jwtSecret, parts[1])
		if err != nil {
			if errors.Is(err, session.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		actorMu.RLock()
		if sameIdentity(sess, claims) {
			defer actorMu.RUnlock()
			c.Set(ContextUserIDKey, claims.UserID)
			c.Set(ContextUserRoleKey, claims.Role)
			c.Next()
			return
		}
		actorMu.RUnlock()

		actorMu.Lock()
		defer actorMu.Unlock()
		if !sameIdentity(sess, claims) {
			if err := store.Login(c.Request.Context(), claims); err != nil {
				if !errors.Is(err, service.ErrOfflineFallback) {
					abortWithError(c, http.StatusUnauthorized, err.Error())
					return
				}
				log.Printf("WARN: login of %s served from offline cache: %v", claims.UserID, err)
			}
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUserRoleKey, claims.Role)
		c.Next()
	}
}

func sameIdentity(sess *session.Session, claims *session.Claims) bool {
	if sess.Role() != claims.Role {
		return false
	}
	if claims.Role == domain.RoleClient {
		return sess.AccountID() == claims.UserID && sess.CoachID() == claims.CoachID
	}
	return sess.CoachID() == claims.UserID
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// abortWithServiceError maps core errors onto HTTP status codes.
func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrRequestNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRequestNotPending),
		errors.Is(err, service.ErrRequestInFlight),
		errors.Is(err, repository.ErrConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidBackup),
		errors.Is(err, service.ErrInvalidProgramType),
		errors.Is(err, service.ErrTemplateNameMissing),
		errors.Is(err, domain.ErrEmptyClientData):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCancelled):
		abortWithError(c, http.StatusPreconditionRequired, "Confirmation required: repeat the request with ?confirm=true")
	case errors.Is(err, service.ErrBackupStorageOff):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		abortWithError(c, http.StatusBadGateway, "Remote sync failed: "+err.Error())
	}
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, err := getUserRoleFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", userRole))
	}
}

// Helper function to get User Role from context (used by handlers)
func getUserRoleFromContext(c *gin.Context) (domain.Role, error) {
	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return "", errors.New("user role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return "", errors.New("invalid user role type in context")
	}
	return role, nil
}

type confirmKey struct{}

// confirmedContext carries whether the caller passed ?confirm=true.
func confirmedContext(c *gin.Context) context.Context {
	return context.WithValue(c.Request.Context(), confirmKey{}, c.Query("confirm") == "true")
}

// QueryConfirmer approves destructive actions only for requests sent with
// ?confirm=true.
var QueryConfirmer service.Confirmer = service.ConfirmFunc(func(ctx context.Context, prompt string) bool {
	ok, _ := ctx.Value(confirmKey{}).(bool)
	if !ok {
		log.Printf("INFO: unconfirmed: %s", prompt)
	}
	return ok
})

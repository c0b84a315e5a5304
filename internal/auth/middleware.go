package auth

import (
	"net/http"
	"strings"
	"time"

	"call-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

// Gin context keys set by RequireAccessToken.
const (
	KeyUserID      = "user_id"
	KeyWorkspaceID = "workspace_id"
	KeyRole        = "role"
)

// bearerToken extracts the token from "Bearer <token>"; the scheme is
// matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAccessToken verifies an access token, puts the identity on the
// request context and tags the request logger with workspace and user.
// Role checks live in internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			logger.FromGin(c).Debug("token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.WorkspaceID, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyWorkspaceID, claims.WorkspaceID)
		c.Set(KeyRole, claims.Role)
		logger.Enrich(c, "workspace_id", claims.WorkspaceID, "user_id", claims.UserID, "role", claims.Role)

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"strings"

	"branch-pos/internal/auth"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID   = "userID"
	KeyRole     = "role"
	KeyBranchID = "branchID"
)

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
		"error":   kind,
	})
}

// AuthMiddleware checks if the user has a valid JWT token
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Get the token from the "Authorization" header
		// Format: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authorization header is required")
			return
		}

		// 2. Remove the "Bearer " prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abort(c, http.StatusUnauthorized, "unauthorized", "Authorization header must start with Bearer")
			return
		}

		// 3. Validate the token
		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		// 4. Store user info in the context for the handlers
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyRole, claims.Role)
		if claims.BranchID != nil {
			c.Set(KeyBranchID, *claims.BranchID)
		}

		c.Next()
	}
}

// RequireCapability lets the request through only if the caller's role holds capability.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(KeyRole)
		r, ok := role.(models.Role)
		if !ok || !auth.Can(r, capability) {
			abort(c, http.StatusForbidden, "forbidden", "You do not have permission to access this resource")
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 outside AuthMiddleware.
func UserID(c *gin.Context) uint {
	id, _ := c.Get(KeyUserID)
	v, _ := id.(uint)
	return v
}

// Role returns the authenticated role.
func Role(c *gin.Context) models.Role {
	role, _ := c.Get(KeyRole)
	r, _ := role.(models.Role)
	return r
}

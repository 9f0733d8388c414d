package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"makerspace/internal/api"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
	ctxRoleLevel = "user_role_level"
)

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: msg, Code: "unauthorized"})
}

func AuthMiddleware(accessTokenSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			unauthorized(c, "Token is empty")
			return
		}

		claims, err := ValidateToken(tokenString, accessTokenSecret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				unauthorized(c, "Token expired")
			} else {
				unauthorized(c, "Invalid or malformed token")
			}
			return
		}

		if claims.TokenType != "access" {
			unauthorized(c, "Access token required")
			return
		}

		SetIdentity(c, Identity{
			UserID:     claims.UserID,
			Email:      claims.Email,
			Role:       claims.Role,
			TrustLevel: claims.RoleLevel,
		})

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxUserRole)
		if !exists {
			unauthorized(c, "User role not found")
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			unauthorized(c, "Invalid role type")
			return
		}

		if roleStr != requiredRole {
			c.AbortWithStatusJSON(http.StatusForbidden, api.ErrorResponse{Error: "Insufficient permissions", Code: "forbidden"})
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// GetIdentity assembles the caller identity set by AuthMiddleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Identity{}, false
	}

	return Identity{
		UserID:     id,
		Email:      c.GetString(ctxUserEmail),
		Role:       c.GetString(ctxUserRole),
		TrustLevel: c.GetInt(ctxRoleLevel),
	}, true
}

// MustIdentity writes 401 and returns false when the caller is anonymous.
func MustIdentity(c *gin.Context) (Identity, bool) {
	id, ok := GetIdentity(c)
	if !ok {
		unauthorized(c, "User not authenticated")
	}
	return id, ok
}

// SetIdentity stores id on the context the way AuthMiddleware does.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxUserEmail, id.Email)
	c.Set(ctxUserRole, id.Role)
	c.Set(ctxRoleLevel, id.TrustLevel)
}

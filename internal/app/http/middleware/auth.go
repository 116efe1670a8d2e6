package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"visualizar-api/internal/domain/access"
	"visualizar-api/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const currentUserKey = "currentUser"

// UserResolver maps a provider user id to the local account. Soft-deleted
// accounts must resolve to nil.
type UserResolver interface {
	GetBySupabaseID(ctx context.Context, supabaseID string) (*users.User, error)
}

// BearerToken extracts the bearer credential from the Authorization
// header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader || token == "" {
		return "", false
	}
	return token, true
}

// Auth verifies the provider-issued access token locally (HS256 with the
// project JWT secret), resolves the local account by provider id and
// cross-checks the email, then attaches the AuthenticatedUser to the
// request context.
func Auth(jwtSecret string, resolver UserResolver) gin.HandlerFunc {
	key := []byte(jwtSecret)

	return func(c *gin.Context) {
		if len(key) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			c.Abort()
			return
		}

		tokenString, ok := BearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization header found"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		supabaseID, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		if supabaseID == "" || email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		user, err := resolver.GetBySupabaseID(c.Request.Context(), supabaseID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
			c.Abort()
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in local database"})
			c.Abort()
			return
		}

		if user.Email != email {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Email mismatch between Supabase and local database"})
			c.Abort()
			return
		}

		c.Set(currentUserKey, users.AuthenticatedUser{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			Role:           user.Role,
			SupabaseUserID: supabaseID,
		})
		c.Next()
	}
}

// CurrentUser returns the identity Auth attached to the request.
func CurrentUser(c *gin.Context) (users.AuthenticatedUser, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return users.AuthenticatedUser{}, false
	}
	user, ok := value.(users.AuthenticatedUser)
	return user, ok
}

// RequireRoles rejects callers outside the route's declared role set.
func RequireRoles(allowed access.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if !allowed.Allows(user.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}

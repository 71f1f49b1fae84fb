// README: Bearer JWT authentication; puts the caller identity on the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"rumo/internal/types"
)

const identityKey = "identity"

// Auth validates the Bearer token and stores the caller's Identity.
// With required=false a missing token passes through as anonymous; a
// present but invalid token is always rejected.
func Auth(secret string, required bool) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Set(identityKey, types.Identity{})
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if userID == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}
		c.Set(identityKey, types.Identity{ID: types.ID(userID), Role: types.Role(role)})
		c.Next()
	}
}

// RequireRoles gates a route to the given roles. It assumes Auth ran
// earlier on the chain.
func RequireRoles(roles ...types.Role) gin.HandlerFunc {
	allowed := make(map[types.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		id := Identity(c)
		if id.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// Identity returns the caller stored by Auth, or the anonymous identity.
func Identity(c *gin.Context) types.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return types.Identity{}
	}
	id, ok := v.(types.Identity)
	if !ok {
		return types.Identity{}
	}
	return id
}

// cmd/middleware/auth.go
package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/token"
)

const claimsKey = "token_claims"

// RequireToken verifies the bearer token on every request behind it
// and stashes the claims in the context. Signature and expiry only;
// role and active-status checks belong to the policy guard.
func RequireToken(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth"})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		if raw == auth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid auth format"})
			return
		}

		claims, err := issuer.Verify(raw)
		if err != nil {
			if errors.Is(err, errvalues.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
				return
			}
			log.Printf("[AUTH] verify failed: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims set by RequireToken.
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

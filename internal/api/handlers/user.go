package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
)

// Token exchanges HTTP basic credentials for an identity token. The
// response never distinguishes bad username from bad password.
func (h *Handlers) Token(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "basic auth credentials required"})
		return
	}

	user, err := h.Store.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		if !errors.Is(err, errvalues.ErrNotFound) {
			log.Printf("[AUTH] user lookup failed: %v", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account inactive", "kind": "unauthenticated"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	signed, err := h.Issuer.IssueIdentity(user.PublicID, user.IsFacility, h.Config.Token.IdentityTTL)
	if err != nil {
		log.Printf("[AUTH] token issue failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed})
}

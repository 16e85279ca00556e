package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SciData-Delivery/Delivery-Service/cmd/middleware"
	"github.com/SciData-Delivery/Delivery-Service/internal/authz"
	"github.com/SciData-Delivery/Delivery-Service/internal/configuration"
	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/services"
	"github.com/SciData-Delivery/Delivery-Service/internal/storage"
	"github.com/SciData-Delivery/Delivery-Service/internal/token"
)

// Handlers bundles the dependencies every endpoint shares.
type Handlers struct {
	Store    storage.Store
	Guard    *authz.Guard
	Issuer   *token.Issuer
	Projects *services.ProjectService
	Config   *configuration.Config
}

func New(store storage.Store, guard *authz.Guard, issuer *token.Issuer,
	projects *services.ProjectService, cfg *configuration.Config) *Handlers {
	return &Handlers{
		Store:    store,
		Guard:    guard,
		Issuer:   issuer,
		Projects: projects,
		Config:   cfg,
	}
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// claims pulls the verified claims placed by the auth middleware.
func claims(c *gin.Context) (*token.Claims, bool) {
	cl, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return cl, ok
}

// statusFor maps the error taxonomy onto HTTP statuses. Unknown errors
// are internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errvalues.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errvalues.ErrForbidden):
		return http.StatusUnauthorized // denial contract: 401, same as the access check
	case errors.Is(err, errvalues.ErrNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, errvalues.ErrConfiguration):
		return http.StatusUnauthorized
	case errors.Is(err, errvalues.ErrTransient), errors.Is(err, errvalues.ErrIntegrity):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// kindFor gives the machine-distinguishable reason accompanying every
// failure response.
func kindFor(err error) string {
	switch {
	case errors.Is(err, errvalues.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, errvalues.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errvalues.ErrNotFound):
		return "not_found"
	case errors.Is(err, errvalues.ErrConfiguration):
		return "configuration"
	case errors.Is(err, errvalues.ErrTransient):
		return "transient"
	case errors.Is(err, errvalues.ErrIntegrity):
		return "integrity"
	}
	return "internal"
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), gin.H{
		"error": err.Error(),
		"kind":  kindFor(err),
	})
}

package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SciData-Delivery/Delivery-Service/cmd/middleware"
	"github.com/SciData-Delivery/Delivery-Service/internal/api/handlers"
	"github.com/SciData-Delivery/Delivery-Service/internal/token"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	}
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handlers, issuer *token.Issuer) {
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/user/token", h.Token) // basic auth -> identity token

		authed := api.Group("")
		authed.Use(middleware.RequireToken(issuer))
		{
			authed.GET("/project/access", h.ProjectAccess) // ?project=&method=
			authed.GET("/project/list", h.ListProjects)    // identity token only
			authed.POST("/project", h.CreateProject)       // facility only

			// Grant-token endpoints: the token must carry a verified
			// grant for the project in the path.
			authed.GET("/project/:id/files", h.ListFiles)
			authed.DELETE("/project/:id/contents", h.RemoveContents)
			authed.POST("/project/:id/files/reconcile", h.ReconcileUploads)
		}
	}
}

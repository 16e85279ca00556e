package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
)

// ProjectAccess checks the caller's access to one project + verb and,
// when granted, returns the narrowed token downstream operations must
// present. Contract: 500 when the method parameter is missing (checked
// before any database work), 401 on every denial.
func (h *Handlers) ProjectAccess(c *gin.Context) {
	cl, ok := claims(c)
	if !ok {
		return
	}

	method := c.Query("method")
	if method == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "method parameter missing"})
		return
	}
	verb, ok := models.ParseVerb(method)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown method: " + method})
		return
	}

	grant, err := h.Guard.Authorize(c.Request.Context(), cl, c.Query("project"), verb)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_granted": true, "token": grant.Token})
}

// ListProjects returns the rows for every project the subject belongs
// to. Identity token is enough; no project grant involved.
func (h *Handlers) ListProjects(c *gin.Context) {
	cl, ok := claims(c)
	if !ok {
		return
	}

	user, err := h.Guard.CurrentUser(c.Request.Context(), cl)
	if err != nil {
		abortWithError(c, err)
		return
	}

	projects, err := h.Store.ListUserProjects(c.Request.Context(), user.PublicID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	rows := make([]models.ProjectListRow, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, models.ProjectListRow{
			ProjectID:   p.ID,
			Title:       p.Title,
			PI:          p.PI,
			Status:      p.Status,
			LastUpdated: p.DateUpdated.Format("2006-01-02 15:04:05"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"all_projects": rows,
		"columns":      []string{"Project ID", "Title", "PI", "Status", "Last updated"},
	})
}

type createProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

// CreateProject provisions a new project for a facility subject:
// sequential id, keypair, bucket. Facility role required.
func (h *Handlers) CreateProject(c *gin.Context) {
	cl, ok := claims(c)
	if !ok {
		return
	}

	user, err := h.Guard.CurrentUser(c.Request.Context(), cl)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !user.IsFacility {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "only facilities create projects", "kind": "forbidden"})
		return
	}

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ownerID := req.Owner
	if ownerID != "" {
		owner, err := h.Store.GetUserByPublicID(c.Request.Context(), ownerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "owner does not exist"})
			return
		}
		ownerID = owner.PublicID
	} else {
		ownerID = user.PublicID
	}

	project, err := h.Projects.Create(c.Request.Context(), user, req.Title, req.Description, ownerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// loadGrantedProject resolves the project a grant-token request names,
// after the grant itself checks out.
func (h *Handlers) loadGrantedProject(c *gin.Context) (models.Project, models.User, bool) {
	cl, ok := claims(c)
	if !ok {
		return models.Project{}, models.User{}, false
	}

	projectID := c.Param("id")
	user, err := h.Guard.RequireGrant(c.Request.Context(), cl, projectID)
	if err != nil {
		abortWithError(c, err)
		return models.Project{}, models.User{}, false
	}

	project, err := h.Store.GetProject(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, errvalues.ErrNotFound) {
			// Same denial as missing membership; existence stays hidden.
			abortWithError(c, errvalues.ErrForbidden)
			return models.Project{}, models.User{}, false
		}
		abortWithError(c, err)
		return models.Project{}, models.User{}, false
	}

	return project, user, true
}

// ListFiles returns the metadata rows for a project's files.
func (h *Handlers) ListFiles(c *gin.Context) {
	project, _, ok := h.loadGrantedProject(c)
	if !ok {
		return
	}

	files, err := h.Store.ListProjectFiles(c.Request.Context(), project.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project_id": project.ID, "files": files})
}

// RemoveContents wipes every object in the project's bucket and then
// the file rows. Storage first; a metadata failure afterwards surfaces
// as an integrity error with removed=false so the caller can retry the
// database phase alone.
func (h *Handlers) RemoveContents(c *gin.Context) {
	project, user, ok := h.loadGrantedProject(c)
	if !ok {
		return
	}
	if !user.IsFacility {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "rm not permitted for this role", "kind": "forbidden"})
		return
	}

	result, err := h.Projects.RemoveContents(c.Request.Context(), project, user)
	if err != nil {
		log.Printf("[PROJECT] remove contents of %s failed: %v", project.ID, err)
		c.JSON(statusFor(err), gin.H{
			"removed": result.Removed,
			"message": result.Message,
			"error":   err.Error(),
			"kind":    kindFor(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": result.Removed, "message": result.Message})
}

type reconcileRequest struct {
	Log []models.UploadLogEntry `json:"log" binding:"required"`
}

// ReconcileUploads heals file metadata from a client-supplied upload
// completion log. Safe to call repeatedly with the same log.
func (h *Handlers) ReconcileUploads(c *gin.Context) {
	project, user, ok := h.loadGrantedProject(c)
	if !ok {
		return
	}
	if !user.IsFacility {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "reconcile not permitted for this role", "kind": "forbidden"})
		return
	}

	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log: " + err.Error()})
		return
	}

	result, err := h.Projects.ReconcileUploads(c.Request.Context(), project, user, req.Log)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

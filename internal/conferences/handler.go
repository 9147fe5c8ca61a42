package conferences

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/pkg/response"
)

// CreateConferenceRequest is the body for POST /organizations/:orgId/conferences.
type CreateConferenceRequest struct {
	Name         string     `json:"name" binding:"required"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description"`
	CFPOpenDate  *time.Time `json:"cfp_open_date"`
	CFPCloseDate *time.Time `json:"cfp_close_date"`
}

// UpdateConferenceRequest is the body for PATCH .../conferences/:confId.
type UpdateConferenceRequest struct {
	Name         *string    `json:"name"`
	Slug         *string    `json:"slug"`
	Description  *string    `json:"description"`
	CFPOpenDate  *time.Time `json:"cfp_open_date"`
	CFPCloseDate *time.Time `json:"cfp_close_date"`
}

// Handler handles conference HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a conferences handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /organizations/:orgId/conferences.
func (h *Handler) Create(c *gin.Context) {
	var body CreateConferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	conf, err := h.svc.Create(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID, CreateInput(body))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, conf)
}

// List handles GET /organizations/:orgId/conferences.
func (h *Handler) List(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	list, err := h.svc.List(c.Request.Context(), rc.Scope.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /organizations/:orgId/conferences/:confId.
func (h *Handler) Get(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	conf, err := h.svc.Get(c.Request.Context(), rc.Scope.OrgID, rc.Scope.ConfID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conf)
}

// Update handles PATCH /organizations/:orgId/conferences/:confId.
func (h *Handler) Update(c *gin.Context) {
	var body UpdateConferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	conf, err := h.svc.Update(c.Request.Context(), rc.Scope.OrgID, rc.Scope.ConfID, UpdateInput(body))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conf)
}

// Delete handles DELETE /organizations/:orgId/conferences/:confId.
func (h *Handler) Delete(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Delete(c.Request.Context(), rc.Scope.OrgID, rc.Scope.ConfID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// Join handles POST /organizations/:orgId/conferences/:confId/join.
func (h *Handler) Join(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	role, err := h.svc.Join(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID, rc.Scope.ConfID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"conference_id": rc.Scope.ConfID, "role": role})
}

// Leave handles POST /organizations/:orgId/conferences/:confId/leave.
func (h *Handler) Leave(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Leave(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID, rc.Scope.ConfID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"left": true})
}

// Members handles GET /organizations/:orgId/conferences/:confId/members.
func (h *Handler) Members(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	list, err := h.svc.Members(c.Request.Context(), rc.Scope.OrgID, rc.Scope.ConfID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

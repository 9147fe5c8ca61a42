package organizations

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an organizations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Website     string `json:"website"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateOrganizationRequest is the body for PATCH /organizations/:orgId.
type UpdateOrganizationRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	Logo        *string `json:"logo"`
	Plan        *string `json:"plan"`
	IsPublic    *bool   `json:"is_public"`
}

// LogoUploadRequest is the body for POST /organizations/:orgId/logo/upload-url.
type LogoUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// CreateOrganization handles POST /organizations. The caller becomes OWNER.
func (h *Handler) CreateOrganization(c *gin.Context) {
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	rc := middleware.RequestContextFrom(c)
	org, err := h.svc.Create(c.Request.Context(), rc.Identity.UserID, CreateInput{
		Name:        body.Name,
		Slug:        body.Slug,
		Description: body.Description,
		Website:     body.Website,
		IsPublic:    body.IsPublic,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// GetOrganization handles GET /organizations/:orgId, where the parameter is an id or a slug.
func (h *Handler) GetOrganization(c *gin.Context) {
	org, err := h.svc.Get(c.Request.Context(), c.Param("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// ListMyOrganizations handles GET /organizations. Returns orgs the current user is a member of.
func (h *Handler) ListMyOrganizations(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	orgs, err := h.svc.ListForUser(c.Request.Context(), rc.Identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, orgs)
}

// UpdateOrganization handles PATCH /organizations/:orgId.
func (h *Handler) UpdateOrganization(c *gin.Context) {
	var body UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	org, err := h.svc.Update(c.Request.Context(), rc.Scope.OrgID, UpdateInput(body))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// DeleteOrganization handles DELETE /organizations/:orgId.
func (h *Handler) DeleteOrganization(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Delete(c.Request.Context(), rc.Scope.OrgID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": true})
}

// JoinOrganization handles POST /organizations/:orgId/join for public organizations.
func (h *Handler) JoinOrganization(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	org, err := h.svc.Join(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// LeaveOrganization handles POST /organizations/:orgId/leave.
func (h *Handler) LeaveOrganization(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Leave(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"left": true})
}

// ListMembers handles GET /organizations/:orgId/members.
func (h *Handler) ListMembers(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	members, err := h.svc.Members(c.Request.Context(), rc.Scope.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, members)
}

// LogoUploadURL handles POST /organizations/:orgId/logo/upload-url.
func (h *Handler) LogoUploadURL(c *gin.Context) {
	var body LogoUploadRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "content_type required")
		return
	}
	rc := middleware.RequestContextFrom(c)
	up, err := h.svc.LogoUploadURL(c.Request.Context(), rc.Scope.OrgID, body.ContentType)
	if errors.Is(err, ErrLogoStorageDisabled) {
		response.ServiceUnavailable(c, "logo uploads are not configured")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, up)
}

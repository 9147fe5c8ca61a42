package memberships

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/pkg/response"
)

// CreateRequest is the body for POST /tenants/:tenantId/memberships.
// UserID defaults to the caller.
type CreateRequest struct {
	UserID *uuid.UUID        `json:"user_id"`
	Role   models.TenantRole `json:"role" binding:"required"`
}

// UpdateRequest is the body for PUT /tenants/:tenantId/memberships/:userId.
type UpdateRequest struct {
	Role models.TenantRole `json:"role" binding:"required"`
}

// Handler handles membership HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a membership handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func targetParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /tenants/:tenantId/memberships.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	target := rc.Identity.UserID
	if req.UserID != nil {
		target = *req.UserID
	}
	m, err := h.svc.Create(c.Request.Context(), rc.Identity.UserID, rc.Scope.TenantID, target, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// List handles GET /tenants/:tenantId/memberships.
func (h *Handler) List(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	list, err := h.svc.List(c.Request.Context(), rc.Identity.UserID, rc.Scope.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if list == nil {
		list = []*models.Membership{}
	}
	response.OK(c, list)
}

// Get handles GET /tenants/:tenantId/memberships/:userId.
func (h *Handler) Get(c *gin.Context) {
	target, ok := targetParam(c)
	if !ok {
		return
	}
	rc := middleware.RequestContextFrom(c)
	m, err := h.svc.Get(c.Request.Context(), rc.Identity.UserID, rc.Scope.TenantID, target)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Update handles PUT /tenants/:tenantId/memberships/:userId.
func (h *Handler) Update(c *gin.Context) {
	target, ok := targetParam(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	m, err := h.svc.Update(c.Request.Context(), rc.Identity.UserID, rc.Scope.TenantID, target, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, m)
}

// Delete handles DELETE /tenants/:tenantId/memberships/:userId.
func (h *Handler) Delete(c *gin.Context) {
	target, ok := targetParam(c)
	if !ok {
		return
	}
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Remove(c.Request.Context(), rc.Identity.UserID, rc.Scope.TenantID, target); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"removed": true})
}

package tenants

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/pkg/response"
)

// CreateRequest is the body for POST /tenants.
type CreateRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

// Handler handles tenant HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a tenant handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /tenants.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	t, err := h.svc.Create(c.Request.Context(), rc.Identity.UserID, req.Name, req.Slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Get handles GET /tenants/:tenantId.
func (h *Handler) Get(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	t, err := h.svc.Get(c.Request.Context(), rc.Scope.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

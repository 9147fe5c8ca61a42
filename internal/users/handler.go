package users

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/response"
)

// UpdateRequest is the body for PATCH /users/me.
type UpdateRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateEmailRequest is the body for PATCH /users/me/update-email.
type UpdateEmailRequest struct {
	NewEmail string `json:"new_email" binding:"required,email"`
}

// Handler handles user profile endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a user handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.ErrUnauthenticated)
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Update handles PATCH /users/me.
func (h *Handler) Update(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.ErrUnauthenticated)
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.UpdateName(c.Request.Context(), id.UserID, req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// UpdateEmail handles PATCH /users/me/update-email.
func (h *Handler) UpdateEmail(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		response.Error(c, apperr.ErrUnauthenticated)
		return
	}
	var req UpdateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.UpdateEmail(c.Request.Context(), id.UserID, req.NewEmail)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

package invites

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/pkg/response"
)

// CreateRequest is the body for POST /invites/organizations/:orgId.
// The target conference comes from the conference_id query parameter or body field.
type CreateRequest struct {
	Email    string           `json:"email" binding:"required,email"`
	OrgRole  *models.OrgRole  `json:"org_role"`
	ConfRole *models.ConfRole `json:"conf_role"`
}

// Handler handles invite HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an invite handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func confScope(s authz.Scope) *uuid.UUID {
	if s.ConfID == uuid.Nil {
		return nil
	}
	id := s.ConfID
	return &id
}

// Create handles POST /invites/organizations/:orgId.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rc := middleware.RequestContextFrom(c)
	inv, err := h.svc.Create(c.Request.Context(), rc.Identity.UserID, rc.Scope.OrgID, confScope(rc.Scope), CreateInput{
		Email:    req.Email,
		OrgRole:  req.OrgRole,
		ConfRole: req.ConfRole,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inv)
}

// List handles GET /invites/organizations/:orgId.
func (h *Handler) List(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	list, err := h.svc.List(c.Request.Context(), rc.Scope.OrgID, confScope(rc.Scope))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Accept handles POST /invites/accept/:token. The token is the credential.
func (h *Handler) Accept(c *gin.Context) {
	res, err := h.svc.Accept(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Revoke handles DELETE /invites/revoke/:token?organization_id=.
func (h *Handler) Revoke(c *gin.Context) {
	rc := middleware.RequestContextFrom(c)
	if err := h.svc.Revoke(c.Request.Context(), rc.Scope.OrgID, c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"revoked": true})
}

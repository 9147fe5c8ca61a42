// Package server assembles the HTTP router: public routes, authenticated
// routes and the role policy guarding each scoped endpoint.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/auth"
	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/conferences"
	"github.com/confhub/backend/internal/invites"
	"github.com/confhub/backend/internal/memberships"
	"github.com/confhub/backend/internal/middleware"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/organizations"
	"github.com/confhub/backend/internal/tenants"
	"github.com/confhub/backend/internal/users"
	"github.com/confhub/backend/pkg/response"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Deps is everything the router needs.
type Deps struct {
	Logger      *zap.Logger
	CORSOrigins []string
	Tokens      middleware.TokenVerifier
	Identities  middleware.IdentityLoader

	Auth          *auth.Handler
	Users         *users.Handler
	Organizations *organizations.Handler
	Conferences   *conferences.Handler
	Invites       *invites.Handler
	Tenants       *tenants.Handler
	Memberships   *memberships.Handler

	// Checks are reported by /health; any failure turns it into a 503.
	Checks map[string]HealthChecker
}

var (
	orgAny     = []models.OrgRole{models.OrgRoleOwner, models.OrgRoleAdmin, models.OrgRoleMember}
	orgManager = []models.OrgRole{models.OrgRoleOwner, models.OrgRoleAdmin}
	confAny    = []models.ConfRole{
		models.ConfRoleOwner, models.ConfRoleAdmin, models.ConfRoleOrganizer,
		models.ConfRoleReviewer, models.ConfRoleSpeaker,
	}
	tenantAny     = []models.TenantRole{models.TenantRoleOwner, models.TenantRoleOrganizer, models.TenantRoleReviewer, models.TenantRoleSubmitter}
	tenantManager = []models.TenantRole{models.TenantRoleOwner, models.TenantRoleOrganizer}
)

// NewRouter builds the gin engine with every route.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allow := func(p *authz.Policy) gin.HandlerFunc { return middleware.Authorize(p, logger) }

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", health(d.Checks))

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
	}

	// Invite acceptance: the token is the credential
	router.POST("/invites/accept/:token", d.Invites.Accept)

	api := router.Group("")
	api.Use(middleware.Authenticate(d.Tokens, d.Identities))
	{
		api.GET("/auth/me", d.Auth.Me)

		// Own profile
		api.GET("/users/me", d.Users.Me)
		api.PATCH("/users/me", d.Users.Update)
		api.PATCH("/users/me/update-email", d.Users.UpdateEmail)

		// Organizations
		api.GET("/organizations", d.Organizations.ListMyOrganizations)
		api.POST("/organizations", allow(nil), d.Organizations.CreateOrganization)
		api.GET("/organizations/:orgId", d.Organizations.GetOrganization)
		api.PATCH("/organizations/:orgId", allow(authz.OrgRoles(orgManager...)), d.Organizations.UpdateOrganization)
		api.DELETE("/organizations/:orgId", allow(authz.OrgRoles(models.OrgRoleOwner)), d.Organizations.DeleteOrganization)
		api.POST("/organizations/:orgId/join", allow(nil), d.Organizations.JoinOrganization)
		api.POST("/organizations/:orgId/leave", allow(nil), d.Organizations.LeaveOrganization)
		api.GET("/organizations/:orgId/members", allow(authz.OrgRoles(orgAny...)), d.Organizations.ListMembers)
		api.POST("/organizations/:orgId/logo/upload-url", allow(authz.OrgRoles(orgManager...)), d.Organizations.LogoUploadURL)

		// Conferences
		confs := api.Group("/organizations/:orgId/conferences")
		confs.POST("", allow(authz.OrgRoles(orgManager...)), d.Conferences.Create)
		confs.GET("", allow(authz.OrgRoles(orgAny...)), d.Conferences.List)
		confs.GET("/:confId", allow(authz.OrgRoles(orgAny...).WithConf(confAny...)), d.Conferences.Get)
		confs.PATCH("/:confId", allow(authz.OrgRoles(orgManager...).WithConf(models.ConfRoleOwner, models.ConfRoleAdmin, models.ConfRoleOrganizer)), d.Conferences.Update)
		confs.DELETE("/:confId", allow(authz.OrgRoles(models.OrgRoleOwner).WithConf(models.ConfRoleOwner)), d.Conferences.Delete)
		confs.POST("/:confId/join", allow(authz.OrgRoles(orgAny...)), d.Conferences.Join)
		confs.POST("/:confId/leave", allow(nil), d.Conferences.Leave)
		confs.GET("/:confId/members", allow(authz.OrgRoles(orgAny...).WithConf(confAny...)), d.Conferences.Members)

		// Invites
		api.POST("/invites/organizations/:orgId", allow(authz.OrgRoles(orgManager...)), d.Invites.Create)
		api.GET("/invites/organizations/:orgId", allow(authz.OrgRoles(orgManager...)), d.Invites.List)
		api.DELETE("/invites/revoke/:token", allow(authz.OrgRoles(orgManager...)), d.Invites.Revoke)

		// Tenants and memberships; membership rules beyond the listing are decided per request
		api.POST("/tenants", allow(nil), d.Tenants.Create)
		api.GET("/tenants/:tenantId", allow(authz.TenantRoles(tenantAny...)), d.Tenants.Get)
		ms := api.Group("/tenants/:tenantId/memberships")
		ms.POST("", allow(nil), d.Memberships.Create)
		ms.GET("", allow(authz.TenantRoles(tenantManager...)), d.Memberships.List)
		ms.GET("/:userId", allow(nil), d.Memberships.Get)
		ms.PUT("/:userId", allow(authz.TenantRoles(tenantManager...)), d.Memberships.Update)
		ms.DELETE("/:userId", allow(nil), d.Memberships.Delete)
	}

	return router
}

func health(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		code := http.StatusOK
		for name, chk := range checks {
			if chk.Healthy(c.Request.Context()) {
				status[name] = "ok"
				continue
			}
			status[name] = "down"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			c.JSON(code, response.Body{Success: false, Data: status, Error: "dependency unavailable"})
			return
		}
		response.OK(c, status)
	}
}

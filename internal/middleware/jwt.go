package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/response"
)

const (
	// ContextIdentity is the key for the caller's *authz.Identity in gin context.
	ContextIdentity = "identity"
	// ContextRequest is the key for the authz.RequestContext set by Authorize.
	ContextRequest = "request_context"
)

// TokenVerifier checks a bearer token and returns the user it was issued to.
type TokenVerifier interface {
	Subject(token string) (uuid.UUID, error)
}

// IdentityLoader fetches the role snapshot of a user once per request.
type IdentityLoader interface {
	Load(ctx context.Context, userID uuid.UUID) (*authz.Identity, error)
}

// Authenticate validates the bearer token and attaches the caller's identity.
// Every failure gets the same response so clients cannot tell a missing token from a bad one.
func Authenticate(tokens TokenVerifier, identities IdentityLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, apperr.ErrUnauthenticated)
			c.Abort()
			return
		}
		userID, err := tokens.Subject(parts[1])
		if err != nil {
			response.Error(c, apperr.ErrUnauthenticated)
			c.Abort()
			return
		}
		id, err := identities.Load(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextIdentity, id)
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authenticate, or nil.
func IdentityFrom(c *gin.Context) *authz.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*authz.Identity)
	return id
}

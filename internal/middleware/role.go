package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/pkg/response"
)

// maxScopeBody bounds how much of a request body is buffered for scope lookup.
const maxScopeBody = 1 << 20

// Authorize resolves the request scope and checks it against policy.
// A nil policy admits any authenticated caller. On success the resulting
// authz.RequestContext is available through RequestContextFrom.
func Authorize(policy *authz.Policy, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		body, err := peekBody(c)
		if err != nil {
			response.BadRequest(c, "unreadable request body")
			c.Abort()
			return
		}
		scope, err := authz.ResolveScope(authz.RequestValues{
			Params: c.Param,
			Query:  c.Request.URL.Query(),
			Body:   body,
		})
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		id := IdentityFrom(c)
		if err := authz.Authorize(policy, id, scope); err != nil {
			fields := []zap.Field{
				zap.String("reason", err.Error()),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
			}
			if id != nil {
				fields = append(fields, zap.String("user_id", id.UserID.String()))
			}
			logger.Debug("request denied", fields...)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextRequest, authz.RequestContext{Identity: id, Scope: scope})
		c.Next()
	}
}

// peekBody reads the body and puts it back for the handler.
func peekBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxScopeBody))
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), c.Request.Body))
	return body, nil
}

// RequestContextFrom returns the value set by Authorize. Outside an authorized
// route it carries only the identity, if any.
func RequestContextFrom(c *gin.Context) authz.RequestContext {
	if v, ok := c.Get(ContextRequest); ok {
		if rc, ok := v.(authz.RequestContext); ok {
			return rc
		}
	}
	return authz.RequestContext{Identity: IdentityFrom(c)}
}

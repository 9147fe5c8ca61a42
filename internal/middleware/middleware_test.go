package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
)

type fakeTokens map[string]uuid.UUID

func (f fakeTokens) Subject(token string) (uuid.UUID, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

type fakeIdentities map[uuid.UUID]*authz.Identity

func (f fakeIdentities) Load(_ context.Context, id uuid.UUID) (*authz.Identity, error) {
	if i, ok := f[id]; ok {
		return i, nil
	}
	return nil, store.ErrUserNotFound
}

type harness struct {
	engine *gin.Engine
	org    uuid.UUID
	seen   *authz.RequestContext
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)
	h := &harness{engine: gin.New(), org: uuid.New()}
	admin, member := uuid.New(), uuid.New()
	tokens := fakeTokens{"admin": admin, "member": member}
	ids := fakeIdentities{
		admin:  {UserID: admin, Organizations: []models.OrgMembership{{OrganizationID: h.org, Role: models.OrgRoleAdmin}}},
		member: {UserID: member, Organizations: []models.OrgMembership{{OrganizationID: h.org, Role: models.OrgRoleMember}}},
	}
	record := func(c *gin.Context) {
		rc := RequestContextFrom(c)
		h.seen = &rc
		c.Status(http.StatusOK)
	}
	api := h.engine.Group("/", Authenticate(tokens, ids))
	api.PATCH("/orgs/:orgId", Authorize(authz.OrgRoles(models.OrgRoleOwner, models.OrgRoleAdmin), nil), record)
	api.POST("/scoped", Authorize(authz.OrgRoles(models.OrgRoleOwner, models.OrgRoleAdmin), nil), func(c *gin.Context) {
		var body struct {
			OrganizationID string `json:"organization_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusTeapot)
			return
		}
		record(c)
	})
	api.GET("/open", Authorize(nil, nil), record)
	return h
}

func (h *harness) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	h := newHarness()
	for _, token := range []string{"", "garbage"} {
		w := h.do(http.MethodGet, "/open", token, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, w.Body.String())
	}
	w := h.do(http.MethodGet, "/open", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, h.seen)
	assert.NotNil(t, h.seen.Identity)
	assert.Equal(t, uuid.Nil, h.seen.Scope.OrgID)
}

func TestAuthorize_Param(t *testing.T) {
	h := newHarness()

	w := h.do(http.MethodPatch, "/orgs/"+h.org.String(), "admin", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, h.org, h.seen.Scope.OrgID)

	w = h.do(http.MethodPatch, "/orgs/"+h.org.String(), "member", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"forbidden"}`, w.Body.String())

	w = h.do(http.MethodPatch, "/orgs/"+uuid.NewString(), "admin", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPatch, "/orgs/not-a-uuid", "admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthorize_BodyScopeLeavesBodyReadable(t *testing.T) {
	h := newHarness()

	w := h.do(http.MethodPost, "/scoped", "admin", `{"organization_id":"`+h.org.String()+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, h.org, h.seen.Scope.OrgID)

	w = h.do(http.MethodPost, "/scoped", "admin", `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/scoped?organization_id="+h.org.String(), "admin", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(SplitOrigins("http://a.test, http://b.test")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://b.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://b.test", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].ContextMap()["error"], "db down")
}

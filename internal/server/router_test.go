package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/confhub/backend/internal/auth"
	"github.com/confhub/backend/internal/conferences"
	"github.com/confhub/backend/internal/invites"
	"github.com/confhub/backend/internal/memberships"
	"github.com/confhub/backend/internal/organizations"
	"github.com/confhub/backend/internal/store/memstore"
	"github.com/confhub/backend/internal/tenants"
	"github.com/confhub/backend/internal/users"
)

type app struct {
	t      *testing.T
	engine *gin.Engine
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var cache *auth.IdentityCache
	st := memstore.New(func(ctx context.Context, ids []uuid.UUID) { cache.Invalidate(ctx, ids) })
	cache = auth.NewIdentityCache(st, rdb, time.Hour, nil)
	jwt := auth.NewJWTService("test-secret", 1)

	engine := NewRouter(Deps{
		Tokens:        jwt,
		Identities:    cache,
		Auth:          auth.NewHandler(st, jwt, nil),
		Users:         users.NewHandler(users.NewService(st, nil)),
		Organizations: organizations.NewHandler(organizations.NewService(st, nil, nil)),
		Conferences:   conferences.NewHandler(conferences.NewService(st, nil)),
		Invites:       invites.NewHandler(invites.NewService(st, 0, nil)),
		Tenants:       tenants.NewHandler(tenants.NewService(st, nil)),
		Memberships:   memberships.NewHandler(memberships.NewService(st, nil)),
	})
	return &app{t: t, engine: engine}
}

func (a *app) call(method, path, token string, body any) (int, gjson.Result) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w.Code, gjson.ParseBytes(w.Body.Bytes())
}

func (a *app) register(name string) (token, id string) {
	a.t.Helper()
	code, res := a.call(http.MethodPost, "/auth/register", "", gin.H{
		"email": name + "@example.com", "password": "correct-horse", "name": name,
	})
	require.Equal(a.t, http.StatusCreated, code, res.Raw)
	return res.Get("data.token").String(), res.Get("data.user.id").String()
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	code, res := a.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", res.Get("data.status").String())
}

func TestOrganizationAndInviteFlow(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	bob, bobID := a.register("bob")

	code, _ := a.call(http.MethodGet, "/organizations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res := a.call(http.MethodPost, "/organizations", alice, gin.H{"name": "Acme Events"})
	require.Equal(t, http.StatusCreated, code, res.Raw)
	orgID := res.Get("data.id").String()

	code, res = a.call(http.MethodGet, "/organizations/acme-events", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, orgID, res.Get("data.id").String())

	code, res = a.call(http.MethodPatch, "/organizations/"+orgID, bob, gin.H{"description": "mine now"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", res.Get("error").String())

	code, _ = a.call(http.MethodPatch, "/organizations/not-an-id", alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = a.call(http.MethodPost, "/organizations/"+orgID+"/conferences", alice, gin.H{"name": "GoConf"})
	require.Equal(t, http.StatusCreated, code, res.Raw)
	confID := res.Get("data.id").String()
	confPath := "/organizations/" + orgID + "/conferences/" + confID

	code, _ = a.call(http.MethodGet, confPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, res = a.call(http.MethodPost, "/invites/organizations/"+orgID+"?conference_id="+confID, alice, gin.H{
		"email": "BOB@example.com", "conf_role": "REVIEWER",
	})
	require.Equal(t, http.StatusCreated, code, res.Raw)
	token := res.Get("data.token").String()
	require.NotEmpty(t, token)

	code, res = a.call(http.MethodGet, "/invites/organizations/"+orgID, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Get("data").Array(), 1)
	assert.False(t, res.Get("data.0.token").Exists())

	code, res = a.call(http.MethodPost, "/invites/accept/"+token, "", nil)
	require.Equal(t, http.StatusOK, code, res.Raw)
	code, _ = a.call(http.MethodPost, "/invites/accept/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	// bob's cached identity was refreshed by the accept
	code, res = a.call(http.MethodGet, "/auth/me", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, bobID, res.Get("data.user.id").String())
	assert.Equal(t, "MEMBER", res.Get("data.organizations.0.role").String())
	assert.Equal(t, "REVIEWER", res.Get("data.conferences.0.role").String())

	code, _ = a.call(http.MethodGet, confPath, bob, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodPatch, confPath, bob, gin.H{"description": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodPatch, confPath, alice, gin.H{"description": "x"})
	assert.Equal(t, http.StatusOK, code)

	code, res = a.call(http.MethodGet, "/organizations/"+orgID+"/members", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Get("data").Array(), 2)

	code, _ = a.call(http.MethodDelete, "/organizations/"+orgID, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodDelete, "/organizations/"+orgID, alice, nil)
	require.Equal(t, http.StatusOK, code)

	code, res = a.call(http.MethodGet, "/auth/me", bob, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, res.Get("data.organizations").Array())
	assert.Empty(t, res.Get("data.conferences").Array())
}

func TestInviteRevokeNeedsOrganization(t *testing.T) {
	a := newApp(t)
	alice, _ := a.register("alice")
	code, res := a.call(http.MethodPost, "/organizations", alice, gin.H{"name": "Acme"})
	require.Equal(t, http.StatusCreated, code)
	orgID := res.Get("data.id").String()

	code, res = a.call(http.MethodPost, "/invites/organizations/"+orgID, alice, gin.H{"email": "carol@example.com"})
	require.Equal(t, http.StatusCreated, code, res.Raw)
	token := res.Get("data.token").String()

	code, _ = a.call(http.MethodDelete, "/invites/revoke/"+token, alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.call(http.MethodDelete, "/invites/revoke/"+token+"?organization_id="+orgID, alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodPost, "/invites/accept/"+token, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTenantMemberships(t *testing.T) {
	a := newApp(t)
	owner, _ := a.register("owner")
	sam, samID := a.register("sam")

	code, res := a.call(http.MethodPost, "/tenants", owner, gin.H{"name": "Papers"})
	require.Equal(t, http.StatusCreated, code, res.Raw)
	base := "/tenants/" + res.Get("data.id").String()

	code, _ = a.call(http.MethodGet, base, sam, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.call(http.MethodPost, base+"/memberships", sam, gin.H{"role": "ORGANIZER"})
	assert.Equal(t, http.StatusForbidden, code)
	code, res = a.call(http.MethodPost, base+"/memberships", sam, gin.H{"role": "SUBMITTER"})
	require.Equal(t, http.StatusCreated, code, res.Raw)

	code, _ = a.call(http.MethodGet, base, sam, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodGet, base+"/memberships", sam, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.call(http.MethodGet, base+"/memberships/"+samID, sam, nil)
	assert.Equal(t, http.StatusOK, code)

	code, res = a.call(http.MethodPut, base+"/memberships/"+samID, owner, gin.H{"role": "REVIEWER"})
	require.Equal(t, http.StatusOK, code, res.Raw)
	assert.Equal(t, "REVIEWER", res.Get("data.role").String())

	code, res = a.call(http.MethodGet, base+"/memberships", owner, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res.Get("data").Array(), 2)

	code, _ = a.call(http.MethodDelete, base+"/memberships/"+samID, sam, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.call(http.MethodGet, base, sam, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUserProfile(t *testing.T) {
	a := newApp(t)
	ada, _ := a.register("ada")
	a.register("bob")

	code, res := a.call(http.MethodPatch, "/users/me", ada, gin.H{"name": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, code, res.Raw)
	assert.Equal(t, "Ada Lovelace", res.Get("data.name").String())

	code, _ = a.call(http.MethodPatch, "/users/me/update-email", ada, gin.H{"new_email": "BOB@example.com"})
	assert.Equal(t, http.StatusConflict, code)

	code, res = a.call(http.MethodPatch, "/users/me/update-email", ada, gin.H{"new_email": "Ada@Lovelace.dev"})
	require.Equal(t, http.StatusOK, code, res.Raw)
	assert.Equal(t, "ada@lovelace.dev", res.Get("data.email").String())
	assert.False(t, res.Get("data.email_verified").Bool())

	code, res = a.call(http.MethodGet, "/users/me", ada, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ada@lovelace.dev", res.Get("data.email").String())

	code, _ = a.call(http.MethodPost, "/auth/login", "", gin.H{"email": "ada@lovelace.dev", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.call(http.MethodPatch, "/users/me", "", gin.H{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

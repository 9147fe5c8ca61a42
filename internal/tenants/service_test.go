package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store/memstore"
	"github.com/confhub/backend/pkg/apperr"
)

func TestCreate_MakesCreatorOwner(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(nil)
	svc := NewService(st, nil)
	u := &models.User{Email: "owner@example.com", Password: "x", Name: "owner"}
	require.NoError(t, st.CreateUser(ctx, u))

	tenant, err := svc.Create(ctx, u.ID, "Call for Papers", "")
	require.NoError(t, err)
	assert.Equal(t, "call-for-papers", tenant.Slug)

	m, err := st.GetMembership(ctx, tenant.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TenantRoleOwner, m.Role)

	got, err := st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.TenantMembership{{TenantID: tenant.ID, Role: models.TenantRoleOwner}}, got.Memberships)

	other, err := svc.Create(ctx, u.ID, "Reviews", "  Peer-Review ")
	require.NoError(t, err)
	assert.Equal(t, "peer-review", other.Slug)

	fetched, err := svc.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.Name, fetched.Name)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(nil)
	svc := NewService(st, nil)
	creator := uuid.New()

	_, err := svc.Create(ctx, creator, "  ", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = svc.Create(ctx, creator, "Tenant", "Bad Slug")
	assert.ErrorIs(t, err, ErrInvalidSlug)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

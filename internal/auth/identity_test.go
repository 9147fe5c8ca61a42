package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/internal/store/memstore"
	"github.com/confhub/backend/pkg/apperr"
)

func setupIdentityCache(t *testing.T) (*IdentityCache, *memstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var cache *IdentityCache
	st := memstore.New(func(ctx context.Context, ids []uuid.UUID) { cache.Invalidate(ctx, ids) })
	cache = NewIdentityCache(st, rdb, time.Minute, nil)
	return cache, st, mr
}

func TestIdentityCache_CachesUntilRolesChange(t *testing.T) {
	ctx := context.Background()
	cache, st, mr := setupIdentityCache(t)

	u := &models.User{Email: "a@example.com", Password: "x"}
	require.NoError(t, st.CreateUser(ctx, u))

	id, err := cache.Load(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, id.Organizations)
	assert.True(t, mr.Exists(identityKey(u.ID)))

	err = st.WithTx(ctx, func(q store.Queries) error {
		org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
		if err := q.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if _, err := q.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleOwner); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, u.ID)
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(identityKey(u.ID)))

	id, err = cache.Load(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, id.Organizations, 1)
	assert.Equal(t, models.OrgRoleOwner, id.Organizations[0].Role)
}

func TestIdentityCache_ServesFromRedis(t *testing.T) {
	ctx := context.Background()
	cache, st, _ := setupIdentityCache(t)

	u := &models.User{Email: "a@example.com", Password: "x"}
	require.NoError(t, st.CreateUser(ctx, u))
	first, err := cache.Load(ctx, u.ID)
	require.NoError(t, err)

	// A store without the user still answers from the cache.
	cached := NewIdentityCache(memstore.New(nil), cache.rdb, time.Minute, nil)
	second, err := cached.Load(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, first.Email, second.Email)
}

func TestIdentityCache_UnknownUser(t *testing.T) {
	cache := NewIdentityCache(memstore.New(nil), nil, time.Minute, nil)
	_, err := cache.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestIdentityCache_FallsBackWhenRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	st := memstore.New(nil)
	u := &models.User{Email: "a@example.com", Password: "x"}
	require.NoError(t, st.CreateUser(ctx, u))

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewIdentityCache(st, rdb, time.Minute, nil)

	id, err := cache.Load(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
}

// racingUsers commits a role change right after the user has been read.
type racingUsers struct {
	UserSource
	change func()
}

func (r *racingUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.UserSource.GetUserByID(ctx, id)
	if r.change != nil {
		change := r.change
		r.change = nil
		change()
	}
	return u, err
}

func TestIdentityCache_InvalidationDuringLoadWins(t *testing.T) {
	ctx := context.Background()
	cache, st, mr := setupIdentityCache(t)

	u := &models.User{Email: "a@example.com", Password: "x"}
	require.NoError(t, st.CreateUser(ctx, u))
	org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
	err := st.WithTx(ctx, func(q store.Queries) error {
		if err := q.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if _, err := q.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleOwner); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, u.ID)
	})
	require.NoError(t, err)

	users := &racingUsers{UserSource: st, change: func() {
		err := st.WithTx(ctx, func(q store.Queries) error {
			if err := q.RemoveOrganizationMember(ctx, org.ID, u.ID); err != nil {
				return err
			}
			return q.RefreshUserRoles(ctx, u.ID)
		})
		require.NoError(t, err)
	}}
	racing := NewIdentityCache(users, cache.rdb, time.Minute, nil)

	stale, err := racing.Load(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, stale.Organizations, 1)
	assert.False(t, mr.Exists(identityKey(u.ID)))

	fresh, err := racing.Load(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.Organizations)
	assert.True(t, mr.Exists(identityKey(u.ID)))
}

func TestIdentityCache_InvalidateBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := setupIdentityCache(t)
	id := uuid.New()

	cache.Invalidate(ctx, []uuid.UUID{id})
	cache.Invalidate(ctx, []uuid.UUID{id})

	gen, err := mr.Get(generationKey(id))
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
	assert.Greater(t, mr.TTL(generationKey(id)), time.Duration(0))
}

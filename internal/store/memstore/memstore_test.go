package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
)

func newUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", Name: email}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	u := newUser(t, s, "a@example.com")
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(q store.Queries) error {
		org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
		require.NoError(t, q.CreateOrganization(ctx, org))
		_, err := q.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleOwner)
		require.NoError(t, err)
		require.NoError(t, q.RefreshUserRoles(ctx, u.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetOrganizationBySlug(ctx, "acme")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Organizations)
}

func TestWithTx_PanicReleasesStore(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	u := newUser(t, s, "a@example.com")

	assert.PanicsWithValue(t, "boom", func() {
		_ = s.WithTx(ctx, func(q store.Queries) error {
			require.NoError(t, q.CreateOrganization(ctx, &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}))
			panic("boom")
		})
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.GetOrganizationBySlug(ctx, "acme")
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	case <-time.After(2 * time.Second):
		t.Fatal("store still locked after a panicking transaction")
	}
}

func TestWithTx_NotifiesAfterCommit(t *testing.T) {
	ctx := context.Background()
	var notified []uuid.UUID
	s := New(func(_ context.Context, ids []uuid.UUID) { notified = append(notified, ids...) })
	u := newUser(t, s, "a@example.com")

	err := s.WithTx(ctx, func(q store.Queries) error {
		org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
		if err := q.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if _, err := q.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleOwner); err != nil {
			return err
		}
		if err := q.RefreshUserRoles(ctx, u.ID); err != nil {
			return err
		}
		assert.Empty(t, notified)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{u.ID}, notified)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Organizations, 1)
	assert.Equal(t, models.OrgRoleOwner, got.Organizations[0].Role)
}

func TestAddOrganizationMember_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	u := newUser(t, s, "a@example.com")
	org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
	require.NoError(t, s.CreateOrganization(ctx, org))

	added, err := s.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleOwner)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = s.AddOrganizationMember(ctx, org.ID, u.ID, models.OrgRoleMember)
	require.NoError(t, err)
	assert.False(t, added)

	m, err := s.GetOrganizationMember(ctx, org.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrgRoleOwner, m.Role)
}

func TestCreateInvite_ReplacesExpired(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	u := newUser(t, s, "a@example.com")
	org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
	require.NoError(t, s.CreateOrganization(ctx, org))

	now := time.Now()
	old := &models.Invite{Token: "old", Email: "b@example.com", OrganizationID: &org.ID, InvitedBy: u.ID,
		CreatedAt: now.Add(-8 * 24 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateInvite(ctx, old))

	_, err := s.GetInviteByToken(ctx, "old", now)
	assert.ErrorIs(t, err, store.ErrInviteNotFound)

	fresh := &models.Invite{Token: "new", Email: "B@example.com", OrganizationID: &org.ID, InvitedBy: u.ID,
		CreatedAt: now, ExpiresAt: now.Add(models.InviteTTL)}
	require.NoError(t, s.CreateInvite(ctx, fresh))

	dup := &models.Invite{Token: "dup", Email: "b@example.com", OrganizationID: &org.ID, InvitedBy: u.ID,
		CreatedAt: now, ExpiresAt: now.Add(models.InviteTTL)}
	assert.ErrorIs(t, s.CreateInvite(ctx, dup), apperr.ErrConflict)

	n, err := s.DeleteExpiredInvites(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteOrganization_RemovesDependents(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	u := newUser(t, s, "a@example.com")
	org := &models.Organization{Name: "Acme", Slug: "acme", CreatedBy: u.ID}
	require.NoError(t, s.CreateOrganization(ctx, org))
	conf := &models.Conference{OrganizationID: org.ID, Name: "GopherCon", Slug: "gophercon", CreatedBy: u.ID}
	require.NoError(t, s.CreateConference(ctx, conf))
	_, err := s.AddConferenceMember(ctx, conf.ID, u.ID, models.ConfRoleOwner)
	require.NoError(t, err)

	require.NoError(t, s.DeleteOrganization(ctx, org.ID))

	_, err = s.GetConferenceByID(ctx, conf.ID)
	assert.ErrorIs(t, err, store.ErrConferenceNotFound)
	_, err = s.GetConferenceMember(ctx, conf.ID, u.ID)
	assert.ErrorIs(t, err, store.ErrMembershipNotFound)
	assert.ErrorIs(t, s.DeleteOrganization(ctx, org.ID), store.ErrOrganizationNotFound)
}

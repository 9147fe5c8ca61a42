package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/internal/store/memstore"
	"github.com/confhub/backend/pkg/apperr"
)

type fixture struct {
	st      *memstore.Store
	svc     *Service
	changed []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.st = memstore.New(func(_ context.Context, ids []uuid.UUID) { f.changed = append(f.changed, ids...) })
	f.svc = NewService(f.st, nil)
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", Name: email, EmailVerified: true}
	require.NoError(t, f.st.CreateUser(context.Background(), u))
	return u
}

func TestUpdateName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ada@example.com")

	got, err := f.svc.UpdateName(ctx, u.ID, "  Ada Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)

	_, err = f.svc.UpdateName(ctx, u.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = f.svc.UpdateName(ctx, uuid.New(), "Ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateEmail_NormalizesAndInvalidatesIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ada@example.com")

	got, err := f.svc.UpdateEmail(ctx, u.ID, "  Ada@Analytical.ENGINE ")
	require.NoError(t, err)
	assert.Equal(t, "ada@analytical.engine", got.Email)
	assert.False(t, got.EmailVerified)
	assert.Equal(t, []uuid.UUID{u.ID}, f.changed)

	byEmail, err := f.st.GetUserByEmail(ctx, "ADA@analytical.engine")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestUpdateEmail_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ada@example.com")
	f.user(t, "bob@example.com")

	_, err := f.svc.UpdateEmail(ctx, u.ID, "ADA@example.com")
	assert.ErrorIs(t, err, ErrSameEmail)

	_, err = f.svc.UpdateEmail(ctx, u.ID, "Bob@Example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateEmail(ctx, uuid.New(), "new@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.changed)
}

func TestUpdateEmail_ConstraintClashIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "ada@example.com")
	f.st.FailOn = func(op string) error {
		if op == "UpdateUserEmail" {
			return store.ErrDuplicate
		}
		return nil
	}

	_, err := f.svc.UpdateEmail(ctx, u.ID, "new@example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)

	f.st.FailOn = nil
	got, err := f.st.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
}

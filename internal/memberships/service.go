// Package memberships manages tenant memberships under the self-onboarding
// and administrator-grant rules.
//
// Create:
//   - OWNER is never granted here; it comes only from tenant creation.
//   - A caller with no membership may add only themselves, as SUBMITTER.
//   - A member may not add themselves again.
//   - Adding someone else requires OWNER or ORGANIZER.
//
// Remove: OWNER memberships are permanent. Callers may remove themselves;
// OWNER and ORGANIZER may remove anyone else.
package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
)

var (
	ErrOwnerNotGrantable  = fmt.Errorf("%w: owner role is granted only by tenant creation", apperr.ErrForbidden)
	ErrOwnerImmutable     = fmt.Errorf("%w: owner membership cannot be changed or removed", apperr.ErrForbidden)
	ErrSelfOnboardingOnly = fmt.Errorf("%w: non-members may only add themselves as %s", apperr.ErrForbidden, models.TenantRoleSubmitter)
	ErrAlreadyMember      = fmt.Errorf("%w: already a member", apperr.ErrForbidden)
	ErrInvalidRole        = fmt.Errorf("%w: unknown tenant role", apperr.ErrInvalidInput)
)

// Service implements the membership lifecycle.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a membership service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// actorRole returns the actor's role in the tenant, or "" when they have none.
func actorRole(ctx context.Context, q store.Queries, tenantID, actor uuid.UUID) (models.TenantRole, error) {
	m, err := q.GetMembership(ctx, tenantID, actor)
	if errors.Is(err, store.ErrMembershipNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func requireManager(role models.TenantRole) error {
	switch {
	case role == "":
		return authz.ErrNotAMember
	case !role.CanManageMembers():
		return authz.ErrInsufficientRole
	}
	return nil
}

// Create adds target to the tenant with role on behalf of actor.
func (s *Service) Create(ctx context.Context, actor, tenantID, target uuid.UUID, role models.TenantRole) (*models.Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.TenantRoleOwner {
		return nil, ErrOwnerNotGrantable
	}

	m := &models.Membership{TenantID: tenantID, UserID: target, Role: role}
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.GetTenantByID(ctx, tenantID); err != nil {
			return err
		}
		current, err := actorRole(ctx, q, tenantID, actor)
		if err != nil {
			return err
		}
		switch {
		case current == "":
			if target != actor || role != models.TenantRoleSubmitter {
				return ErrSelfOnboardingOnly
			}
		case target == actor:
			return ErrAlreadyMember
		default:
			if err := requireManager(current); err != nil {
				return err
			}
			if _, err := q.GetUserByID(ctx, target); err != nil {
				return err
			}
		}
		if err := q.CreateMembership(ctx, m); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("membership created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", target.String()),
		zap.String("role", string(role)),
		zap.String("actor_id", actor.String()))
	return m, nil
}

// Get returns target's membership. Callers may read their own; managers may read anyone's.
func (s *Service) Get(ctx context.Context, actor, tenantID, target uuid.UUID) (*models.Membership, error) {
	if actor != target {
		current, err := actorRole(ctx, s.store, tenantID, actor)
		if err != nil {
			return nil, err
		}
		if err := requireManager(current); err != nil {
			return nil, err
		}
	}
	return s.store.GetMembership(ctx, tenantID, target)
}

// List returns every membership of the tenant. Managers only.
func (s *Service) List(ctx context.Context, actor, tenantID uuid.UUID) ([]*models.Membership, error) {
	current, err := actorRole(ctx, s.store, tenantID, actor)
	if err != nil {
		return nil, err
	}
	if err := requireManager(current); err != nil {
		return nil, err
	}
	return s.store.ListMemberships(ctx, tenantID)
}

// Update changes target's role. Managers only; OWNER can be neither assigned nor changed.
func (s *Service) Update(ctx context.Context, actor, tenantID, target uuid.UUID, role models.TenantRole) (*models.Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == models.TenantRoleOwner {
		return nil, ErrOwnerNotGrantable
	}

	var updated *models.Membership
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		current, err := actorRole(ctx, q, tenantID, actor)
		if err != nil {
			return err
		}
		if err := requireManager(current); err != nil {
			return err
		}
		existing, err := q.GetMembership(ctx, tenantID, target)
		if err != nil {
			return err
		}
		if existing.Role == models.TenantRoleOwner {
			return ErrOwnerImmutable
		}
		if updated, err = q.UpdateMembershipRole(ctx, tenantID, target, role); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("membership updated",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", target.String()),
		zap.String("role", string(role)))
	return updated, nil
}

// Remove deletes target's membership.
func (s *Service) Remove(ctx context.Context, actor, tenantID, target uuid.UUID) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if actor != target {
			current, err := actorRole(ctx, q, tenantID, actor)
			if err != nil {
				return err
			}
			if err := requireManager(current); err != nil {
				return err
			}
		}
		existing, err := q.GetMembership(ctx, tenantID, target)
		if err != nil {
			return err
		}
		if existing.Role == models.TenantRoleOwner {
			return ErrOwnerImmutable
		}
		if err := q.DeleteMembership(ctx, tenantID, target); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, target)
	})
	if err != nil {
		return err
	}
	s.logger.Info("membership removed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", target.String()),
		zap.String("actor_id", actor.String()))
	return nil
}

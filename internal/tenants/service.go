package tenants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/utils"
)

var ErrInvalidSlug = fmt.Errorf("%w: slug must be 2-64 lowercase letters, digits or hyphens", apperr.ErrInvalidInput)

// Service creates and reads tenants.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a tenant service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// Create inserts a tenant and makes creator its OWNER in one transaction.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, name, slug string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if !utils.ValidSlug(slug) {
		return nil, ErrInvalidSlug
	}

	t := &models.Tenant{Name: name, Slug: slug, Plan: models.PlanFree, CreatedBy: creator}
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.CreateTenant(ctx, t); err != nil {
			return err
		}
		owner := &models.Membership{TenantID: t.ID, UserID: creator, Role: models.TenantRoleOwner}
		if err := q.CreateMembership(ctx, owner); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, creator)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tenant created", zap.String("tenant_id", t.ID.String()), zap.String("slug", t.Slug))
	return t, nil
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return s.store.GetTenantByID(ctx, id)
}

// Package organizations implements the organization lifecycle: creation,
// metadata updates, public join/leave and the delete cascade over conferences
// and every membership that references them.
package organizations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/storage"
	"github.com/confhub/backend/pkg/utils"
)

var (
	ErrInvalidSlug      = fmt.Errorf("%w: slug must be 2-64 chars, lowercase letters, numbers, hyphens only", apperr.ErrInvalidInput)
	ErrInvalidName      = fmt.Errorf("%w: name must be 1-255 characters", apperr.ErrInvalidInput)
	ErrInvalidPlan      = fmt.Errorf("%w: unknown plan", apperr.ErrInvalidInput)
	ErrSlugTaken        = fmt.Errorf("%w: an organization with this slug already exists", apperr.ErrConflict)
	ErrNotPublic        = fmt.Errorf("%w: organization is not open for joining", apperr.ErrForbidden)
	ErrAlreadyMember    = fmt.Errorf("%w: already a member of this organization", apperr.ErrConflict)
	ErrOwnerCannotLeave = fmt.Errorf("%w: the owner cannot leave the organization", apperr.ErrForbidden)
	// ErrLogoStorageDisabled means no logo bucket is configured.
	ErrLogoStorageDisabled = errors.New("logo storage is not configured")
)

// LogoStore issues upload URLs for organization logos and cleans them up.
type LogoStore interface {
	PresignLogoUpload(ctx context.Context, orgID uuid.UUID, contentType string) (*storage.PresignedUpload, error)
	DeleteLogos(ctx context.Context, orgID uuid.UUID) error
}

// LogoCleanup defers logo removal to a background worker.
type LogoCleanup interface {
	EnqueueLogoCleanup(ctx context.Context, orgID uuid.UUID) error
}

// CreateInput is the caller-settable part of a new organization.
type CreateInput struct {
	Name        string
	Slug        string
	Description string
	Website     string
	IsPublic    bool
}

// UpdateInput holds the fields to change; nil means unchanged.
type UpdateInput struct {
	Name        *string
	Slug        *string
	Description *string
	Website     *string
	Logo        *string
	Plan        *string
	IsPublic    *bool
}

// Service implements the organization lifecycle.
type Service struct {
	store   store.Store
	logos   LogoStore
	cleanup LogoCleanup
	logger  *zap.Logger
}

// NewService creates an organization service. logos may be nil.
func NewService(st store.Store, logos LogoStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logos: logos, logger: logger}
}

// SetLogoCleanup makes Delete enqueue logo removal instead of doing it inline.
func (s *Service) SetLogoCleanup(c LogoCleanup) {
	s.cleanup = c
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 1 || len(name) > 255 {
		return "", ErrInvalidName
	}
	return name, nil
}

func normalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !utils.ValidSlug(slug) {
		return "", ErrInvalidSlug
	}
	return slug, nil
}

func validPlan(p string) bool {
	switch p {
	case models.PlanFree, models.PlanPro, models.PlanEnterprise:
		return true
	}
	return false
}

// Create inserts an organization and makes creator its OWNER in one transaction.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, in CreateInput) (*models.Organization, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	if in.Slug == "" {
		in.Slug = utils.Slugify(name)
	}
	slug, err := normalizeSlug(in.Slug)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Website:     strings.TrimSpace(in.Website),
		Plan:        models.PlanFree,
		IsPublic:    in.IsPublic,
		CreatedBy:   creator,
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.CreateOrganization(ctx, org); err != nil {
			return err
		}
		if _, err := q.AddOrganizationMember(ctx, org.ID, creator, models.OrgRoleOwner); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, creator)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("slug", org.Slug),
		zap.String("owner_id", creator.String()))
	return org, nil
}

// Get looks an organization up by id or, failing that, by slug.
func (s *Service) Get(ctx context.Context, idOrSlug string) (*models.Organization, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.store.GetOrganizationByID(ctx, id)
	}
	return s.store.GetOrganizationBySlug(ctx, strings.ToLower(idOrSlug))
}

// ListForUser returns the organizations userID belongs to.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	list, err := s.store.ListOrganizationsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Organization{}
	}
	return list, nil
}

// Update applies in to the organization's metadata.
func (s *Service) Update(ctx context.Context, orgID uuid.UUID, in UpdateInput) (*models.Organization, error) {
	org, err := s.store.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if org.Name, err = normalizeName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Slug != nil {
		if org.Slug, err = normalizeSlug(*in.Slug); err != nil {
			return nil, err
		}
	}
	if in.Plan != nil {
		if !validPlan(*in.Plan) {
			return nil, ErrInvalidPlan
		}
		org.Plan = *in.Plan
	}
	if in.Description != nil {
		org.Description = strings.TrimSpace(*in.Description)
	}
	if in.Website != nil {
		org.Website = strings.TrimSpace(*in.Website)
	}
	if in.Logo != nil {
		org.Logo = strings.TrimSpace(*in.Logo)
	}
	if in.IsPublic != nil {
		org.IsPublic = *in.IsPublic
	}

	err = s.store.UpdateOrganization(ctx, org)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("organization updated", zap.String("organization_id", orgID.String()))
	return org, nil
}

// Delete removes the organization, its conferences and every membership that
// references either, then rebuilds the role projection of each affected user.
// Any failure aborts the whole cascade.
func (s *Service) Delete(ctx context.Context, orgID uuid.UUID) error {
	var conferences int
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.GetOrganizationByID(ctx, orgID); err != nil {
			return err
		}
		confs, err := q.ListConferences(ctx, orgID)
		if err != nil {
			return err
		}
		var affected []uuid.UUID
		for _, c := range confs {
			ids, err := q.DeleteConferenceMembers(ctx, c.ID)
			if err != nil {
				return err
			}
			affected = append(affected, ids...)
			if err := q.DeleteConference(ctx, c.ID); err != nil {
				return err
			}
		}
		ids, err := q.DeleteOrganizationMembers(ctx, orgID)
		if err != nil {
			return err
		}
		affected = append(affected, ids...)
		if err := q.DeleteOrganization(ctx, orgID); err != nil {
			return err
		}
		conferences = len(confs)
		return q.RefreshUserRoles(ctx, affected...)
	})
	if err != nil {
		return err
	}
	s.logger.Info("organization deleted",
		zap.String("organization_id", orgID.String()),
		zap.Int("conferences", conferences))

	s.removeLogos(ctx, orgID)
	return nil
}

// removeLogos is best effort; the organization is already gone.
func (s *Service) removeLogos(ctx context.Context, orgID uuid.UUID) {
	var err error
	switch {
	case s.cleanup != nil:
		err = s.cleanup.EnqueueLogoCleanup(ctx, orgID)
	case s.logos != nil:
		err = s.logos.DeleteLogos(ctx, orgID)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("failed to remove organization logos", zap.String("organization_id", orgID.String()), zap.Error(err))
	}
}

// Join adds userID to a public organization as MEMBER.
func (s *Service) Join(ctx context.Context, userID, orgID uuid.UUID) (*models.Organization, error) {
	var org *models.Organization
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		if org, err = q.GetOrganizationByID(ctx, orgID); err != nil {
			return err
		}
		if !org.IsPublic {
			return ErrNotPublic
		}
		added, err := q.AddOrganizationMember(ctx, orgID, userID, models.OrgRoleMember)
		if err != nil {
			return err
		}
		if !added {
			return ErrAlreadyMember
		}
		return q.RefreshUserRoles(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("organization joined", zap.String("organization_id", orgID.String()), zap.String("user_id", userID.String()))
	return org, nil
}

// Leave removes userID from the organization and from all of its conferences.
func (s *Service) Leave(ctx context.Context, userID, orgID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		m, err := q.GetOrganizationMember(ctx, orgID, userID)
		if err != nil {
			return err
		}
		if m.Role == models.OrgRoleOwner {
			return ErrOwnerCannotLeave
		}
		if err := q.RemoveUserConferenceMemberships(ctx, orgID, userID); err != nil {
			return err
		}
		if err := q.RemoveOrganizationMember(ctx, orgID, userID); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("organization left", zap.String("organization_id", orgID.String()), zap.String("user_id", userID.String()))
	return nil
}

// Members lists the organization's members.
func (s *Service) Members(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	list, err := s.store.ListOrganizationMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Member{}
	}
	return list, nil
}

// LogoUploadURL issues a pre-signed upload for a new logo. The client sets
// the returned public URL as the logo with Update once the upload is done.
func (s *Service) LogoUploadURL(ctx context.Context, orgID uuid.UUID, contentType string) (*storage.PresignedUpload, error) {
	if s.logos == nil {
		return nil, ErrLogoStorageDisabled
	}
	if _, err := s.store.GetOrganizationByID(ctx, orgID); err != nil {
		return nil, err
	}
	up, err := s.logos.PresignLogoUpload(ctx, orgID, contentType)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return up, err
}

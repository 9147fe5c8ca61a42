package conferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/authz"
	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/utils"
)

var (
	ErrInvalidName = fmt.Errorf("%w: name must be 1-255 characters", apperr.ErrInvalidInput)
	ErrInvalidSlug = fmt.Errorf("%w: slug must be 2-64 chars, lowercase letters, numbers, hyphens only", apperr.ErrInvalidInput)
	ErrCFPWindow   = fmt.Errorf("%w: CFP close date must not precede the open date", apperr.ErrInvalidInput)
	ErrNameTaken   = fmt.Errorf("%w: conference with this name already exists in this organization", apperr.ErrConflict)
	ErrSlugTaken   = fmt.Errorf("%w: conference with this slug already exists in this organization", apperr.ErrConflict)
	// ErrNameOrSlugTaken is reported when the unique constraint, not the pre-check, caught the clash.
	ErrNameOrSlugTaken = fmt.Errorf("%w: name or slug already used in this organization", apperr.ErrConflict)
	ErrAlreadyMember   = fmt.Errorf("%w: already a member of this conference", apperr.ErrConflict)
)

// CreateInput describes a new conference.
type CreateInput struct {
	Name         string
	Slug         string
	Description  string
	CFPOpenDate  *time.Time
	CFPCloseDate *time.Time
}

// UpdateInput holds the fields to change; nil means unchanged.
type UpdateInput struct {
	Name         *string
	Slug         *string
	Description  *string
	CFPOpenDate  *time.Time
	CFPCloseDate *time.Time
}

// Service implements the conference lifecycle.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a conference service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// joinRole is the conference role an organization member gets on joining.
func joinRole(r models.OrgRole) models.ConfRole {
	switch r {
	case models.OrgRoleOwner:
		return models.ConfRoleOwner
	case models.OrgRoleAdmin:
		return models.ConfRoleAdmin
	}
	return models.ConfRoleSpeaker
}

func checkCFP(opens, closes *time.Time) error {
	if opens != nil && closes != nil && closes.Before(*opens) {
		return ErrCFPWindow
	}
	return nil
}

// conferenceIn loads confID and checks it belongs to orgID.
func conferenceIn(ctx context.Context, q store.Queries, orgID, confID uuid.UUID) (*models.Conference, error) {
	c, err := q.GetConferenceByID(ctx, confID)
	if err != nil {
		return nil, err
	}
	if c.OrganizationID != orgID {
		return nil, store.ErrConferenceNotFound
	}
	return c, nil
}

// Create adds a conference to orgID. The creator becomes OWNER if they own the
// organization, ADMIN otherwise; every organization OWNER and ADMIN gets the
// matching conference role.
func (s *Service) Create(ctx context.Context, creator, orgID uuid.UUID, in CreateInput) (*models.Conference, error) {
	name := strings.TrimSpace(in.Name)
	if len(name) < 1 || len(name) > 255 {
		return nil, ErrInvalidName
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = utils.Slugify(name)
	}
	if !utils.ValidSlug(slug) {
		return nil, ErrInvalidSlug
	}
	if err := checkCFP(in.CFPOpenDate, in.CFPCloseDate); err != nil {
		return nil, err
	}

	conf := &models.Conference{
		OrganizationID: orgID,
		Name:           name,
		Slug:           slug,
		Description:    strings.TrimSpace(in.Description),
		CFPOpenDate:    in.CFPOpenDate,
		CFPCloseDate:   in.CFPCloseDate,
		CreatedBy:      creator,
	}
	var granted int
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.GetOrganizationByID(ctx, orgID); err != nil {
			return err
		}
		member, err := q.GetOrganizationMember(ctx, orgID, creator)
		if errors.Is(err, store.ErrMembershipNotFound) {
			return authz.ErrNotAMember
		}
		if err != nil {
			return err
		}
		if err := ensureUnique(ctx, q, orgID, name, slug); err != nil {
			return err
		}

		if err := q.CreateConference(ctx, conf); err != nil {
			return err
		}
		if err := q.AddOrganizationConference(ctx, orgID, conf.ID); err != nil {
			return err
		}

		creatorRole := models.ConfRoleAdmin
		if member.Role == models.OrgRoleOwner {
			creatorRole = models.ConfRoleOwner
		}
		if _, err := q.AddConferenceMember(ctx, conf.ID, creator, creatorRole); err != nil {
			return err
		}
		affected := []uuid.UUID{creator}
		for _, fan := range []struct {
			org  models.OrgRole
			conf models.ConfRole
		}{
			{models.OrgRoleOwner, models.ConfRoleOwner},
			{models.OrgRoleAdmin, models.ConfRoleAdmin},
		} {
			ids, err := q.ListOrganizationMemberIDs(ctx, orgID, fan.org)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if _, err := q.AddConferenceMember(ctx, conf.ID, id, fan.conf); err != nil {
					return err
				}
			}
			affected = append(affected, ids...)
		}
		granted = len(affected)
		return q.RefreshUserRoles(ctx, affected...)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrNameOrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("conference created",
		zap.String("conference_id", conf.ID.String()),
		zap.String("organization_id", orgID.String()),
		zap.Int("grants", granted))
	return conf, nil
}

func ensureUnique(ctx context.Context, q store.Queries, orgID uuid.UUID, name, slug string) error {
	existing, err := q.FindConference(ctx, orgID, name, slug)
	if err != nil {
		return err
	}
	switch {
	case existing == nil:
		return nil
	case existing.Name == name:
		return ErrNameTaken
	default:
		return ErrSlugTaken
	}
}

// Get returns a conference of orgID.
func (s *Service) Get(ctx context.Context, orgID, confID uuid.UUID) (*models.Conference, error) {
	return conferenceIn(ctx, s.store, orgID, confID)
}

// List returns the conferences of orgID.
func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*models.Conference, error) {
	list, err := s.store.ListConferences(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Conference{}
	}
	return list, nil
}

// Update changes a conference's name, slug, description or CFP window.
func (s *Service) Update(ctx context.Context, orgID, confID uuid.UUID, in UpdateInput) (*models.Conference, error) {
	var conf *models.Conference
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		if conf, err = conferenceIn(ctx, q, orgID, confID); err != nil {
			return err
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if len(name) < 1 || len(name) > 255 {
				return ErrInvalidName
			}
			conf.Name = name
		}
		if in.Slug != nil {
			slug := strings.ToLower(strings.TrimSpace(*in.Slug))
			if !utils.ValidSlug(slug) {
				return ErrInvalidSlug
			}
			conf.Slug = slug
		}
		if in.Description != nil {
			conf.Description = strings.TrimSpace(*in.Description)
		}
		if in.CFPOpenDate != nil {
			conf.CFPOpenDate = in.CFPOpenDate
		}
		if in.CFPCloseDate != nil {
			conf.CFPCloseDate = in.CFPCloseDate
		}
		if err := checkCFP(conf.CFPOpenDate, conf.CFPCloseDate); err != nil {
			return err
		}
		return q.UpdateConference(ctx, conf)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrNameOrSlugTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("conference updated", zap.String("conference_id", confID.String()))
	return conf, nil
}

// Delete removes a conference, pulls it from its organization and drops every
// membership in it. Any failure aborts the whole cascade.
func (s *Service) Delete(ctx context.Context, orgID, confID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := conferenceIn(ctx, q, orgID, confID); err != nil {
			return err
		}
		ids, err := q.DeleteConferenceMembers(ctx, confID)
		if err != nil {
			return err
		}
		if err := q.DeleteConference(ctx, confID); err != nil {
			return err
		}
		if err := q.RemoveOrganizationConference(ctx, orgID, confID); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, ids...)
	})
	if err != nil {
		return err
	}
	s.logger.Info("conference deleted", zap.String("conference_id", confID.String()))
	return nil
}

// Join adds an organization member to one of its conferences with the role
// their organization role implies.
func (s *Service) Join(ctx context.Context, userID, orgID, confID uuid.UUID) (models.ConfRole, error) {
	var role models.ConfRole
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := conferenceIn(ctx, q, orgID, confID); err != nil {
			return err
		}
		member, err := q.GetOrganizationMember(ctx, orgID, userID)
		if errors.Is(err, store.ErrMembershipNotFound) {
			return authz.ErrNotAMember
		}
		if err != nil {
			return err
		}
		role = joinRole(member.Role)
		added, err := q.AddConferenceMember(ctx, confID, userID, role)
		if err != nil {
			return err
		}
		if !added {
			return ErrAlreadyMember
		}
		return q.RefreshUserRoles(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("conference joined",
		zap.String("conference_id", confID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)))
	return role, nil
}

// Leave removes userID's conference membership.
func (s *Service) Leave(ctx context.Context, userID, orgID, confID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := conferenceIn(ctx, q, orgID, confID); err != nil {
			return err
		}
		if err := q.RemoveConferenceMember(ctx, confID, userID); err != nil {
			return err
		}
		return q.RefreshUserRoles(ctx, userID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("conference left", zap.String("conference_id", confID.String()), zap.String("user_id", userID.String()))
	return nil
}

// Members lists a conference's members.
func (s *Service) Members(ctx context.Context, orgID, confID uuid.UUID) ([]models.Member, error) {
	if _, err := conferenceIn(ctx, s.store, orgID, confID); err != nil {
		return nil, err
	}
	list, err := s.store.ListConferenceMembers(ctx, confID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Member{}
	}
	return list, nil
}

// Package invites issues single-use tokens that pre-authorize a membership
// and redeems them.
package invites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/utils"
)

var (
	ErrSelfInvite       = fmt.Errorf("%w: you cannot invite yourself", apperr.ErrInvalidInput)
	ErrConfRoleRequired = fmt.Errorf("%w: conference role is required", apperr.ErrInvalidInput)
	ErrInvalidRole      = fmt.Errorf("%w: role cannot be granted by invite", apperr.ErrInvalidInput)
	ErrInviteExists     = fmt.Errorf("%w: invite already exists for this user", apperr.ErrConflict)
	ErrAlreadyInOrg     = fmt.Errorf("%w: user already in organization", apperr.ErrConflict)
	ErrAlreadyInConf    = fmt.Errorf("%w: user already in conference", apperr.ErrConflict)
)

// CreateInput is what an inviter supplies.
type CreateInput struct {
	Email    string
	OrgRole  *models.OrgRole
	ConfRole *models.ConfRole
}

// AcceptResult reports the outcome of redeeming a token. GeneratedPassword is
// set only when the invite provisioned a new account; it is not stored anywhere in the clear.
type AcceptResult struct {
	UserID            uuid.UUID  `json:"user_id"`
	Email             string     `json:"email"`
	OrganizationID    *uuid.UUID `json:"organization_id,omitempty"`
	ConferenceID      *uuid.UUID `json:"conference_id,omitempty"`
	GeneratedPassword string     `json:"generated_password,omitempty"`
}

// Service implements the invite workflow.
type Service struct {
	store  store.Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates an invite service. A non-positive ttl uses models.InviteTTL.
func NewService(st store.Store, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = models.InviteTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, ttl: ttl, now: time.Now, logger: logger}
}

func validInviteOrgRole(r *models.OrgRole) bool {
	return r == nil || (r.Valid() && *r != models.OrgRoleOwner)
}

func validInviteConfRole(r *models.ConfRole) bool {
	return r == nil || (r.Valid() && *r != models.ConfRoleOwner)
}

// derivedConfRole maps an organization role onto the conference role it implies, if any.
func derivedConfRole(r models.OrgRole) (models.ConfRole, bool) {
	switch r {
	case models.OrgRoleOwner:
		return models.ConfRoleOwner, true
	case models.OrgRoleAdmin:
		return models.ConfRoleAdmin, true
	}
	return "", false
}

// Create issues an invite for in.Email into orgID and, optionally, one of its conferences.
func (s *Service) Create(ctx context.Context, inviter, orgID uuid.UUID, confID *uuid.UUID, in CreateInput) (*models.Invite, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperr.ErrInvalidInput)
	}
	if !validInviteOrgRole(in.OrgRole) || !validInviteConfRole(in.ConfRole) {
		return nil, ErrInvalidRole
	}
	token, err := utils.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	inv := &models.Invite{
		Token:          token,
		Email:          email,
		OrganizationID: &orgID,
		ConferenceID:   confID,
		InvitedBy:      inviter,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		from, err := q.GetUserByID(ctx, inviter)
		if err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(from.Email), email) {
			return ErrSelfInvite
		}
		if _, err := q.GetOrganizationByID(ctx, orgID); err != nil {
			return err
		}
		if confID != nil {
			conf, err := q.GetConferenceByID(ctx, *confID)
			if err != nil {
				return err
			}
			if conf.OrganizationID != orgID {
				return store.ErrConferenceNotFound
			}
		}

		existing, err := q.FindOutstandingInvite(ctx, email, &orgID, confID, now)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrInviteExists
		}

		orgRole, confRole, err := resolveRoles(ctx, q, email, orgID, confID, in)
		if err != nil {
			return err
		}
		inv.OrgRole, inv.ConfRole = orgRole, confRole
		return q.CreateInvite(ctx, inv)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrInviteExists
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("invite created",
		zap.String("invite_id", inv.ID.String()),
		zap.String("organization_id", orgID.String()),
		zap.Bool("conference", confID != nil),
		zap.String("invited_by", inviter.String()))
	return inv, nil
}

// resolveRoles decides the roles an invite carries, given whether the invitee
// already has an account and memberships.
func resolveRoles(ctx context.Context, q store.Queries, email string, orgID uuid.UUID, confID *uuid.UUID, in CreateInput) (*models.OrgRole, *models.ConfRole, error) {
	orgRole := models.OrgRoleMember
	if in.OrgRole != nil {
		orgRole = *in.OrgRole
	}

	user, err := q.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		if confID != nil && in.ConfRole == nil {
			return nil, nil, ErrConfRoleRequired
		}
		return &orgRole, in.ConfRole, nil
	}
	if err != nil {
		return nil, nil, err
	}

	member, err := q.GetOrganizationMember(ctx, orgID, user.ID)
	switch {
	case errors.Is(err, store.ErrMembershipNotFound):
		member = nil
	case err != nil:
		return nil, nil, err
	}

	if confID == nil {
		if member != nil {
			return nil, nil, ErrAlreadyInOrg
		}
		return &orgRole, nil, nil
	}

	if _, err := q.GetConferenceMember(ctx, *confID, user.ID); err == nil {
		return nil, nil, ErrAlreadyInConf
	} else if !errors.Is(err, store.ErrMembershipNotFound) {
		return nil, nil, err
	}

	// An existing org member keeps their org role.
	if member != nil {
		orgRole = member.Role
	}
	confRole := in.ConfRole
	if confRole == nil {
		if member == nil {
			return nil, nil, ErrConfRoleRequired
		}
		derived, ok := derivedConfRole(member.Role)
		if !ok {
			return nil, nil, ErrConfRoleRequired
		}
		confRole = &derived
	}
	return &orgRole, confRole, nil
}

// Accept redeems token. The grant is idempotent and the token is consumed in
// the same transaction, so a token can produce at most one membership.
func (s *Service) Accept(ctx context.Context, token string) (*AcceptResult, error) {
	now := s.now().UTC()
	var res *AcceptResult
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		inv, err := q.GetInviteByToken(ctx, token, now)
		if err != nil {
			return err
		}
		res = &AcceptResult{Email: inv.Email, OrganizationID: inv.OrganizationID, ConferenceID: inv.ConferenceID}

		user, err := q.GetUserByEmail(ctx, inv.Email)
		if errors.Is(err, store.ErrUserNotFound) {
			user, res.GeneratedPassword, err = provisionUser(ctx, q, inv.Email)
		}
		if err != nil {
			return err
		}
		res.UserID = user.ID

		if inv.OrganizationID != nil {
			role := models.OrgRoleMember
			if inv.OrgRole != nil {
				role = *inv.OrgRole
			}
			if _, err := q.AddOrganizationMember(ctx, *inv.OrganizationID, user.ID, role); err != nil {
				return err
			}
		}
		if inv.ConferenceID != nil {
			role := models.ConfRoleSpeaker
			if inv.ConfRole != nil {
				role = *inv.ConfRole
			}
			if _, err := q.AddConferenceMember(ctx, *inv.ConferenceID, user.ID, role); err != nil {
				return err
			}
		}

		consumed, err := q.DeleteInvite(ctx, token)
		if err != nil {
			return err
		}
		if !consumed {
			return store.ErrInviteNotFound
		}
		return q.RefreshUserRoles(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invite accepted",
		zap.String("user_id", res.UserID.String()),
		zap.Bool("provisioned", res.GeneratedPassword != ""))
	return res, nil
}

// provisionUser creates a verified account for an invitee and returns its one-time password.
func provisionUser(ctx context.Context, q store.Queries, email string) (*models.User, string, error) {
	password, err := utils.GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	name, _, _ := strings.Cut(email, "@")
	u := &models.User{Email: email, Password: hash, Name: name, EmailVerified: true}
	if err := q.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}
	return u, password, nil
}

// Revoke deletes an outstanding invite of orgID. Unknown, expired and foreign
// tokens are all not-found.
func (s *Service) Revoke(ctx context.Context, orgID uuid.UUID, token string) error {
	now := s.now().UTC()
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		inv, err := q.GetInviteByToken(ctx, token, now)
		if err != nil {
			return err
		}
		if inv.OrganizationID == nil || *inv.OrganizationID != orgID {
			return store.ErrInviteNotFound
		}
		deleted, err := q.DeleteInvite(ctx, token)
		if err != nil {
			return err
		}
		if !deleted {
			return store.ErrInviteNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("invite revoked", zap.String("organization_id", orgID.String()))
	return nil
}

// List returns outstanding invites of orgID without their tokens.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, confID *uuid.UUID) ([]*models.Invite, error) {
	list, err := s.store.ListInvites(ctx, orgID, confID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	for _, inv := range list {
		inv.Token = ""
	}
	if list == nil {
		list = []*models.Invite{}
	}
	return list, nil
}

// PurgeExpired deletes every invite past its expiry and returns how many went.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredInvites(ctx, s.now().UTC())
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confhub/backend/internal/models"
	"github.com/confhub/backend/internal/store"
	"github.com/confhub/backend/pkg/apperr"
)

var (
	ErrInvalidName = fmt.Errorf("%w: name must be 1-255 characters", apperr.ErrInvalidInput)
	ErrSameEmail   = fmt.Errorf("%w: new email is the same as the current email", apperr.ErrInvalidInput)
	ErrEmailTaken  = fmt.Errorf("%w: email already registered", apperr.ErrConflict)
)

// Service manages the caller's own profile.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a user service.
func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

// Get returns the user's profile.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// UpdateName changes the display name.
func (s *Service) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 255 {
		return nil, ErrInvalidName
	}
	return s.store.UpdateUserName(ctx, id, name)
}

// UpdateEmail moves the account to a new address. The address is stored
// lower-cased and unverified; invites addressed to it become redeemable by this user.
func (s *Service) UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", apperr.ErrInvalidInput)
	}

	var updated *models.User
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		u, err := q.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		if u.Email == email {
			return ErrSameEmail
		}
		if _, err := q.GetUserByEmail(ctx, email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		updated, err = q.UpdateUserEmail(ctx, id, email)
		return err
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("user email changed", zap.String("user_id", id.String()))
	return updated, nil
}

package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/confhub/backend/pkg/apperr"
	"github.com/confhub/backend/pkg/database"
)

// Entity-specific not-found errors; each wraps apperr.ErrNotFound.
var (
	ErrUserNotFound         = fmt.Errorf("%w: user", apperr.ErrNotFound)
	ErrOrganizationNotFound = fmt.Errorf("%w: organization", apperr.ErrNotFound)
	ErrConferenceNotFound   = fmt.Errorf("%w: conference", apperr.ErrNotFound)
	ErrTenantNotFound       = fmt.Errorf("%w: tenant", apperr.ErrNotFound)
	ErrMembershipNotFound   = fmt.Errorf("%w: membership", apperr.ErrNotFound)
	ErrInviteNotFound       = fmt.Errorf("%w: invite not found or expired", apperr.ErrNotFound)
	ErrDuplicate            = fmt.Errorf("%w: already exists", apperr.ErrConflict)
)

// mapErr converts driver errors into the shared categories.
func mapErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	default:
		return err
	}
}

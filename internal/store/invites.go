package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/confhub/backend/internal/models"
)

const inviteColumns = `id, token, email, organization_id, conference_id, org_role, conf_role, invited_by, created_at, expires_at`

func scanInvite(row interface{ Scan(dest ...any) error }) (*models.Invite, error) {
	var inv models.Invite
	err := row.Scan(&inv.ID, &inv.Token, &inv.Email, &inv.OrganizationID, &inv.ConferenceID,
		&inv.OrgRole, &inv.ConfRole, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// CreateInvite inserts an invite, replacing an expired one for the same tuple.
// A live duplicate (email, org, conf) is a conflict.
func (q *queries) CreateInvite(ctx context.Context, inv *models.Invite) error {
	const purge = `DELETE FROM invites
		WHERE LOWER(email) = LOWER($1)
		AND organization_id IS NOT DISTINCT FROM $2
		AND conference_id IS NOT DISTINCT FROM $3
		AND expires_at <= $4`
	if _, err := q.db.Exec(ctx, purge, inv.Email, inv.OrganizationID, inv.ConferenceID, inv.CreatedAt); err != nil {
		return err
	}
	const sql = `INSERT INTO invites (token, email, organization_id, conference_id, org_role, conf_role, invited_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := q.db.QueryRow(ctx, sql, inv.Token, inv.Email, inv.OrganizationID, inv.ConferenceID,
		inv.OrgRole, inv.ConfRole, inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt).Scan(&inv.ID)
	return mapErr(err, ErrInviteNotFound)
}

// GetInviteByToken returns an unexpired invite by exact token.
func (q *queries) GetInviteByToken(ctx context.Context, token string, now time.Time) (*models.Invite, error) {
	inv, err := scanInvite(q.db.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE token = $1 AND expires_at > $2`, token, now))
	return inv, mapErr(err, ErrInviteNotFound)
}

// FindOutstandingInvite returns the unexpired invite for the tuple, or nil.
func (q *queries) FindOutstandingInvite(ctx context.Context, email string, orgID, confID *uuid.UUID, now time.Time) (*models.Invite, error) {
	const sql = `SELECT ` + inviteColumns + ` FROM invites
		WHERE LOWER(email) = LOWER($1)
		AND organization_id IS NOT DISTINCT FROM $2
		AND conference_id IS NOT DISTINCT FROM $3
		AND expires_at > $4`
	inv, err := scanInvite(q.db.QueryRow(ctx, sql, email, orgID, confID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// ListInvites returns outstanding invites of an organization, optionally narrowed to a conference.
func (q *queries) ListInvites(ctx context.Context, orgID uuid.UUID, confID *uuid.UUID, now time.Time) ([]*models.Invite, error) {
	const sql = `SELECT ` + inviteColumns + ` FROM invites
		WHERE organization_id = $1 AND ($2::uuid IS NULL OR conference_id = $2) AND expires_at > $3
		ORDER BY created_at DESC`
	rows, err := q.db.Query(ctx, sql, orgID, confID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// DeleteInvite consumes the token.
func (q *queries) DeleteInvite(ctx context.Context, token string) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM invites WHERE token = $1`, token)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpiredInvites purges invites past their expiry.
func (q *queries) DeleteExpiredInvites(ctx context.Context, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM invites WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

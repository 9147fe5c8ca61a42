package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/confhub/backend/internal/models"
)

const confColumns = `id, organization_id, name, slug, description, cfp_open_date, cfp_close_date, created_by, created_at, updated_at`

func scanConference(row interface{ Scan(dest ...any) error }) (*models.Conference, error) {
	var c models.Conference
	err := row.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Slug, &c.Description,
		&c.CFPOpenDate, &c.CFPCloseDate, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConference inserts a conference.
func (q *queries) CreateConference(ctx context.Context, c *models.Conference) error {
	const sql = `INSERT INTO conferences (organization_id, name, slug, description, cfp_open_date, cfp_close_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := q.db.QueryRow(ctx, sql, c.OrganizationID, c.Name, c.Slug, c.Description, c.CFPOpenDate, c.CFPCloseDate, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err, ErrConferenceNotFound)
}

// GetConferenceByID returns a conference by ID.
func (q *queries) GetConferenceByID(ctx context.Context, id uuid.UUID) (*models.Conference, error) {
	c, err := scanConference(q.db.QueryRow(ctx, `SELECT `+confColumns+` FROM conferences WHERE id = $1`, id))
	return c, mapErr(err, ErrConferenceNotFound)
}

// FindConference returns the conference in orgID named name or using slug, or nil.
func (q *queries) FindConference(ctx context.Context, orgID uuid.UUID, name, slug string) (*models.Conference, error) {
	const sql = `SELECT ` + confColumns + ` FROM conferences
		WHERE organization_id = $1 AND (name = $2 OR slug = $3)
		LIMIT 1`
	c, err := scanConference(q.db.QueryRow(ctx, sql, orgID, name, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ListConferences returns the conferences of an organization.
func (q *queries) ListConferences(ctx context.Context, orgID uuid.UUID) ([]*models.Conference, error) {
	rows, err := q.db.Query(ctx, `SELECT `+confColumns+` FROM conferences WHERE organization_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Conference
	for rows.Next() {
		c, err := scanConference(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// UpdateConference writes name, slug, description and CFP dates.
func (q *queries) UpdateConference(ctx context.Context, c *models.Conference) error {
	const sql = `UPDATE conferences SET name = $1, slug = $2, description = $3, cfp_open_date = $4, cfp_close_date = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`
	err := q.db.QueryRow(ctx, sql, c.Name, c.Slug, c.Description, c.CFPOpenDate, c.CFPCloseDate, c.ID).Scan(&c.UpdatedAt)
	return mapErr(err, ErrConferenceNotFound)
}

// DeleteConference removes the conference row.
func (q *queries) DeleteConference(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM conferences WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConferenceNotFound
	}
	return nil
}

// AddConferenceMember inserts (conf, user, role) unless the pair already exists.
func (q *queries) AddConferenceMember(ctx context.Context, confID, userID uuid.UUID, role models.ConfRole) (bool, error) {
	const sql = `INSERT INTO conference_members (conference_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (conference_id, user_id) DO NOTHING`
	tag, err := q.db.Exec(ctx, sql, confID, userID, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetConferenceMember returns the canonical conference membership of userID.
func (q *queries) GetConferenceMember(ctx context.Context, confID, userID uuid.UUID) (*models.ConferenceMember, error) {
	const sql = `SELECT conference_id, user_id, role, created_at FROM conference_members
		WHERE conference_id = $1 AND user_id = $2`
	var m models.ConferenceMember
	err := q.db.QueryRow(ctx, sql, confID, userID).Scan(&m.ConferenceID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(err, ErrMembershipNotFound)
	}
	return &m, nil
}

// ListConferenceMembers returns members of a conference with user details.
func (q *queries) ListConferenceMembers(ctx context.Context, confID uuid.UUID) ([]models.Member, error) {
	const sql = `SELECT m.user_id, u.email, u.name, m.role, m.created_at
		FROM conference_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.conference_id = $1
		ORDER BY m.created_at ASC`
	return q.listMembers(ctx, sql, confID)
}

// RemoveConferenceMember deletes the conference membership of userID.
func (q *queries) RemoveConferenceMember(ctx context.Context, confID, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM conference_members WHERE conference_id = $1 AND user_id = $2`, confID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// RemoveUserConferenceMemberships drops userID from every conference of the organization.
func (q *queries) RemoveUserConferenceMemberships(ctx context.Context, orgID, userID uuid.UUID) error {
	const sql = `DELETE FROM conference_members m
		USING conferences c
		WHERE c.id = m.conference_id AND c.organization_id = $1 AND m.user_id = $2`
	_, err := q.db.Exec(ctx, sql, orgID, userID)
	return err
}

// DeleteConferenceMembers removes every member row of the conference.
func (q *queries) DeleteConferenceMembers(ctx context.Context, confID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `DELETE FROM conference_members WHERE conference_id = $1 RETURNING user_id`, confID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

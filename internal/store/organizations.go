package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/confhub/backend/internal/models"
)

const orgColumns = `id, name, slug, description, website, logo, plan, is_public, conference_ids, created_by, created_at, updated_at`

func scanOrganization(row interface{ Scan(dest ...any) error }) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.Description, &o.Website, &o.Logo, &o.Plan,
		&o.IsPublic, &o.ConferenceIDs, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrganization creates an organization.
func (q *queries) CreateOrganization(ctx context.Context, o *models.Organization) error {
	const sql = `INSERT INTO organizations (name, slug, description, website, logo, plan, is_public, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, conference_ids, created_at, updated_at`
	err := q.db.QueryRow(ctx, sql, o.Name, o.Slug, o.Description, o.Website, o.Logo, o.Plan, o.IsPublic, o.CreatedBy).
		Scan(&o.ID, &o.ConferenceIDs, &o.CreatedAt, &o.UpdatedAt)
	return mapErr(err, ErrOrganizationNotFound)
}

// GetOrganizationByID returns an organization by ID.
func (q *queries) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	o, err := scanOrganization(q.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id))
	return o, mapErr(err, ErrOrganizationNotFound)
}

// GetOrganizationBySlug returns an organization by slug.
func (q *queries) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	o, err := scanOrganization(q.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE slug = $1`, slug))
	return o, mapErr(err, ErrOrganizationNotFound)
}

// UpdateOrganization writes the owner-settable metadata.
func (q *queries) UpdateOrganization(ctx context.Context, o *models.Organization) error {
	const sql = `UPDATE organizations SET name = $1, slug = $2, description = $3, website = $4, logo = $5,
		plan = $6, is_public = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`
	err := q.db.QueryRow(ctx, sql, o.Name, o.Slug, o.Description, o.Website, o.Logo, o.Plan, o.IsPublic, o.ID).
		Scan(&o.UpdatedAt)
	return mapErr(err, ErrOrganizationNotFound)
}

// DeleteOrganization removes the organization row.
func (q *queries) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}

// ListOrganizationsForUser returns organizations the user is a member of.
func (q *queries) ListOrganizationsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Organization, error) {
	const sql = `SELECT o.id, o.name, o.slug, o.description, o.website, o.logo, o.plan, o.is_public,
		o.conference_ids, o.created_by, o.created_at, o.updated_at
		FROM organizations o
		INNER JOIN organization_members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name`
	rows, err := q.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// AddOrganizationConference appends confID to the organization's conference list once.
func (q *queries) AddOrganizationConference(ctx context.Context, orgID, confID uuid.UUID) error {
	const sql = `UPDATE organizations SET conference_ids = array_append(conference_ids, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(conference_ids))`
	_, err := q.db.Exec(ctx, sql, orgID, confID)
	return err
}

// RemoveOrganizationConference pulls confID from the organization's conference list.
func (q *queries) RemoveOrganizationConference(ctx context.Context, orgID, confID uuid.UUID) error {
	const sql = `UPDATE organizations SET conference_ids = array_remove(conference_ids, $2), updated_at = NOW()
		WHERE id = $1`
	_, err := q.db.Exec(ctx, sql, orgID, confID)
	return err
}

// AddOrganizationMember inserts (org, user, role) unless the pair already exists.
func (q *queries) AddOrganizationMember(ctx context.Context, orgID, userID uuid.UUID, role models.OrgRole) (bool, error) {
	const sql = `INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, user_id) DO NOTHING`
	tag, err := q.db.Exec(ctx, sql, orgID, userID, string(role))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// GetOrganizationMember returns the canonical org membership of userID.
func (q *queries) GetOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) (*models.OrganizationMember, error) {
	const sql = `SELECT organization_id, user_id, role, created_at FROM organization_members
		WHERE organization_id = $1 AND user_id = $2`
	var m models.OrganizationMember
	err := q.db.QueryRow(ctx, sql, orgID, userID).Scan(&m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, mapErr(err, ErrMembershipNotFound)
	}
	return &m, nil
}

// ListOrganizationMembers returns members of an organization with user details.
func (q *queries) ListOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	const sql = `SELECT m.user_id, u.email, u.name, m.role, m.created_at
		FROM organization_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at ASC`
	return q.listMembers(ctx, sql, orgID)
}

func (q *queries) listMembers(ctx context.Context, sql string, scopeID uuid.UUID) ([]models.Member, error) {
	rows, err := q.db.Query(ctx, sql, scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// ListOrganizationMemberIDs returns ids of users holding role in the organization.
func (q *queries) ListOrganizationMemberIDs(ctx context.Context, orgID uuid.UUID, role models.OrgRole) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT user_id FROM organization_members WHERE organization_id = $1 AND role = $2 ORDER BY created_at`, orgID, string(role))
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

// RemoveOrganizationMember deletes the org membership of userID.
func (q *queries) RemoveOrganizationMember(ctx context.Context, orgID, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM organization_members WHERE organization_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// DeleteOrganizationMembers removes every member row of the organization.
func (q *queries) DeleteOrganizationMembers(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `DELETE FROM organization_members WHERE organization_id = $1 RETURNING user_id`, orgID)
	if err != nil {
		return nil, err
	}
	return collectIDs(rows)
}

func collectIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

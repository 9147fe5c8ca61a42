package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/confhub/backend/internal/models"
)

// CreateTenant inserts a tenant.
func (q *queries) CreateTenant(ctx context.Context, t *models.Tenant) error {
	const sql = `INSERT INTO tenants (name, slug, plan, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := q.db.QueryRow(ctx, sql, t.Name, t.Slug, t.Plan, t.CreatedBy).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err, ErrTenantNotFound)
}

// GetTenantByID returns a tenant by ID.
func (q *queries) GetTenantByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	const sql = `SELECT id, name, slug, plan, created_by, created_at, updated_at FROM tenants WHERE id = $1`
	var t models.Tenant
	err := q.db.QueryRow(ctx, sql, id).Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, ErrTenantNotFound)
	}
	return &t, nil
}

// CreateMembership inserts the canonical (tenant, user, role) record.
func (q *queries) CreateMembership(ctx context.Context, m *models.Membership) error {
	const sql = `INSERT INTO tenant_members (tenant_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, sql, m.TenantID, m.UserID, string(m.Role)).Scan(&m.CreatedAt, &m.UpdatedAt)
	return mapErr(err, ErrMembershipNotFound)
}

// GetMembership returns the membership of userID in the tenant.
func (q *queries) GetMembership(ctx context.Context, tenantID, userID uuid.UUID) (*models.Membership, error) {
	const sql = `SELECT tenant_id, user_id, role, created_at, updated_at FROM tenant_members
		WHERE tenant_id = $1 AND user_id = $2`
	var m models.Membership
	err := q.db.QueryRow(ctx, sql, tenantID, userID).Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, ErrMembershipNotFound)
	}
	return &m, nil
}

// ListMemberships returns all memberships of the tenant.
func (q *queries) ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]*models.Membership, error) {
	rows, err := q.db.Query(ctx, `SELECT tenant_id, user_id, role, created_at, updated_at FROM tenant_members
		WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

// UpdateMembershipRole sets the role of an existing membership.
func (q *queries) UpdateMembershipRole(ctx context.Context, tenantID, userID uuid.UUID, role models.TenantRole) (*models.Membership, error) {
	const sql = `UPDATE tenant_members SET role = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2
		RETURNING tenant_id, user_id, role, created_at, updated_at`
	var m models.Membership
	err := q.db.QueryRow(ctx, sql, tenantID, userID, string(role)).Scan(&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapErr(err, ErrMembershipNotFound)
	}
	return &m, nil
}

// DeleteMembership removes the membership of userID in the tenant.
func (q *queries) DeleteMembership(ctx context.Context, tenantID, userID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tenant_members WHERE tenant_id = $1 AND user_id = $2`, tenantID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

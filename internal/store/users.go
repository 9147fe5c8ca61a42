package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/confhub/backend/internal/models"
)

const userColumns = `id, email, password_hash, name, email_verified, organizations, conferences, memberships, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.EmailVerified,
		&u.Organizations, &u.Conferences, &u.Memberships, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a user with an empty role projection.
func (q *queries) CreateUser(ctx context.Context, u *models.User) error {
	const sql = `INSERT INTO users (email, password_hash, name, email_verified)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := q.db.QueryRow(ctx, sql, u.Email, u.Password, u.Name, u.EmailVerified).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapErr(err, ErrUserNotFound)
	}
	u.Organizations = []models.OrgMembership{}
	u.Conferences = []models.ConfMembership{}
	u.Memberships = []models.TenantMembership{}
	return nil
}

// GetUserByID returns a user by ID.
func (q *queries) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, mapErr(err, ErrUserNotFound)
}

// GetUserByEmail returns a user by email, case-insensitively.
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
	return u, mapErr(err, ErrUserNotFound)
}

// UpdateUserName sets the display name.
func (q *queries) UpdateUserName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	const sql = `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(q.db.QueryRow(ctx, sql, id, name))
	return u, mapErr(err, ErrUserNotFound)
}

// UpdateUserEmail replaces the email, which invalidates the cached identity.
func (q *queries) UpdateUserEmail(ctx context.Context, id uuid.UUID, email string) (*models.User, error) {
	const sql = `UPDATE users SET email = $2, email_verified = FALSE, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(q.db.QueryRow(ctx, sql, id, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return nil, mapErr(err, ErrUserNotFound)
	}
	q.touched(ctx, []uuid.UUID{id})
	return u, nil
}

// refreshRolesSQL rebuilds the role projection; its object keys follow the
// json tags of models.OrgMembership, ConfMembership and TenantMembership.
const refreshRolesSQL = `UPDATE users u SET
	organizations = COALESCE((
		SELECT jsonb_agg(jsonb_build_object('organization_id', m.organization_id, 'role', m.role) ORDER BY m.created_at)
		FROM organization_members m WHERE m.user_id = u.id), '[]'::jsonb),
	conferences = COALESCE((
		SELECT jsonb_agg(jsonb_build_object('conference_id', m.conference_id, 'role', m.role) ORDER BY m.created_at)
		FROM conference_members m WHERE m.user_id = u.id), '[]'::jsonb),
	memberships = COALESCE((
		SELECT jsonb_agg(jsonb_build_object('tenant_id', m.tenant_id, 'role', m.role) ORDER BY m.created_at)
		FROM tenant_members m WHERE m.user_id = u.id), '[]'::jsonb),
	updated_at = NOW()
	WHERE u.id = ANY($1)`

// RefreshUserRoles rebuilds users.organizations/conferences/memberships from the member tables.
func (q *queries) RefreshUserRoles(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	ids := dedupe(userIDs)
	if _, err := q.db.Exec(ctx, refreshRolesSQL, ids); err != nil {
		return err
	}
	q.touched(ctx, ids)
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a top-level tenant scope that owns conferences.
type Organization struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	Description   string      `json:"description"`
	Website       string      `json:"website"`
	Logo          string      `json:"logo,omitempty"`
	Plan          string      `json:"plan"`
	IsPublic      bool        `json:"is_public"`
	ConferenceIDs []uuid.UUID `json:"conferences"`
	CreatedBy     uuid.UUID   `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Organization plans.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// OrganizationMember is the canonical (organization, user, role) record.
type OrganizationMember struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           OrgRole   `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Member is an organization or conference member with user details.
type Member struct {
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
	Name    string    `json:"name"`
	Role    string    `json:"role"`
	AddedAt time.Time `json:"added_at"`
}

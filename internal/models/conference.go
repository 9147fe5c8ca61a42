package models

import (
	"time"

	"github.com/google/uuid"
)

// Conference belongs to exactly one organization.
type Conference struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	Name           string     `json:"name"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	CFPOpenDate    *time.Time `json:"cfp_open_date,omitempty"`
	CFPCloseDate   *time.Time `json:"cfp_close_date,omitempty"`
	CreatedBy      uuid.UUID  `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ConferenceMember is the canonical (conference, user, role) record.
type ConferenceMember struct {
	ConferenceID uuid.UUID `json:"conference_id"`
	UserID       uuid.UUID `json:"user_id"`
	Role         ConfRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

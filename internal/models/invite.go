package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteTTL is how long an invite token stays redeemable.
const InviteTTL = 7 * 24 * time.Hour

// Invite pre-authorizes a future membership for Email.
type Invite struct {
	ID             uuid.UUID  `json:"id"`
	Token          string     `json:"token,omitempty"`
	Email          string     `json:"email"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	ConferenceID   *uuid.UUID `json:"conference_id,omitempty"`
	OrgRole        *OrgRole   `json:"org_role,omitempty"`
	ConfRole       *ConfRole  `json:"conf_role,omitempty"`
	InvitedBy      uuid.UUID  `json:"invited_by"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
}

// Expired reports whether the invite can no longer be redeemed at now.
func (i *Invite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

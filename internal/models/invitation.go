package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation is a shareable token that lets outsiders self-register into an event.
// MaxUses and ExpiresAt are optional constraints; nil means unlimited / never expires.
type Invitation struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Token       string     `json:"token"`
	Description string     `json:"description"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	TimesUsed   int        `json:"times_used"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExpired reports whether the invitation's expiry has passed at the given instant.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// IsMaxedOut reports whether the usage cap has been reached.
func (i *Invitation) IsMaxedOut() bool {
	return i.MaxUses != nil && i.TimesUsed >= *i.MaxUses
}

// Redeemable combines the active flag with the derived expiry and quota gates.
// The three gates are independent: a reactivated invitation stays non-redeemable
// while expired or maxed out.
func (i *Invitation) Redeemable(now time.Time) bool {
	return i.IsActive && !i.IsExpired(now) && !i.IsMaxedOut()
}

// InvitationUsage is one successful redemption, append-only.
// InvitationID is nil once the invitation has been deleted; EventID keeps the
// row attributable for event statistics.
type InvitationUsage struct {
	ID            uuid.UUID  `json:"id"`
	InvitationID  *uuid.UUID `json:"invitation_id,omitempty"`
	EventID       uuid.UUID  `json:"event_id"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	IPAddress     string     `json:"ip_address,omitempty"`
	UserAgent     string     `json:"user_agent,omitempty"`
	UsedAt        time.Time  `json:"used_at"`
}

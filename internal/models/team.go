package models

import (
	"time"

	"github.com/google/uuid"
)

// TeamRole is a participant's role within a team.
type TeamRole string

const (
	TeamRoleCaptain TeamRole = "captain"
	TeamRoleMember  TeamRole = "member"
)

// Team is a group of participants competing in an event.
type Team struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamParticipant links a participant to a team with a role.
type TeamParticipant struct {
	TeamID        uuid.UUID `json:"team_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	Role          TeamRole  `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

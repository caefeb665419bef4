package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a participant role in the platform.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Participant represents a platform account.
type Participant struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParticipantPublic is Participant without sensitive fields for API responses.
type ParticipantPublic struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts Participant to ParticipantPublic.
func (p *Participant) ToPublic() ParticipantPublic {
	return ParticipantPublic{
		ID:        p.ID,
		Username:  p.Username,
		Name:      p.Name,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

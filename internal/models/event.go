package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft    EventStatus = "draft"
	EventStatusActive   EventStatus = "active"
	EventStatusFinished EventStatus = "finished"
)

// EventVisibility controls who can see an event.
type EventVisibility string

const (
	EventVisibilityPublic  EventVisibility = "public"
	EventVisibilityPrivate EventVisibility = "private"
)

// Event represents a sporting event that teams and participants join.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	Status      EventStatus     `json:"status"`
	Visibility  EventVisibility `json:"visibility"`
	CreatedBy   uuid.UUID       `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EventParticipantStatus tracks membership state within an event.
type EventParticipantStatus string

const (
	EventParticipantPending  EventParticipantStatus = "pending"
	EventParticipantAccepted EventParticipantStatus = "accepted"
)

// EventParticipant links a participant to an event.
type EventParticipant struct {
	ID            uuid.UUID              `json:"id"`
	EventID       uuid.UUID              `json:"event_id"`
	ParticipantID uuid.UUID              `json:"participant_id"`
	Status        EventParticipantStatus `json:"status"`
	InvitedBy     *uuid.UUID             `json:"invited_by,omitempty"`
	JoinedAt      *time.Time             `json:"joined_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

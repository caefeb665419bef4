package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationAnnouncement NotificationType = "announcement"
	NotificationEventUpdate  NotificationType = "event_update"
)

// Notification is an in-app message for one participant.
type Notification struct {
	ID            uuid.UUID        `json:"id"`
	ParticipantID uuid.UUID        `json:"participant_id"`
	EventID       *uuid.UUID       `json:"event_id,omitempty"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	IsRead        bool             `json:"is_read"`
	CreatedAt     time.Time        `json:"created_at"`
}

// NotificationEmail records the outcome of one notification email delivery attempt.
type NotificationEmail struct {
	ID             uuid.UUID  `json:"id"`
	NotificationID uuid.UUID  `json:"notification_id"`
	EventID        *uuid.UUID `json:"event_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Status         string     `json:"status"` // pending | sent | skipped | failed
	SentAt         *time.Time `json:"sent_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

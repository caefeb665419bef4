package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamrally/backend/internal/models"
)

// Repository handles notification and delivery-log persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an in-app notification row.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	const q = `INSERT INTO notifications (participant_id, event_id, type, title, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at`
	return r.pool.QueryRow(ctx, q, n.ParticipantID, n.EventID, string(n.Type), n.Title, n.Message).
		Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

// ListByParticipant returns a participant's notifications, newest first.
func (r *Repository) ListByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]models.Notification, error) {
	const q = `SELECT id, participant_id, event_id, type, title, message, is_read, created_at
		FROM notifications WHERE participant_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, participantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.ParticipantID, &n.EventID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkRead flags one of the participant's own notifications as read.
func (r *Repository) MarkRead(ctx context.Context, id, participantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND participant_id = $2`, id, participantID)
	return err
}

// CreateEmailLog inserts a pending delivery-log row.
func (r *Repository) CreateEmailLog(ctx context.Context, e *models.NotificationEmail) error {
	const q = `INSERT INTO notification_emails (notification_id, event_id, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, q, e.NotificationID, e.EventID, e.RecipientEmail, e.Subject).
		Scan(&e.ID, &e.Status, &e.CreatedAt)
}

// UpdateEmailStatus records the outcome of a delivery attempt.
func (r *Repository) UpdateEmailStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errMsg string) error {
	const q = `UPDATE notification_emails SET status = $1, sent_at = $2, error_message = NULLIF($3, '') WHERE id = $4`
	_, err := r.pool.Exec(ctx, q, status, sentAt, errMsg, id)
	return err
}

// ListEmailsByEvent returns the delivery log for an event, newest first.
func (r *Repository) ListEmailsByEvent(ctx context.Context, eventID uuid.UUID) ([]models.NotificationEmail, error) {
	const q = `SELECT id, notification_id, event_id, recipient_email, subject, status, sent_at, COALESCE(error_message, ''), created_at
		FROM notification_emails WHERE event_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.NotificationEmail
	for rows.Next() {
		var e models.NotificationEmail
		if err := rows.Scan(&e.ID, &e.NotificationID, &e.EventID, &e.RecipientEmail, &e.Subject, &e.Status, &e.SentAt, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// ParticipantEmails resolves email addresses for the given participant IDs.
// Participants without an address are simply absent from the result.
func (r *Repository) ParticipantEmails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	const q = `SELECT id, email FROM participants WHERE id = ANY($1) AND email IS NOT NULL`
	rows, err := r.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	emails := make(map[uuid.UUID]string)
	for rows.Next() {
		var id uuid.UUID
		var email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		emails[id] = email
	}
	return emails, rows.Err()
}

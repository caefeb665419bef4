package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamrally/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (name, description, start_date, end_date, status, visibility, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Description, e.StartDate, e.EndDate, string(e.Status), string(e.Visibility), e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, name, description, start_date, end_date, status, visibility, created_by, created_at, updated_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Name, &e.Description, &e.StartDate, &e.EndDate, &e.Status, &e.Visibility, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Exists reports whether an event exists.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM events WHERE id = $1`
	var one int
	err := r.pool.QueryRow(ctx, q, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all events, newest start first.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, start_date, end_date, status, visibility, created_by, created_at, updated_at
		FROM events ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.StartDate, &e.EndDate, &e.Status, &e.Visibility, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates event fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, description string, startDate, endDate *time.Time, status string) error {
	const q = `UPDATE events SET name = COALESCE(NULLIF($1, ''), name), description = $2,
		start_date = COALESCE($3, start_date), end_date = COALESCE($4, end_date),
		status = COALESCE(NULLIF($5, ''), status), updated_at = NOW()
		WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, name, description, startDate, endDate, status, id)
	return err
}

// Delete removes an event by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// AddParticipant links a participant to an event as accepted.
// Called by the redemption engine after a successful invitation use.
func (r *Repository) AddParticipant(ctx context.Context, eventID, participantID uuid.UUID, invitedBy *uuid.UUID) error {
	const q = `INSERT INTO event_participants (event_id, participant_id, status, invited_by, joined_at)
		VALUES ($1, $2, 'accepted', $3, NOW())
		ON CONFLICT (event_id, participant_id) DO UPDATE SET status = 'accepted', joined_at = NOW()`
	_, err := r.pool.Exec(ctx, q, eventID, participantID, invitedBy)
	return err
}

// ListParticipantIDs returns participant IDs for all accepted members of an event.
func (r *Repository) ListParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT participant_id FROM event_participants WHERE event_id = $1 AND status = 'accepted'`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

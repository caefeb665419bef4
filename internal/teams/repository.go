package teams

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamrally/backend/internal/models"
)

// Repository handles team persistence and membership lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a teams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new team for an event.
func (r *Repository) Create(ctx context.Context, t *models.Team) error {
	const q = `INSERT INTO teams (event_id, name) VALUES ($1, $2) RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.EventID, t.Name).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// ListByEvent returns all teams for an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, name, created_at, updated_at FROM teams WHERE event_id = $1 ORDER BY name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// AddMember links a participant to a team with a role.
func (r *Repository) AddMember(ctx context.Context, teamID, participantID uuid.UUID, role models.TeamRole) error {
	const q = `INSERT INTO team_participants (team_id, participant_id, role) VALUES ($1, $2, $3)
		ON CONFLICT (team_id, participant_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, q, teamID, participantID, string(role))
	return err
}

// ListCaptainIDs returns the participant IDs of all team captains in an event.
// Used to resolve the "captains" notification recipient type.
func (r *Repository) ListCaptainIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT DISTINCT tp.participant_id FROM team_participants tp
		INNER JOIN teams t ON t.id = tp.team_id
		WHERE t.event_id = $1 AND tp.role = 'captain'`
	rows, err := r.pool.Query(ctx, q, eventID)
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

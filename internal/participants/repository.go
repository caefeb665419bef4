package participants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/database"
)

// ErrUsernameTaken is returned when creating a participant with an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// Repository handles participant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new participant. Password must already be hashed.
func (r *Repository) Create(ctx context.Context, p *models.Participant) error {
	const q = `INSERT INTO participants (username, password_hash, name, email, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.Username, p.Password, p.Name, p.Email, p.Phone, string(p.Role)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

// GetByID returns a participant by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Participant, error) {
	const q = `SELECT id, username, password_hash, name, email, phone, role, created_at, updated_at
		FROM participants WHERE id = $1`
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Username, &p.Password, &p.Name, &p.Email, &p.Phone, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByUsername returns a participant by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.Participant, error) {
	const q = `SELECT id, username, password_hash, name, email, phone, role, created_at, updated_at
		FROM participants WHERE username = $1`
	var p models.Participant
	err := r.pool.QueryRow(ctx, q, username).
		Scan(&p.ID, &p.Username, &p.Password, &p.Name, &p.Email, &p.Phone, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UsernameExists reports whether a username is already taken.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT 1 FROM participants WHERE username = $1`
	var one int
	err := r.pool.QueryRow(ctx, q, username).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a participant by ID. Used to compensate a failed redemption.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	return err
}

// List returns all participants for admin views.
func (r *Repository) List(ctx context.Context) ([]models.ParticipantPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, username, name, role, created_at FROM participants ORDER BY name, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ParticipantPublic
	for rows.Next() {
		var p models.ParticipantPublic
		if err := rows.Scan(&p.ID, &p.Username, &p.Name, &p.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

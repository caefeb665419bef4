package invitations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/database"
)

// Repository is the PostgreSQL-backed invitation store and usage ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invitations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invitationColumns = `id, event_id, token, description, max_uses, times_used, expires_at, is_active, created_by, created_at, updated_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(&inv.ID, &inv.EventID, &inv.Token, &inv.Description, &inv.MaxUses, &inv.TimesUsed,
		&inv.ExpiresAt, &inv.IsActive, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a new invitation. A duplicate token maps to ErrTokenConflict.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation) error {
	const q = `INSERT INTO event_invitations (event_id, token, description, max_uses, expires_at, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, times_used, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, inv.EventID, inv.Token, inv.Description, inv.MaxUses, inv.ExpiresAt, inv.IsActive, inv.CreatedBy).
		Scan(&inv.ID, &inv.TimesUsed, &inv.CreatedAt, &inv.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrTokenConflict
	}
	return err
}

// GetByID returns an invitation by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM event_invitations WHERE id = $1`, id))
}

// GetByToken returns an invitation by its token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return scanInvitation(r.pool.QueryRow(ctx, `SELECT `+invitationColumns+` FROM event_invitations WHERE token = $1`, token))
}

// ListByEvent returns all invitations for an event, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invitation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invitationColumns+` FROM event_invitations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Invitation
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(&inv.ID, &inv.EventID, &inv.Token, &inv.Description, &inv.MaxUses, &inv.TimesUsed,
			&inv.ExpiresAt, &inv.IsActive, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// UpdateConstraints replaces the constraint fields. times_used is untouched;
// lowering max_uses below it freezes the invitation without error.
func (r *Repository) UpdateConstraints(ctx context.Context, id uuid.UUID, description string, maxUses *int, expiresAt *time.Time) (*models.Invitation, error) {
	const q = `UPDATE event_invitations
		SET description = $1, max_uses = $2, expires_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + invitationColumns
	return scanInvitation(r.pool.QueryRow(ctx, q, description, maxUses, expiresAt, id))
}

// SetActive toggles the administrator-controlled flag. Idempotent.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE event_invitations SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes an invitation. Usage rows are detached, not removed
// (invitation_id goes NULL via the FK), so event history survives.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeUse atomically claims one usage slot. The WHERE clause re-checks all
// three gates against current row state, so concurrent winners can never push
// times_used past max_uses. Returns false when the row no longer qualifies.
func (r *Repository) ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE event_invitations
		SET times_used = times_used + 1, updated_at = NOW()
		WHERE id = $1
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > NOW())
		  AND (max_uses IS NULL OR times_used < max_uses)`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseUse returns a claimed slot after a failed redemption so the quota
// is not permanently lost.
func (r *Repository) ReleaseUse(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE event_invitations SET times_used = times_used - 1, updated_at = NOW() WHERE id = $1 AND times_used > 0`, id)
	return err
}

// AppendUsage records one successful redemption in the ledger.
func (r *Repository) AppendUsage(ctx context.Context, u *models.InvitationUsage) error {
	const q = `INSERT INTO event_invitation_usage (invitation_id, event_id, participant_id, ip_address, user_agent)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, used_at`
	return r.pool.QueryRow(ctx, q, u.InvitationID, u.EventID, u.ParticipantID, u.IPAddress, u.UserAgent).
		Scan(&u.ID, &u.UsedAt)
}

const usageDetailQuery = `SELECT u.id, u.invitation_id, COALESCE(i.description, ''), u.participant_id,
		p.name, p.username, COALESCE(u.ip_address, ''), u.used_at
	FROM event_invitation_usage u
	INNER JOIN participants p ON p.id = u.participant_id
	LEFT JOIN event_invitations i ON i.id = u.invitation_id`

func scanUsageDetails(rows pgx.Rows) ([]UsageDetail, error) {
	defer rows.Close()
	var list []UsageDetail
	for rows.Next() {
		var u UsageDetail
		if err := rows.Scan(&u.ID, &u.InvitationID, &u.InvitationDescription, &u.ParticipantID,
			&u.ParticipantName, &u.ParticipantUsername, &u.IPAddress, &u.UsedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// UsagesByInvitation returns the usage history of one invitation, newest first.
func (r *Repository) UsagesByInvitation(ctx context.Context, invitationID uuid.UUID) ([]UsageDetail, error) {
	rows, err := r.pool.Query(ctx, usageDetailQuery+` WHERE u.invitation_id = $1 ORDER BY u.used_at DESC`, invitationID)
	if err != nil {
		return nil, err
	}
	return scanUsageDetails(rows)
}

// RecentUsagesByEvent returns the most recent redemptions across all of an
// event's invitations, including detached rows from deleted invitations.
func (r *Repository) RecentUsagesByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]UsageDetail, error) {
	rows, err := r.pool.Query(ctx, usageDetailQuery+` WHERE u.event_id = $1 ORDER BY u.used_at DESC LIMIT $2`, eventID, limit)
	if err != nil {
		return nil, err
	}
	return scanUsageDetails(rows)
}

// CountUsagesByEvent returns the total number of ledger rows for an event.
func (r *Repository) CountUsagesByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM event_invitation_usage WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// UsageCountsByDay returns a sparse map of UTC calendar date -> redemption
// count for an event. Days with no redemptions are absent.
func (r *Repository) UsageCountsByDay(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	const q = `SELECT TO_CHAR(u.used_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'), COUNT(*)
		FROM event_invitation_usage u
		WHERE u.event_id = $1
		GROUP BY 1`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

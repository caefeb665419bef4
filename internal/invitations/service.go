package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/utils"
)

// Store is the durable invitation record. ConsumeUse must be atomic: the
// increment happens only if the row still satisfies every redeemability gate.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invitation, error)
	UpdateConstraints(ctx context.Context, id uuid.UUID, description string, maxUses *int, expiresAt *time.Time) (*models.Invitation, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	ConsumeUse(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseUse(ctx context.Context, id uuid.UUID) error
}

// Ledger is the append-only record of successful redemptions.
type Ledger interface {
	AppendUsage(ctx context.Context, u *models.InvitationUsage) error
	UsagesByInvitation(ctx context.Context, invitationID uuid.UUID) ([]UsageDetail, error)
	RecentUsagesByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]UsageDetail, error)
	CountUsagesByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
	UsageCountsByDay(ctx context.Context, eventID uuid.UUID) (map[string]int, error)
}

// EventStore is the boundary to the event collaborator.
type EventStore interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	AddParticipant(ctx context.Context, eventID, participantID uuid.UUID, invitedBy *uuid.UUID) error
}

// ParticipantStore is the boundary to the participant collaborator. Create
// must be atomic; its failure aborts the redemption cleanly.
type ParticipantStore interface {
	Create(ctx context.Context, p *models.Participant) error
	Delete(ctx context.Context, id uuid.UUID) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// UsageDetail is one ledger row resolved for display: participant identity
// plus the originating invitation's description.
type UsageDetail struct {
	ID                    uuid.UUID  `json:"id"`
	InvitationID          *uuid.UUID `json:"invitation_id,omitempty"`
	InvitationDescription string     `json:"invitation_description"`
	ParticipantID         uuid.UUID  `json:"participant_id"`
	ParticipantName       string     `json:"participant_name"`
	ParticipantUsername   string     `json:"participant_username"`
	IPAddress             string     `json:"ip_address,omitempty"`
	UsedAt                time.Time  `json:"used_at"`
}

// CreateParams are the admin-supplied fields for a new invitation.
type CreateParams struct {
	EventID     uuid.UUID
	Description string
	MaxUses     *int
	ExpiresAt   *time.Time
	CreatedBy   uuid.UUID
}

// UpdateParams replace an invitation's constraint fields.
type UpdateParams struct {
	Description string
	MaxUses     *int
	ExpiresAt   *time.Time
}

// RegistrationRequest carries the self-registration payload for one
// redemption. It is never persisted.
type RegistrationRequest struct {
	Username string
	Password string
	Name     string
	Email    string
	Phone    string
}

// UsageMeta is best-effort audit data captured at redemption time.
type UsageMeta struct {
	IPAddress string
	UserAgent string
}

// InvitationResponse is the API shape of an invitation with derived state.
type InvitationResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	Token         string     `json:"token"`
	InvitationURL string     `json:"invitation_url"`
	Description   string     `json:"description"`
	MaxUses       *int       `json:"max_uses,omitempty"`
	TimesUsed     int        `json:"times_used"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	IsActive      bool       `json:"is_active"`
	IsExpired     bool       `json:"is_expired"`
	IsMaxedOut    bool       `json:"is_maxed_out"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RedeemResult is the outcome of a successful redemption.
type RedeemResult struct {
	Participant models.ParticipantPublic `json:"participant"`
	Invitation  InvitationResponse       `json:"invitation"`
}

// Service implements the invitation lifecycle, the redemption engine and the
// statistics aggregator.
type Service struct {
	store        Store
	ledger       Ledger
	events       EventStore
	participants ParticipantStore
	baseURL      string
	logger       *zap.Logger
}

// NewService creates the invitation service. baseURL is the frontend origin
// embedded in shareable invitation links.
func NewService(store Store, ledger Ledger, events EventStore, participants ParticipantStore, baseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		ledger:       ledger,
		events:       events,
		participants: participants,
		baseURL:      baseURL,
		logger:       logger,
	}
}

func (s *Service) toResponse(inv *models.Invitation) InvitationResponse {
	now := time.Now()
	return InvitationResponse{
		ID:            inv.ID,
		EventID:       inv.EventID,
		Token:         inv.Token,
		InvitationURL: s.baseURL + "/register?invite=" + inv.Token,
		Description:   inv.Description,
		MaxUses:       inv.MaxUses,
		TimesUsed:     inv.TimesUsed,
		ExpiresAt:     inv.ExpiresAt,
		IsActive:      inv.IsActive,
		IsExpired:     inv.IsExpired(now),
		IsMaxedOut:    inv.IsMaxedOut(),
		CreatedBy:     inv.CreatedBy,
		CreatedAt:     inv.CreatedAt,
	}
}

// Create validates constraints, mints a token and persists a new invitation.
// A token collision triggers exactly one silent regeneration.
func (s *Service) Create(ctx context.Context, p CreateParams) (*InvitationResponse, error) {
	if p.MaxUses != nil && *p.MaxUses <= 0 {
		return nil, fmt.Errorf("%w: max_uses must be a positive integer", ErrValidation)
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}
	exists, err := s.events.Exists(ctx, p.EventID)
	if err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}

	inv := &models.Invitation{
		EventID:     p.EventID,
		Description: p.Description,
		MaxUses:     p.MaxUses,
		ExpiresAt:   p.ExpiresAt,
		IsActive:    true,
		CreatedBy:   p.CreatedBy,
	}
	for attempt := 0; ; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		inv.Token = token
		err = s.store.Create(ctx, inv)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTokenConflict) && attempt == 0 {
			s.logger.Warn("invitation token collision, regenerating")
			continue
		}
		return nil, err
	}
	resp := s.toResponse(inv)
	return &resp, nil
}

// Update replaces the constraint fields of an invitation. It never resets
// times_used; lowering max_uses below it freezes the invitation, by design.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*InvitationResponse, error) {
	if p.MaxUses != nil && *p.MaxUses <= 0 {
		return nil, fmt.Errorf("%w: max_uses must be a positive integer", ErrValidation)
	}
	inv, err := s.store.UpdateConstraints(ctx, id, p.Description, p.MaxUses, p.ExpiresAt)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(inv)
	return &resp, nil
}

// Activate re-enables the admin flag. Idempotent; an expired or maxed-out
// invitation stays non-redeemable regardless.
func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, true)
}

// Deactivate turns off the admin flag. Idempotent.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.store.SetActive(ctx, id, false)
}

// Delete hard-deletes an invitation; its ledger rows are detached, not purged.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// ListByEvent returns all invitations for an event with derived state.
func (s *Service) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]InvitationResponse, error) {
	list, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]InvitationResponse, 0, len(list))
	for i := range list {
		out = append(out, s.toResponse(&list[i]))
	}
	return out, nil
}

// GetByToken returns the public-facing summary for a landing page. Read-only,
// consumes no quota. Unknown tokens are plain not-found.
func (s *Service) GetByToken(ctx context.Context, token string) (*InvitationResponse, error) {
	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(inv)
	return &resp, nil
}

// Usages returns the resolved redemption history of one invitation.
func (s *Service) Usages(ctx context.Context, invitationID uuid.UUID) ([]UsageDetail, error) {
	if _, err := s.store.GetByID(ctx, invitationID); err != nil {
		return nil, err
	}
	return s.ledger.UsagesByInvitation(ctx, invitationID)
}

// Redeem validates the token, atomically claims a usage slot, creates the
// participant through the external store and appends a ledger row. A claimed
// slot is released on any downstream failure so quota is never lost to a
// failed registration.
func (s *Service) Redeem(ctx context.Context, token string, reg RegistrationRequest, meta UsageMeta) (*RedeemResult, error) {
	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := classify(inv, time.Now()); err != nil {
		return nil, err
	}

	taken, err := s.participants.UsernameExists(ctx, reg.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username already exists", ErrValidation)
	}

	won, err := s.store.ConsumeUse(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("consume use: %w", err)
	}
	if !won {
		// Lost the race or state changed since the read; classify freshly.
		cur, err := s.store.GetByID(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		if err := classify(cur, time.Now()); err != nil {
			return nil, err
		}
		// The row qualifies again (e.g. an admin raised the cap between the
		// failed update and this read). Terminal for this attempt anyway.
		return nil, ErrExhausted
	}

	hash, err := utils.HashPassword(reg.Password)
	if err != nil {
		s.release(ctx, inv.ID)
		return nil, fmt.Errorf("hash password: %w", err)
	}
	participant := &models.Participant{
		Username: reg.Username,
		Password: hash,
		Name:     reg.Name,
		Role:     models.RoleUser,
	}
	if reg.Email != "" {
		participant.Email = &reg.Email
	}
	if reg.Phone != "" {
		participant.Phone = &reg.Phone
	}
	if err := s.participants.Create(ctx, participant); err != nil {
		s.release(ctx, inv.ID)
		return nil, fmt.Errorf("create participant: %w", err)
	}

	invitedBy := inv.CreatedBy
	if err := s.events.AddParticipant(ctx, inv.EventID, participant.ID, &invitedBy); err != nil {
		s.rollback(ctx, inv.ID, participant.ID)
		return nil, fmt.Errorf("join event: %w", err)
	}

	usage := &models.InvitationUsage{
		InvitationID:  &inv.ID,
		EventID:       inv.EventID,
		ParticipantID: participant.ID,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
	}
	if err := s.ledger.AppendUsage(ctx, usage); err != nil {
		s.rollback(ctx, inv.ID, participant.ID)
		return nil, fmt.Errorf("append usage: %w", err)
	}

	summary := inv
	if fresh, err := s.store.GetByID(ctx, inv.ID); err == nil {
		summary = fresh
	} else {
		summary.TimesUsed++
	}
	return &RedeemResult{
		Participant: participant.ToPublic(),
		Invitation:  s.toResponse(summary),
	}, nil
}

// classify maps a non-redeemable invitation to its terminal error, checking
// the three independent gates in the order the original UI reports them.
func classify(inv *models.Invitation, now time.Time) error {
	switch {
	case !inv.IsActive:
		return ErrInactive
	case inv.IsExpired(now):
		return ErrExpired
	case inv.IsMaxedOut():
		return ErrExhausted
	}
	return nil
}

func (s *Service) release(ctx context.Context, invitationID uuid.UUID) {
	if err := s.store.ReleaseUse(ctx, invitationID); err != nil {
		// The one condition worth operator alerting: a lost release means the
		// counter may exceed the ledger until reconciled.
		s.logger.Error("quota release failed after aborted redemption",
			zap.String("invitation_id", invitationID.String()), zap.Error(err))
	}
}

func (s *Service) rollback(ctx context.Context, invitationID, participantID uuid.UUID) {
	s.release(ctx, invitationID)
	if err := s.participants.Delete(ctx, participantID); err != nil {
		s.logger.Error("participant cleanup failed after aborted redemption",
			zap.String("participant_id", participantID.String()), zap.Error(err))
	}
}

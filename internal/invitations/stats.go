package invitations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// recentUsagesPageSize bounds the recent_usages list in event statistics.
const recentUsagesPageSize = 50

// EventStats is the per-event invitation statistics payload. The conversion
// rate is left to callers: total_registrations / total_invitations, defined
// as 0 when there are no invitations.
type EventStats struct {
	EventID            uuid.UUID            `json:"event_id"`
	EventName          string               `json:"event_name"`
	TotalInvitations   int                  `json:"total_invitations"`
	ActiveInvitations  int                  `json:"active_invitations"`
	TotalRegistrations int                  `json:"total_registrations"`
	RegistrationsByDay map[string]int       `json:"registrations_by_day"`
	Invitations        []InvitationResponse `json:"invitations"`
	RecentUsages       []UsageDetail        `json:"recent_usages"`
}

// ComputeEventStats derives invitation statistics for one event on demand.
// Read-only; active_invitations counts the derived redeemable state at query
// time, and registrations_by_day buckets ledger rows by UTC calendar date.
func (s *Service) ComputeEventStats(ctx context.Context, eventID uuid.UUID) (*EventStats, error) {
	exists, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: event", ErrNotFound)
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}

	invitations, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	now := time.Now()
	active := 0
	responses := make([]InvitationResponse, 0, len(invitations))
	for i := range invitations {
		if invitations[i].Redeemable(now) {
			active++
		}
		responses = append(responses, s.toResponse(&invitations[i]))
	}

	total, err := s.ledger.CountUsagesByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count usages: %w", err)
	}
	byDay, err := s.ledger.UsageCountsByDay(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("usage counts by day: %w", err)
	}
	recent, err := s.ledger.RecentUsagesByEvent(ctx, eventID, recentUsagesPageSize)
	if err != nil {
		return nil, fmt.Errorf("recent usages: %w", err)
	}

	return &EventStats{
		EventID:            eventID,
		EventName:          event.Name,
		TotalInvitations:   len(invitations),
		ActiveInvitations:  active,
		TotalRegistrations: total,
		RegistrationsByDay: byDay,
		Invitations:        responses,
		RecentUsages:       recent,
	}, nil
}

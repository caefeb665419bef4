package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/queue"
)

// ErrValidation marks bad send parameters.
var ErrValidation = errors.New("validation failed")

// RecipientMode selects who a notification fans out to.
type RecipientMode string

const (
	// RecipientsAll targets every accepted participant of the event.
	RecipientsAll RecipientMode = "all"
	// RecipientsCaptains targets team captains of the event.
	RecipientsCaptains RecipientMode = "captains"
	// RecipientsSpecific targets an explicit participant list.
	RecipientsSpecific RecipientMode = "specific"
)

// Store is the persistence surface the fan-out needs.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	CreateEmailLog(ctx context.Context, e *models.NotificationEmail) error
	ParticipantEmails(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// MemberSource resolves the accepted participants of an event.
type MemberSource interface {
	ListParticipantIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}

// CaptainSource resolves the team captains of an event.
type CaptainSource interface {
	ListCaptainIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
}

// Enqueuer hands email jobs to the background worker.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Publisher pushes a notification to a connected participant.
type Publisher interface {
	Publish(ctx context.Context, participantID uuid.UUID, payload any) error
}

// SendParams describes one notification send.
type SendParams struct {
	EventID        uuid.UUID
	Type           models.NotificationType
	Title          string
	Message        string
	Mode           RecipientMode
	ParticipantIDs []uuid.UUID // only for RecipientsSpecific
	SendEmail      bool
}

// SendResult summarizes a fan-out.
type SendResult struct {
	Recipients   int `json:"recipients"`
	EmailsQueued int `json:"emails_queued"`
}

// Service fans notifications out to in-app rows, email jobs and live sockets.
type Service struct {
	store    Store
	members  MemberSource
	captains CaptainSource
	enqueue  Enqueuer
	realtime Publisher
	logger   *zap.Logger
}

// NewService creates a notifications service. enqueue and realtime may be nil,
// in which case that channel is skipped.
func NewService(store Store, members MemberSource, captains CaptainSource, enqueue Enqueuer, realtime Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, members: members, captains: captains, enqueue: enqueue, realtime: realtime, logger: logger}
}

// Send resolves recipients and fans the notification out. In-app rows are the
// source of truth; email and websocket delivery are best-effort and never fail
// the send once rows exist.
func (s *Service) Send(ctx context.Context, p SendParams) (*SendResult, error) {
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title required", ErrValidation)
	}
	if p.Type == "" {
		p.Type = models.NotificationAnnouncement
	}

	ids, err := s.resolveRecipients(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &SendResult{}, nil
	}

	var emails map[uuid.UUID]string
	if p.SendEmail {
		emails, err = s.store.ParticipantEmails(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve emails: %w", err)
		}
	}

	result := &SendResult{}
	eventID := p.EventID
	for _, id := range ids {
		n := &models.Notification{
			ParticipantID: id,
			EventID:       &eventID,
			Type:          p.Type,
			Title:         p.Title,
			Message:       p.Message,
		}
		if err := s.store.Create(ctx, n); err != nil {
			return nil, fmt.Errorf("create notification: %w", err)
		}
		result.Recipients++

		if addr, ok := emails[id]; ok && addr != "" {
			if s.queueEmail(ctx, n, addr) {
				result.EmailsQueued++
			}
		}
		if s.realtime != nil {
			if err := s.realtime.Publish(ctx, id, n); err != nil {
				s.logger.Warn("realtime publish failed",
					zap.String("participant_id", id.String()), zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *Service) resolveRecipients(ctx context.Context, p SendParams) ([]uuid.UUID, error) {
	switch p.Mode {
	case RecipientsAll, "":
		ids, err := s.members.ListParticipantIDs(ctx, p.EventID)
		if err != nil {
			return nil, fmt.Errorf("list participants: %w", err)
		}
		return ids, nil
	case RecipientsCaptains:
		ids, err := s.captains.ListCaptainIDs(ctx, p.EventID)
		if err != nil {
			return nil, fmt.Errorf("list captains: %w", err)
		}
		return ids, nil
	case RecipientsSpecific:
		if len(p.ParticipantIDs) == 0 {
			return nil, fmt.Errorf("%w: participant_ids required for specific recipients", ErrValidation)
		}
		return dedupe(p.ParticipantIDs), nil
	default:
		return nil, fmt.Errorf("%w: unknown recipient mode %q", ErrValidation, p.Mode)
	}
}

// queueEmail writes the delivery-log row and hands the job to the worker.
// Reports whether the job was queued.
func (s *Service) queueEmail(ctx context.Context, n *models.Notification, addr string) bool {
	log := &models.NotificationEmail{
		NotificationID: n.ID,
		EventID:        n.EventID,
		RecipientEmail: addr,
		Subject:        n.Title,
	}
	if err := s.store.CreateEmailLog(ctx, log); err != nil {
		s.logger.Warn("email log insert failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
		return false
	}
	if s.enqueue == nil {
		return false
	}
	err := s.enqueue.EnqueueEmail(ctx, queue.EmailPayload{
		NotificationID: n.ID,
		EmailLogID:     log.ID,
		RecipientEmail: addr,
		Subject:        n.Title,
		Body:           n.Message,
	})
	if err != nil {
		s.logger.Warn("email enqueue failed", zap.String("email_log_id", log.ID.String()), zap.Error(err))
		return false
	}
	return true
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/teamrally/backend/internal/models"
	"github.com/teamrally/backend/pkg/queue"
)

type fakeStore struct {
	notifications []models.Notification
	emailLogs     []models.NotificationEmail
	emails        map[uuid.UUID]string
}

func (s *fakeStore) Create(_ context.Context, n *models.Notification) error {
	n.ID = uuid.New()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *fakeStore) CreateEmailLog(_ context.Context, e *models.NotificationEmail) error {
	e.ID = uuid.New()
	e.Status = "pending"
	s.emailLogs = append(s.emailLogs, *e)
	return nil
}

func (s *fakeStore) ParticipantEmails(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if addr, ok := s.emails[id]; ok {
			out[id] = addr
		}
	}
	return out, nil
}

type fakeMembers struct {
	ids []uuid.UUID
}

func (m *fakeMembers) ListParticipantIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return m.ids, nil
}

type fakeCaptains struct {
	ids []uuid.UUID
}

func (c *fakeCaptains) ListCaptainIDs(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return c.ids, nil
}

type fakeEnqueuer struct {
	jobs []queue.EmailPayload
}

func (e *fakeEnqueuer) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	e.jobs = append(e.jobs, p)
	return nil
}

type fakePublisher struct {
	pushed []uuid.UUID
}

func (p *fakePublisher) Publish(_ context.Context, participantID uuid.UUID, _ any) error {
	p.pushed = append(p.pushed, participantID)
	return nil
}

func TestSendFanOutToAllMembers(t *testing.T) {
	members := &fakeMembers{ids: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
	store := &fakeStore{emails: map[uuid.UUID]string{
		members.ids[0]: "first@example.com",
		members.ids[1]: "second@example.com",
		// third member has no email on file
	}}
	enqueuer := &fakeEnqueuer{}
	publisher := &fakePublisher{}
	svc := NewService(store, members, &fakeCaptains{}, enqueuer, publisher, nil)

	eventID := uuid.New()
	result, err := svc.Send(context.Background(), SendParams{
		EventID:   eventID,
		Title:     "Schedule change",
		Message:   "Kickoff moved to 10am",
		Mode:      RecipientsAll,
		SendEmail: true,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Recipients != 3 {
		t.Fatalf("recipients = %d, want 3", result.Recipients)
	}
	if result.EmailsQueued != 2 {
		t.Fatalf("emails_queued = %d, want 2", result.EmailsQueued)
	}
	if len(store.notifications) != 3 {
		t.Fatalf("notification rows = %d, want 3", len(store.notifications))
	}
	for _, n := range store.notifications {
		if n.EventID == nil || *n.EventID != eventID {
			t.Fatal("notification row missing event id")
		}
		if n.Type != models.NotificationAnnouncement {
			t.Fatalf("default type = %q, want announcement", n.Type)
		}
	}
	if len(enqueuer.jobs) != 2 {
		t.Fatalf("queued jobs = %d, want 2", len(enqueuer.jobs))
	}
	if len(store.emailLogs) != 2 {
		t.Fatalf("email logs = %d, want 2", len(store.emailLogs))
	}
	if len(publisher.pushed) != 3 {
		t.Fatalf("realtime pushes = %d, want 3", len(publisher.pushed))
	}
}

func TestSendToCaptainsOnly(t *testing.T) {
	captain := uuid.New()
	members := &fakeMembers{ids: []uuid.UUID{uuid.New(), captain, uuid.New()}}
	captains := &fakeCaptains{ids: []uuid.UUID{captain}}
	store := &fakeStore{}
	svc := NewService(store, members, captains, nil, nil, nil)

	result, err := svc.Send(context.Background(), SendParams{
		EventID: uuid.New(),
		Title:   "Captains meeting",
		Mode:    RecipientsCaptains,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Recipients != 1 {
		t.Fatalf("recipients = %d, want 1", result.Recipients)
	}
	if store.notifications[0].ParticipantID != captain {
		t.Fatal("notification went to the wrong participant")
	}
}

func TestSendToSpecificRecipients(t *testing.T) {
	target := uuid.New()
	store := &fakeStore{}
	svc := NewService(store, &fakeMembers{}, &fakeCaptains{}, nil, nil, nil)

	// Duplicates collapse to one row per participant.
	result, err := svc.Send(context.Background(), SendParams{
		EventID:        uuid.New(),
		Title:          "You are up",
		Mode:           RecipientsSpecific,
		ParticipantIDs: []uuid.UUID{target, target},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Recipients != 1 {
		t.Fatalf("recipients = %d, want 1", result.Recipients)
	}

	_, err = svc.Send(context.Background(), SendParams{
		EventID: uuid.New(),
		Title:   "Nobody home",
		Mode:    RecipientsSpecific,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("empty specific list: got %v, want ErrValidation", err)
	}
}

func TestSendValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeMembers{}, &fakeCaptains{}, nil, nil, nil)

	_, err := svc.Send(context.Background(), SendParams{EventID: uuid.New(), Mode: RecipientsAll})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("missing title: got %v, want ErrValidation", err)
	}
	_, err = svc.Send(context.Background(), SendParams{EventID: uuid.New(), Title: "x", Mode: "everyone"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown mode: got %v, want ErrValidation", err)
	}
}

func TestSendWithoutEmailSkipsQueue(t *testing.T) {
	member := uuid.New()
	store := &fakeStore{emails: map[uuid.UUID]string{member: "player@example.com"}}
	enqueuer := &fakeEnqueuer{}
	svc := NewService(store, &fakeMembers{ids: []uuid.UUID{member}}, &fakeCaptains{}, enqueuer, nil, nil)

	result, err := svc.Send(context.Background(), SendParams{
		EventID: uuid.New(),
		Title:   "In-app only",
		Mode:    RecipientsAll,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.EmailsQueued != 0 || len(enqueuer.jobs) != 0 {
		t.Fatal("emails queued despite send_email=false")
	}
}

package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teamrally/backend/pkg/queue"
)

type fakeEmailLog struct {
	id     uuid.UUID
	status string
	sentAt *time.Time
	errMsg string
}

func (f *fakeEmailLog) UpdateEmailStatus(_ context.Context, id uuid.UUID, status string, sentAt *time.Time, errMsg string) error {
	f.id = id
	f.status = status
	f.sentAt = sentAt
	f.errMsg = errMsg
	return nil
}

type fakeMailer struct {
	to, subject, body string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.to, m.subject, m.body = to, subject, body
	return nil
}

func emailJob(t *testing.T, p queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeEmail, Payload: raw}
}

func TestProcessDeliversAndMarksSent(t *testing.T) {
	log := &fakeEmailLog{}
	mailer := &fakeMailer{}
	w := New(nil, log, mailer, nil)

	logID := uuid.New()
	w.process(context.Background(), emailJob(t, queue.EmailPayload{
		EmailLogID:     logID,
		RecipientEmail: "player@example.com",
		Subject:        "Schedule change",
		Body:           "Kickoff moved to 10am",
	}))

	if mailer.to != "player@example.com" || mailer.subject != "Schedule change" {
		t.Fatalf("mailer called with to=%q subject=%q", mailer.to, mailer.subject)
	}
	if log.id != logID || log.status != "sent" {
		t.Fatalf("log updated with id=%s status=%q, want sent", log.id, log.status)
	}
	if log.sentAt == nil {
		t.Fatal("sent_at not recorded")
	}
}

func TestProcessWithoutMailerMarksSkipped(t *testing.T) {
	log := &fakeEmailLog{}
	w := New(nil, log, nil, nil)

	logID := uuid.New()
	w.process(context.Background(), emailJob(t, queue.EmailPayload{
		EmailLogID:     logID,
		RecipientEmail: "player@example.com",
	}))

	if log.status != "skipped" {
		t.Fatalf("status = %q, want skipped", log.status)
	}
	if log.errMsg == "" {
		t.Fatal("skip reason not recorded")
	}
}

func TestProcessIgnoresUnknownJobTypes(t *testing.T) {
	log := &fakeEmailLog{}
	w := New(nil, log, &fakeMailer{}, nil)

	w.process(context.Background(), &queue.Job{ID: uuid.NewString(), Type: "reindex"})
	if log.status != "" {
		t.Fatalf("unexpected status update: %q", log.status)
	}
}

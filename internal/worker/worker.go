package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamrally/backend/pkg/queue"
)

// EmailLog records delivery outcomes.
type EmailLog interface {
	UpdateEmailStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time, errMsg string) error
}

// Worker consumes email jobs from the queue and delivers them.
type Worker struct {
	queue  *queue.Queue
	log    EmailLog
	mailer Mailer // nil disables delivery; jobs get marked skipped
	logger *zap.Logger
}

// New creates a worker.
func New(q *queue.Queue, log EmailLog, mailer Mailer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, log: log, mailer: mailer, logger: logger}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Bool("mail_enabled", w.mailer != nil))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) {
	if job.Type != queue.JobTypeEmail {
		w.logger.Warn("unknown job type", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return
	}
	var p queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		w.logger.Warn("invalid email payload", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if w.mailer == nil {
		if err := w.log.UpdateEmailStatus(ctx, p.EmailLogID, "skipped", nil, "smtp not configured"); err != nil {
			w.logger.Error("email status update failed", zap.String("email_log_id", p.EmailLogID.String()), zap.Error(err))
		}
		return
	}

	if err := w.mailer.Send(p.RecipientEmail, p.Subject, p.Body); err != nil {
		w.logger.Warn("email send failed",
			zap.String("job_id", job.ID),
			zap.String("recipient", p.RecipientEmail),
			zap.Int("attempt", job.Attempt),
			zap.Error(err))
		if logErr := w.log.UpdateEmailStatus(ctx, p.EmailLogID, "failed", nil, err.Error()); logErr != nil {
			w.logger.Error("email status update failed", zap.String("email_log_id", p.EmailLogID.String()), zap.Error(logErr))
		}
		time.Sleep(queue.RetryBackoff)
		if err := w.queue.Retry(ctx, job); err != nil {
			w.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}

	now := time.Now()
	if err := w.log.UpdateEmailStatus(ctx, p.EmailLogID, "sent", &now, ""); err != nil {
		w.logger.Error("email status update failed", zap.String("email_log_id", p.EmailLogID.String()), zap.Error(err))
	}
	w.logger.Info("email sent", zap.String("recipient", p.RecipientEmail))
}

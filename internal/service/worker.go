package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unclebandit/mailer-backend/internal/logger"
	"github.com/unclebandit/mailer-backend/internal/metrics"
	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/queue"
	"github.com/unclebandit/mailer-backend/internal/repository"
	"github.com/unclebandit/mailer-backend/internal/transport"
)

// ErrRetryLater is returned by HandleJob when at least one entry failed but
// may still be retried.
var ErrRetryLater = errors.New("some queue entries are due for retry")

// Worker delivers queue entries announced by dispatch jobs.
type Worker struct {
	Queue       repository.QueueRepositoryInterface
	Campaigns   repository.CampaignRepositoryInterface
	Transport   transport.Sender
	Metrics     *metrics.Metrics
	Log         zerolog.Logger
	MaxAttempts int
	Now         func() time.Time
}

func NewWorker(queueRepo repository.QueueRepositoryInterface, campaigns repository.CampaignRepositoryInterface, sender transport.Sender, log zerolog.Logger) *Worker {
	return &Worker{
		Queue:       queueRepo,
		Campaigns:   campaigns,
		Transport:   sender,
		Log:         log,
		MaxAttempts: 3,
	}
}

// HandleJob is a queue.Handler. It sends every still-pending entry of the
// job and settles the campaign once nothing is left in flight.
func (w *Worker) HandleJob(ctx context.Context, body []byte) error {
	job, err := queue.DecodeJob(body)
	if err != nil {
		// a malformed body will never decode; drop it
		w.Log.Error().Err(err).Msg("discarding undecodable dispatch job")
		return nil
	}

	retry := false
	for _, id := range job.QueueEntryIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		status, err := w.deliver(ctx, id)
		if err != nil {
			return fmt.Errorf("deliver %s: %w", id, err)
		}
		if status == model.QueuePending {
			retry = true
		}
	}

	if done, err := w.Campaigns.CompleteIfDrained(ctx, job.CampaignID); err != nil {
		w.Log.Warn().Err(err).Str("campaign_id", job.CampaignID.String()).Msg("failed to settle campaign")
	} else if done {
		w.Log.Info().Str("campaign_id", job.CampaignID.String()).Msg("campaign fully delivered")
	}

	if retry {
		return ErrRetryLater
	}
	return nil
}

// deliver sends one entry and returns its resulting status.
func (w *Worker) deliver(ctx context.Context, id uuid.UUID) (model.QueueStatus, error) {
	entry, err := w.Queue.GetByID(ctx, id)
	if errors.Is(err, repository.ErrQueueEntryNotFound) {
		w.Log.Warn().Str("queue_entry_id", id.String()).Msg("queue entry vanished")
		return model.QueueFailed, nil
	}
	if err != nil {
		return "", err
	}
	if entry.Status != model.QueuePending {
		// already handled by an earlier delivery of the same job
		return entry.Status, nil
	}

	messageID, sendErr := w.Transport.Send(ctx, transport.Message{
		FromName:  entry.FromName,
		FromEmail: entry.FromEmail,
		To:        entry.ToEmail,
		Subject:   entry.Subject,
		HTML:      entry.HTML,
		Tags: map[string]string{
			"campaign_id":  entry.CampaignID.String(),
			"recipient_id": entry.RecipientID.String(),
		},
	})
	if sendErr != nil {
		status, err := w.Queue.MarkFailed(ctx, id, sendErr.Error(), w.maxAttempts())
		if err != nil {
			return "", err
		}
		w.Metrics.IncDelivery("failed")
		w.Log.Warn().Err(sendErr).
			Str("queue_entry_id", id.String()).
			Str("to", logger.RedactEmail(entry.ToEmail)).
			Int("attempt", entry.Attempts+1).
			Str("status", string(status)).
			Msg("send failed")
		return status, nil
	}

	if err := w.Queue.MarkDelivered(ctx, id, messageID, w.now()); err != nil {
		return "", err
	}
	w.Metrics.IncDelivery("sent")
	w.Log.Debug().
		Str("queue_entry_id", id.String()).
		Str("message_id", messageID).
		Msg("sent")
	return model.QueueSent, nil
}

func (w *Worker) maxAttempts() int {
	if w.MaxAttempts <= 0 {
		return 3
	}
	return w.MaxAttempts
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/unclebandit/mailer-backend/internal/model"
)

var ErrQueueEntryNotFound = errors.New("queue entry not found")

type QueueRepositoryInterface interface {
	// EnqueueBatch stores entries and marks their recipients queued in one
	// transaction. On error nothing is stored.
	EnqueueBatch(ctx context.Context, entries []model.QueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
	// MarkDelivered records a transport acceptance on the entry, its
	// recipient and the campaign's sent counter.
	MarkDelivered(ctx context.Context, id uuid.UUID, messageID string, at time.Time) error
	// MarkFailed records a failed attempt. The entry returns to pending until
	// maxAttempts is reached, then it and its recipient are failed.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (model.QueueStatus, error)
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error)
}

type QueueRepository struct {
	DB *sql.DB
}

func (r *QueueRepository) EnqueueBatch(ctx context.Context, entries []model.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"queue_entries",
		"id", "campaign_id", "recipient_id", "to_email", "from_email", "from_name",
		"subject", "html", "status", "attempts", "batch_number", "created_at", "updated_at",
	))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	recipientIDs := make([]string, len(entries))
	for i, e := range entries {
		var batch any
		if e.BatchNumber != nil {
			batch = *e.BatchNumber
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.CampaignID, e.RecipientID, e.ToEmail, e.FromEmail, e.FromName,
			e.Subject, e.HTML, string(e.Status), e.Attempts, batch, e.CreatedAt, e.UpdatedAt,
		); err != nil {
			stmt.Close()
			return fmt.Errorf("copy row %d: %w", i, err)
		}
		recipientIDs[i] = e.RecipientID.String()
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE campaign_recipients SET status='queued', last_error='', updated_at=NOW() WHERE id = ANY($1::uuid[])`,
		pq.Array(recipientIDs),
	); err != nil {
		return fmt.Errorf("mark recipients queued: %w", err)
	}

	return tx.Commit()
}

func (r *QueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	query := `
        SELECT id, campaign_id, recipient_id, to_email, from_email, from_name, subject, html,
               status, attempts, batch_number, last_error, message_id, created_at, updated_at
        FROM queue_entries WHERE id=$1
    `
	var e model.QueueEntry
	var batch sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.CampaignID, &e.RecipientID, &e.ToEmail, &e.FromEmail, &e.FromName, &e.Subject, &e.HTML,
		&e.Status, &e.Attempts, &batch, &e.LastError, &e.MessageID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, err
	}
	if batch.Valid {
		n := int(batch.Int64)
		e.BatchNumber = &n
	}
	return &e, nil
}

func (r *QueueRepository) MarkDelivered(ctx context.Context, id uuid.UUID, messageID string, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var campaignID, recipientID uuid.UUID
	err = tx.QueryRowContext(ctx, `
        UPDATE queue_entries
        SET status='sent', attempts=attempts+1, message_id=$2, last_error='', updated_at=$3
        WHERE id=$1 AND status <> 'sent'
        RETURNING campaign_id, recipient_id
    `, id, messageID, at).Scan(&campaignID, &recipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// already delivered or gone
			return nil
		}
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE campaign_recipients SET status='sent', updated_at=$2 WHERE id=$1`,
		recipientID, at,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE campaigns SET sent_count=sent_count+1, sent_at=COALESCE(sent_at, $2), updated_at=$2 WHERE id=$1`,
		campaignID, at,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *QueueRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (model.QueueStatus, error) {
	query := `
        WITH q AS (
            UPDATE queue_entries
            SET attempts=attempts+1,
                last_error=$2,
                status=CASE WHEN attempts+1 >= $3 THEN 'failed' ELSE 'pending' END,
                updated_at=NOW()
            WHERE id=$1
            RETURNING recipient_id, status
        ), r AS (
            UPDATE campaign_recipients
            SET status='error', last_error=$2, updated_at=NOW()
            WHERE id = (SELECT recipient_id FROM q WHERE status='failed')
        )
        SELECT status FROM q
    `
	var status model.QueueStatus
	err := r.DB.QueryRowContext(ctx, query, id, reason, maxAttempts).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrQueueEntryNotFound
	}
	return status, err
}

func (r *QueueRepository) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	return countByStatus(ctx, r.DB,
		`SELECT status, COUNT(*) FROM queue_entries WHERE campaign_id=$1 GROUP BY status`,
		campaignID,
		model.QueuePending, model.QueueSent, model.QueueFailed,
	)
}

var _ QueueRepositoryInterface = (*QueueRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error
	// NextBatchNumber increments and returns the campaign's batch counter.
	NextBatchNumber(ctx context.Context, id uuid.UUID) (int, error)
	// CompleteIfDrained moves a sending campaign to sent once no queue entry
	// is still pending.
	CompleteIfDrained(ctx context.Context, id uuid.UUID) (bool, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, account_id, name, from_name, from_email, subject, html_body, list_id,
        status, sent_count, batch_count, sent_at, created_at, updated_at`

func (r *CampaignRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`

	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.AccountID, &c.Name, &c.FromName, &c.FromEmail, &c.Subject, &c.HTMLBody, &c.ListID,
		&c.Status, &c.SentCount, &c.BatchCount, &c.SentAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

func (r *CampaignRepository) NextBatchNumber(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE campaigns SET batch_count=batch_count+1, updated_at=NOW() WHERE id=$1 RETURNING batch_count`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.NewCampaignNotFound(id)
		}
		return 0, err
	}
	return n, nil
}

func (r *CampaignRepository) CompleteIfDrained(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
        UPDATE campaigns SET status='sent', updated_at=NOW()
        WHERE id=$1 AND status='sending'
          AND NOT EXISTS (SELECT 1 FROM queue_entries WHERE campaign_id=$1 AND status='pending')
    `
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

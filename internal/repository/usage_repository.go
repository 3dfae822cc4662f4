package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/quota"
)

// UsageRepository reads plan and usage records for the quota ledger.
type UsageRepository struct {
	DB *sql.DB
}

func (r *UsageRepository) OrganizationForAccount(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error) {
	var orgID uuid.NullUUID
	err := r.DB.QueryRowContext(ctx, `SELECT organization_id FROM accounts WHERE id=$1`, accountID).Scan(&orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return orgID.UUID, orgID.Valid, nil
}

func (r *UsageRepository) ActiveSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	query := `
        SELECT id, organization_id, plan_name, base_emails, addon_emails, status, started_at, ends_at
        FROM subscriptions
        WHERE organization_id=$1 AND status='active'
        ORDER BY started_at DESC
        LIMIT 1
    `
	var s model.Subscription
	err := r.DB.QueryRowContext(ctx, query, orgID).Scan(
		&s.ID, &s.OrganizationID, &s.PlanName, &s.BaseEmails, &s.AddonEmails, &s.Status, &s.StartedAt, &s.EndsAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SentInPeriod counts delivered emails of campaigns sent in the window plus
// queue entries handed off in the window and not yet delivered.
func (r *UsageRepository) SentInPeriod(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	query := `
        SELECT
            COALESCE((SELECT SUM(sent_count) FROM campaigns
                      WHERE account_id=$1 AND sent_at BETWEEN $2 AND $3), 0)
          + (SELECT COUNT(*) FROM queue_entries q
             JOIN campaigns c ON c.id = q.campaign_id
             WHERE c.account_id=$1 AND q.status='pending' AND q.created_at BETWEEN $2 AND $3)
    `
	var used int
	err := r.DB.QueryRowContext(ctx, query, accountID, from, to).Scan(&used)
	return used, err
}

var _ quota.Store = (*UsageRepository)(nil)

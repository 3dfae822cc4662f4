package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/model"
)

// ContactRepositoryInterface is the list-membership side used by batch
// dispatch.
type ContactRepositoryInterface interface {
	GetList(ctx context.Context, listID uuid.UUID) (*model.ContactList, error)
	ListSize(ctx context.Context, listID uuid.UUID) (int, error)
	// CountEligible counts list members the campaign may still select.
	CountEligible(ctx context.Context, campaignID, listID uuid.UUID) (int, error)
	// CountProcessed counts list members already queued or sent for the campaign.
	CountProcessed(ctx context.Context, campaignID, listID uuid.UUID) (int, error)
	// SampleEligible draws n eligible members uniformly at random.
	SampleEligible(ctx context.Context, campaignID, listID uuid.UUID, n int) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

// eligibleMembers selects active list members with no queued/sent
// recipient and no live queue entry for the campaign. $1 campaign, $2 list.
const eligibleMembers = `
        FROM list_members lm
        JOIN contacts c ON c.id = lm.contact_id
        WHERE lm.list_id = $2
          AND c.status = 'active'
          AND NOT EXISTS (
              SELECT 1 FROM campaign_recipients r
              WHERE r.campaign_id = $1 AND r.contact_id = c.id AND r.status IN ('queued', 'sent')
          )
          AND NOT EXISTS (
              SELECT 1 FROM queue_entries q
              JOIN campaign_recipients r ON r.id = q.recipient_id
              WHERE q.campaign_id = $1 AND r.contact_id = c.id AND q.status <> 'failed'
          )
`

func (r *ContactRepository) GetList(ctx context.Context, listID uuid.UUID) (*model.ContactList, error) {
	var l model.ContactList
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, account_id, name FROM contact_lists WHERE id=$1`, listID,
	).Scan(&l.ID, &l.AccountID, &l.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewListNotFound(listID)
		}
		return nil, err
	}
	return &l, nil
}

func (r *ContactRepository) ListSize(ctx context.Context, listID uuid.UUID) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM list_members WHERE list_id=$1`, listID).Scan(&n)
	return n, err
}

func (r *ContactRepository) CountEligible(ctx context.Context, campaignID, listID uuid.UUID) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*)`+eligibleMembers, campaignID, listID).Scan(&n)
	return n, err
}

func (r *ContactRepository) CountProcessed(ctx context.Context, campaignID, listID uuid.UUID) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM list_members lm
        JOIN campaign_recipients r ON r.contact_id = lm.contact_id
        WHERE lm.list_id = $2 AND r.campaign_id = $1 AND r.status IN ('queued', 'sent')
    `
	var n int
	err := r.DB.QueryRowContext(ctx, query, campaignID, listID).Scan(&n)
	return n, err
}

func (r *ContactRepository) SampleEligible(ctx context.Context, campaignID, listID uuid.UUID, n int) ([]model.Contact, error) {
	query := `SELECT c.id, c.account_id, c.email, c.status` + eligibleMembers + `ORDER BY random() LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, campaignID, listID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]model.Contact, 0, n)
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Email, &c.Status); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)

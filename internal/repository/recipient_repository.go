package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/unclebandit/mailer-backend/internal/model"
)

type RecipientRepositoryInterface interface {
	// UpsertAudience creates a pending recipient for every active contact in
	// the target list, or in the whole account when listID is nil. Existing
	// rows are left untouched. It returns the number of rows created.
	UpsertAudience(ctx context.Context, campaignID, accountID uuid.UUID, listID *uuid.UUID) (int, error)
	// CountPending counts pending recipients whose contact is still active.
	CountPending(ctx context.Context, campaignID uuid.UUID) (int, error)
	// PendingPage returns pending recipients with id > afterID in id order,
	// whatever their contact's status.
	PendingPage(ctx context.Context, campaignID, afterID uuid.UUID, limit int) ([]model.RecipientTarget, error)
	// MarkFailed sets each recipient to error with its own reason.
	MarkFailed(ctx context.Context, failures []model.RecipientFailure) error
	// UpsertForContacts ensures a recipient row exists per contact and
	// returns contact id -> recipient id.
	UpsertForContacts(ctx context.Context, campaignID uuid.UUID, contactIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error)
}

type RecipientRepository struct {
	DB *sql.DB
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *RecipientRepository) UpsertAudience(ctx context.Context, campaignID, accountID uuid.UUID, listID *uuid.UUID) (int, error) {
	query := `
        INSERT INTO campaign_recipients (campaign_id, contact_id, status)
        SELECT $1, c.id, 'pending'
        FROM contacts c
        WHERE c.account_id = $2
          AND c.status = 'active'
          AND ($3::uuid IS NULL OR EXISTS (
              SELECT 1 FROM list_members lm WHERE lm.list_id = $3 AND lm.contact_id = c.id
          ))
        ON CONFLICT (campaign_id, contact_id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, query, campaignID, accountID, listID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *RecipientRepository) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM campaign_recipients r
        JOIN contacts c ON c.id = r.contact_id
        WHERE r.campaign_id=$1 AND r.status='pending' AND c.status='active'
    `
	var n int
	err := r.DB.QueryRowContext(ctx, query, campaignID).Scan(&n)
	return n, err
}

func (r *RecipientRepository) PendingPage(ctx context.Context, campaignID, afterID uuid.UUID, limit int) ([]model.RecipientTarget, error) {
	query := `
        SELECT r.id, r.contact_id, c.email, c.status
        FROM campaign_recipients r
        JOIN contacts c ON c.id = r.contact_id
        WHERE r.campaign_id=$1 AND r.status='pending' AND r.id > $2
        ORDER BY r.id
        LIMIT $3
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]model.RecipientTarget, 0, limit)
	for rows.Next() {
		var t model.RecipientTarget
		if err := rows.Scan(&t.RecipientID, &t.ContactID, &t.Email, &t.ContactStatus); err != nil {
			return nil, err
		}
		page = append(page, t)
	}
	return page, rows.Err()
}

func (r *RecipientRepository) MarkFailed(ctx context.Context, failures []model.RecipientFailure) error {
	if len(failures) == 0 {
		return nil
	}
	ids := make([]string, len(failures))
	reasons := make([]string, len(failures))
	for i, f := range failures {
		ids[i] = f.RecipientID.String()
		reasons[i] = f.Reason
	}

	query := `
        UPDATE campaign_recipients AS r
        SET status='error', last_error=f.reason, updated_at=NOW()
        FROM UNNEST($1::uuid[], $2::text[]) AS f(id, reason)
        WHERE r.id = f.id
    `
	if _, err := r.DB.ExecContext(ctx, query, pq.Array(ids), pq.Array(reasons)); err != nil {
		return fmt.Errorf("mark %d recipients failed: %w", len(failures), err)
	}
	return nil
}

func (r *RecipientRepository) UpsertForContacts(ctx context.Context, campaignID uuid.UUID, contactIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	out := make(map[uuid.UUID]uuid.UUID, len(contactIDs))
	if len(contactIDs) == 0 {
		return out, nil
	}

	query := `
        INSERT INTO campaign_recipients (campaign_id, contact_id, status)
        SELECT $1, UNNEST($2::uuid[]), 'pending'
        ON CONFLICT (campaign_id, contact_id) DO UPDATE SET updated_at = NOW()
        RETURNING id, contact_id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID, pq.Array(idStrings(contactIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var recipientID, contactID uuid.UUID
		if err := rows.Scan(&recipientID, &contactID); err != nil {
			return nil, err
		}
		out[contactID] = recipientID
	}
	return out, rows.Err()
}

func (r *RecipientRepository) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	return countByStatus(ctx, r.DB,
		`SELECT status, COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 GROUP BY status`,
		campaignID,
		model.RecipientPending, model.RecipientQueued, model.RecipientSent, model.RecipientError,
	)
}

// countByStatus runs a (status, count) grouping and zero-fills the given keys.
func countByStatus[S ~string](ctx context.Context, db *sql.DB, query string, id uuid.UUID, keys ...S) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int, len(keys))
	for _, k := range keys {
		stats[string(k)] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)

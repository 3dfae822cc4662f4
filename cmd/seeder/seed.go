package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	seedContacts int
	seedQuota    int
	seedDomain   string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo account with a list, contacts and a draft campaign",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().IntVarP(&seedContacts, "contacts", "n", 100, "Number of contacts to create")
	seedCmd.Flags().IntVar(&seedQuota, "quota", 50000, "Monthly email allowance of the demo plan")
	seedCmd.Flags().StringVar(&seedDomain, "domain", "firm.com", "Domain of the generated contact addresses")
}

type seeded struct {
	AccountID  uuid.UUID
	ListID     uuid.UUID
	CampaignID uuid.UUID
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedContacts <= 0 {
		return fmt.Errorf("--contacts must be > 0")
	}

	ctx := cmd.Context()
	conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	out, err := seed(ctx, tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	fmt.Printf("Seeded %d contacts\n", seedContacts)
	fmt.Printf("  account:  %s\n", out.AccountID)
	fmt.Printf("  list:     %s\n", out.ListID)
	fmt.Printf("  campaign: %s\n", out.CampaignID)
	return nil
}

func seed(ctx context.Context, tx *sql.Tx) (seeded, error) {
	var out seeded
	var orgID uuid.UUID

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO organizations (name) VALUES ('Demo Org') RETURNING id`,
	).Scan(&orgID); err != nil {
		return out, fmt.Errorf("insert organization: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO subscriptions (organization_id, plan_name, base_emails) VALUES ($1, 'demo', $2)`,
		orgID, seedQuota,
	); err != nil {
		return out, fmt.Errorf("insert subscription: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO accounts (organization_id, email) VALUES ($1, $2) RETURNING id`,
		orgID, "owner+"+uuid.NewString()[:8]+"@"+seedDomain,
	).Scan(&out.AccountID); err != nil {
		return out, fmt.Errorf("insert account: %w", err)
	}
	if err := tx.QueryRowContext(ctx,
		`INSERT INTO contact_lists (account_id, name) VALUES ($1, 'Newsletter') RETURNING id`,
		out.AccountID,
	).Scan(&out.ListID); err != nil {
		return out, fmt.Errorf("insert list: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO contacts (account_id, email)
        SELECT $1, 'contact' || g || '@' || $2 FROM generate_series(1, $3) AS g`,
		out.AccountID, seedDomain, seedContacts,
	); err != nil {
		return out, fmt.Errorf("insert contacts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO list_members (list_id, contact_id)
        SELECT $1, id FROM contacts WHERE account_id = $2`,
		out.ListID, out.AccountID,
	); err != nil {
		return out, fmt.Errorf("insert list members: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `
        INSERT INTO campaigns (account_id, name, from_name, from_email, subject, html_body, list_id)
        VALUES ($1, 'Welcome', 'Demo', $2, 'Hello {{ email }}',
                '<html><body><p>Hi {{ email }}, thanks for joining {{ list_name }}.</p><a href="https://'||$3||'">Visit us</a></body></html>',
                $4)
        RETURNING id`,
		out.AccountID, "news@"+seedDomain, seedDomain, out.ListID,
	).Scan(&out.CampaignID); err != nil {
		return out, fmt.Errorf("insert campaign: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO campaign_recipients (campaign_id, contact_id)
        SELECT $1, contact_id FROM list_members WHERE list_id = $2`,
		out.CampaignID, out.ListID,
	); err != nil {
		return out, fmt.Errorf("insert recipients: %w", err)
	}
	return out, nil
}

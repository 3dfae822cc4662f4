// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignPending   CampaignStatus = "pending"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignError     CampaignStatus = "error"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Dispatchable reports whether a full dispatch may still be started for the
// campaign.
func (s CampaignStatus) Dispatchable() bool {
	switch s {
	case CampaignDraft, CampaignPending, CampaignSending, CampaignError:
		return true
	}
	return false
}

// BatchDispatchable also admits sent campaigns: every earlier batch may have
// been delivered while the list still holds unselected contacts.
func (s CampaignStatus) BatchDispatchable() bool {
	return s == CampaignSent || s.Dispatchable()
}

type Campaign struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	AccountID  uuid.UUID      `db:"account_id" json:"account_id"`
	Name       string         `db:"name" json:"name"`
	FromName   string         `db:"from_name" json:"from_name"`
	FromEmail  string         `db:"from_email" json:"from_email"`
	Subject    string         `db:"subject" json:"subject"`
	HTMLBody   string         `db:"html_body" json:"html_body"`
	ListID     *uuid.UUID     `db:"list_id" json:"list_id,omitempty"`
	Status     CampaignStatus `db:"status" json:"status"`
	SentCount  int            `db:"sent_count" json:"sent_count"`
	BatchCount int            `db:"batch_count" json:"batch_count"`
	SentAt     *time.Time     `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// internal/model/recipient.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientQueued  RecipientStatus = "queued"
	RecipientSent    RecipientStatus = "sent"
	RecipientError   RecipientStatus = "error"
)

// Recipient is the campaign-scoped delivery state of one contact.
// There is at most one row per (CampaignID, ContactID).
type Recipient struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	CampaignID     uuid.UUID       `db:"campaign_id" json:"campaign_id"`
	ContactID      uuid.UUID       `db:"contact_id" json:"contact_id"`
	Status         RecipientStatus `db:"status" json:"status"`
	LastError      string          `db:"last_error" json:"last_error,omitempty"`
	Opened         bool            `db:"opened" json:"opened"`
	OpenedAt       *time.Time      `db:"opened_at" json:"opened_at,omitempty"`
	Clicked        bool            `db:"clicked" json:"clicked"`
	ClickedAt      *time.Time      `db:"clicked_at" json:"clicked_at,omitempty"`
	Unsubscribed   bool            `db:"unsubscribed" json:"unsubscribed"`
	UnsubscribedAt *time.Time      `db:"unsubscribed_at" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// RecipientTarget is a recipient joined with the contact address it resolves to.
// It is the only shape the dispatch pipeline works on.
type RecipientTarget struct {
	RecipientID   uuid.UUID
	ContactID     uuid.UUID
	Email         string
	ContactStatus ContactStatus
}

// RecipientFailure is a per-item rejection recorded against a recipient.
type RecipientFailure struct {
	RecipientID uuid.UUID
	Reason      string
}

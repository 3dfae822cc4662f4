// internal/model/queue_entry.go
package model

import (
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueuePending QueueStatus = "pending"
	QueueSent    QueueStatus = "sent"
	QueueFailed  QueueStatus = "failed"
)

// QueueEntry is a fully resolved send job handed to the delivery worker.
type QueueEntry struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	CampaignID  uuid.UUID   `db:"campaign_id" json:"campaign_id"`
	RecipientID uuid.UUID   `db:"recipient_id" json:"recipient_id"`
	ToEmail     string      `db:"to_email" json:"to_email"`
	FromEmail   string      `db:"from_email" json:"from_email"`
	FromName    string      `db:"from_name" json:"from_name"`
	Subject     string      `db:"subject" json:"subject"`
	HTML        string      `db:"html" json:"html"`
	Status      QueueStatus `db:"status" json:"status"`
	Attempts    int         `db:"attempts" json:"attempts"`
	BatchNumber *int        `db:"batch_number" json:"batch_number,omitempty"`
	LastError   string      `db:"last_error" json:"last_error,omitempty"`
	MessageID   string      `db:"message_id" json:"message_id,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// DispatchJob is the hand-off notification published after a sub-batch of
// queue entries is stored.
type DispatchJob struct {
	CampaignID    uuid.UUID   `json:"campaign_id"`
	BatchNumber   *int        `json:"batch_number,omitempty"`
	QueueEntryIDs []uuid.UUID `json:"queue_entry_ids"`
}

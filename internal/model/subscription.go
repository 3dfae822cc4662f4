// internal/model/subscription.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is an organization's plan allowance for a billing period.
type Subscription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	PlanName       string     `db:"plan_name" json:"plan_name"`
	BaseEmails     int        `db:"base_emails" json:"base_emails"`
	AddonEmails    int        `db:"addon_emails" json:"addon_emails"`
	Status         string     `db:"status" json:"status"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	EndsAt         *time.Time `db:"ends_at" json:"ends_at,omitempty"`
}

// Limit is the monthly send allowance including purchased add-ons.
func (s *Subscription) Limit() int {
	return s.BaseEmails + s.AddonEmails
}

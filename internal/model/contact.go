// internal/model/contact.go
package model

import "github.com/google/uuid"

type ContactStatus string

const (
	ContactActive       ContactStatus = "active"
	ContactUnsubscribed ContactStatus = "unsubscribed"
	ContactError        ContactStatus = "error"
)

type Contact struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	AccountID uuid.UUID     `db:"account_id" json:"account_id"`
	Email     string        `db:"email" json:"email"`
	Status    ContactStatus `db:"status" json:"status"`
}

type ContactList struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AccountID uuid.UUID `db:"account_id" json:"account_id"`
	Name      string    `db:"name" json:"name"`
}

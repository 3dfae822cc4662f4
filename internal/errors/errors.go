// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// match on the class with errors.Is and on the details with errors.As.
var (
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrNoEligibleRecipients   = errors.New("no eligible recipients")
	ErrNotDispatchable        = errors.New("campaign cannot be dispatched")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrInsufficientContacts   = errors.New("insufficient remaining contacts")
	ErrInvalidVolume          = errors.New("invalid batch volume")
	ErrDispatchInProgress     = errors.New("dispatch already in progress for account")
	ErrTransportConfigMissing = errors.New("mail transport is not configured")
	ErrPartialInsertFailure   = errors.New("queue insert failed for sub-batch")
	ErrEmptyTemplate          = errors.New("template cannot be empty")
)

// ErrCampaignNotFound is returned when a campaign id does not resolve.
type ErrCampaignNotFound struct {
	CampaignID uuid.UUID
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

func (e *ErrCampaignNotFound) Unwrap() error { return ErrNotFound }

// Helper constructor
func NewCampaignNotFound(id uuid.UUID) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrListNotFound is returned when a contact list id does not resolve.
type ErrListNotFound struct {
	ListID uuid.UUID
}

func (e *ErrListNotFound) Error() string {
	return fmt.Sprintf("list with ID %s not found", e.ListID)
}

func (e *ErrListNotFound) Unwrap() error { return ErrNotFound }

func NewListNotFound(id uuid.UUID) error {
	return &ErrListNotFound{ListID: id}
}

// QuotaExceededError carries the ledger figures that rejected the request.
type QuotaExceededError struct {
	Limit     int
	Used      int
	Remaining int
	Requested int
	Reason    string
}

func (e *QuotaExceededError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("requested %d emails but only %d of %d remain this month", e.Requested, e.Remaining, e.Limit)
}

func (e *QuotaExceededError) Unwrap() error { return ErrQuotaExceeded }

// InsufficientContactsError is returned by batch dispatch when the list has
// fewer eligible contacts than the requested volume.
type InsufficientContactsError struct {
	Requested int
	Available int
}

func (e *InsufficientContactsError) Error() string {
	return fmt.Sprintf("requested %d contacts but only %d remain eligible", e.Requested, e.Available)
}

func (e *InsufficientContactsError) Unwrap() error { return ErrInsufficientContacts }

// PartialInsertError records one failed queue sub-batch. It is collected into
// the dispatch result, never returned as the call's error.
type PartialInsertError struct {
	SubBatch   int
	Recipients int
	Err        error
}

func (e *PartialInsertError) Error() string {
	return fmt.Sprintf("sub-batch %d (%d recipients): %v", e.SubBatch, e.Recipients, e.Err)
}

func (e *PartialInsertError) Unwrap() []error { return []error{ErrPartialInsertFailure, e.Err} }

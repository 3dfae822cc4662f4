package service

import (
	"context"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/repository"
)

// BatchVolumes is the fixed menu of batch sizes.
var BatchVolumes = []int{10000, 15000, 20000, 25000, 30000, 50000}

func ValidVolume(v int) bool {
	for _, allowed := range BatchVolumes {
		if v == allowed {
			return true
		}
	}
	return false
}

// Selector picks the recipients a dispatch works on.
type Selector struct {
	Recipients repository.RecipientRepositoryInterface
	Contacts   repository.ContactRepositoryInterface
	PageSize   int
}

func (s *Selector) pageSize() int {
	if s.PageSize <= 0 {
		return 1000
	}
	return s.PageSize
}

func (s *Selector) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	return s.Recipients.CountPending(ctx, campaignID)
}

// NextPage returns the next page of pending recipients after afterID.
// An empty page means the campaign is exhausted.
func (s *Selector) NextPage(ctx context.Context, campaignID, afterID uuid.UUID) ([]model.RecipientTarget, error) {
	return s.Recipients.PendingPage(ctx, campaignID, afterID, s.pageSize())
}

// Sample draws volume eligible contacts from the list, or fails with the
// number actually available. It never mutates.
func (s *Selector) Sample(ctx context.Context, campaignID, listID uuid.UUID, volume int) ([]model.Contact, error) {
	available, err := s.Contacts.CountEligible(ctx, campaignID, listID)
	if err != nil {
		return nil, err
	}
	if available < volume {
		return nil, &appErrors.InsufficientContactsError{Requested: volume, Available: available}
	}

	contacts, err := s.Contacts.SampleEligible(ctx, campaignID, listID, volume)
	if err != nil {
		return nil, err
	}
	// membership can shrink between the count and the draw
	if len(contacts) < volume {
		return nil, &appErrors.InsufficientContactsError{Requested: volume, Available: len(contacts)}
	}
	return contacts, nil
}

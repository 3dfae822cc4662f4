// Package quota computes an account's remaining monthly send allowance.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/mailer-backend/internal/model"
)

// Store is the read side of the subscription and usage records.
type Store interface {
	// OrganizationForAccount returns ok=false when the account has no organization.
	OrganizationForAccount(ctx context.Context, accountID uuid.UUID) (orgID uuid.UUID, ok bool, err error)
	// ActiveSubscription returns the most recently started active
	// subscription, or nil when there is none.
	ActiveSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error)
	// SentInPeriod returns the emails counted against the account between
	// from and to, both inclusive.
	SentInPeriod(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error)
}

type Result struct {
	Allowed   bool   `json:"allowed"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

type Reader struct {
	store Store
	// Now is the clock used to pick the billing period.
	Now func() time.Time
}

func NewReader(store Store) *Reader {
	return &Reader{store: store, Now: time.Now}
}

// Period returns the first and last moment of t's calendar month in UTC.
func Period(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return from, to
}

// Remaining reports whether requested more emails fit in the account's
// allowance for the current month. Store failures are returned as errors;
// every other rejection is a Result with Allowed=false.
func (r *Reader) Remaining(ctx context.Context, accountID uuid.UUID, requested int) (Result, error) {
	orgID, ok, err := r.store.OrganizationForAccount(ctx, accountID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve organization: %w", err)
	}
	if !ok {
		return Result{Reason: "account is not linked to an organization"}, nil
	}

	sub, err := r.store.ActiveSubscription(ctx, orgID)
	if err != nil {
		return Result{}, fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		return Result{Reason: "organization has no active subscription"}, nil
	}

	from, to := Period(r.Now())
	used, err := r.store.SentInPeriod(ctx, accountID, from, to)
	if err != nil {
		return Result{}, fmt.Errorf("load usage: %w", err)
	}

	res := Result{
		Limit:     sub.Limit(),
		Used:      used,
		Remaining: max(0, sub.Limit()-used),
	}
	if requested > res.Remaining {
		res.Reason = fmt.Sprintf("requested %d emails but only %d of %d remain this month",
			requested, res.Remaining, res.Limit)
		return res, nil
	}
	res.Allowed = true
	return res, nil
}

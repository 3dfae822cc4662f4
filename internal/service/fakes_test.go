package service_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/queue"
	"github.com/unclebandit/mailer-backend/internal/repository"
	"github.com/unclebandit/mailer-backend/internal/transport"
)

// seqID returns ids that sort in creation order.
func seqID(prefix byte, n int) uuid.UUID {
	var id uuid.UUID
	id[0] = prefix
	binary.BigEndian.PutUint64(id[8:], uint64(n))
	return id
}

type recipientRow struct {
	model.Recipient
}

var _ queue.Queue = (*fakeNotifier)(nil)

// memStore is an in-memory stand-in for the Postgres tables.
type memStore struct {
	mu sync.Mutex

	campaigns  map[uuid.UUID]*model.Campaign
	recipients map[uuid.UUID]*recipientRow
	byContact  map[uuid.UUID]map[uuid.UUID]*recipientRow
	contacts   map[uuid.UUID]model.Contact
	lists      map[uuid.UUID]model.ContactList
	members    map[uuid.UUID][]uuid.UUID
	entries    map[uuid.UUID]*model.QueueEntry
	order      []uuid.UUID

	nextRecipient int
	enqueueCalls  int
	// failEnqueue makes the n-th EnqueueBatch call (1-based) fail.
	failEnqueue map[int]error
	markFailed  int
}

func newMemStore() *memStore {
	return &memStore{
		campaigns:   map[uuid.UUID]*model.Campaign{},
		recipients:  map[uuid.UUID]*recipientRow{},
		byContact:   map[uuid.UUID]map[uuid.UUID]*recipientRow{},
		contacts:    map[uuid.UUID]model.Contact{},
		lists:       map[uuid.UUID]model.ContactList{},
		members:     map[uuid.UUID][]uuid.UUID{},
		entries:     map[uuid.UUID]*model.QueueEntry{},
		failEnqueue: map[int]error{},
	}
}

func (m *memStore) addCampaign(c model.Campaign) *model.Campaign {
	m.campaigns[c.ID] = &c
	return &c
}

func (m *memStore) addList(accountID uuid.UUID, name string) uuid.UUID {
	id := uuid.New()
	m.lists[id] = model.ContactList{ID: id, AccountID: accountID, Name: name}
	return id
}

func (m *memStore) addContact(listID uuid.UUID, email string) uuid.UUID {
	id := seqID(0xc0, len(m.contacts)+1)
	m.contacts[id] = model.Contact{ID: id, Email: email, Status: model.ContactActive}
	m.members[listID] = append(m.members[listID], id)
	return id
}

// addAccountContact adds a contact owned by accountID, optionally as a member
// of listID.
func (m *memStore) addAccountContact(accountID uuid.UUID, listID *uuid.UUID, email string, status model.ContactStatus) uuid.UUID {
	id := seqID(0xc0, len(m.contacts)+1)
	m.contacts[id] = model.Contact{ID: id, AccountID: accountID, Email: email, Status: status}
	if listID != nil {
		m.members[*listID] = append(m.members[*listID], id)
	}
	return id
}

// addRecipient adds a contact plus a pending recipient for the campaign.
func (m *memStore) addRecipient(campaignID uuid.UUID, email string) uuid.UUID {
	contactID := seqID(0xc0, len(m.contacts)+1)
	m.contacts[contactID] = model.Contact{ID: contactID, Email: email, Status: model.ContactActive}
	return m.newRecipient(campaignID, contactID).ID
}

func (m *memStore) newRecipient(campaignID, contactID uuid.UUID) *recipientRow {
	m.nextRecipient++
	r := &recipientRow{model.Recipient{
		ID:         seqID(0xa0, m.nextRecipient),
		CampaignID: campaignID,
		ContactID:  contactID,
		Status:     model.RecipientPending,
	}}
	m.recipients[r.ID] = r
	if m.byContact[campaignID] == nil {
		m.byContact[campaignID] = map[uuid.UUID]*recipientRow{}
	}
	m.byContact[campaignID][contactID] = r
	return r
}

func (m *memStore) recipient(id uuid.UUID) model.Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recipients[id].Recipient
}

func (m *memStore) campaign(id uuid.UUID) model.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.campaigns[id]
}

func (m *memStore) queueEntries() []model.QueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.QueueEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.entries[id])
	}
	return out
}

func (m *memStore) eligible(campaignID, listID uuid.UUID) []model.Contact {
	busy := map[uuid.UUID]bool{}
	for _, e := range m.entries {
		if e.CampaignID == campaignID && e.Status != model.QueueFailed {
			busy[e.RecipientID] = true
		}
	}
	var out []model.Contact
	for _, cid := range m.members[listID] {
		c := m.contacts[cid]
		if c.Status != model.ContactActive {
			continue
		}
		if r, ok := m.byContact[campaignID][cid]; ok {
			if r.Status == model.RecipientQueued || r.Status == model.RecipientSent || busy[r.ID] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

type campaignRepo struct{ *memStore }

func (r campaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r campaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (r campaignRepo) NextBatchNumber(ctx context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.campaigns[id]
	c.BatchCount++
	return c.BatchCount, nil
}

func (r campaignRepo) CompleteIfDrained(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.campaigns[id]
	if c.Status != model.CampaignSending {
		return false, nil
	}
	for _, e := range r.entries {
		if e.CampaignID == id && e.Status == model.QueuePending {
			return false, nil
		}
	}
	c.Status = model.CampaignSent
	return true, nil
}

type recipientRepo struct{ *memStore }

func (r recipientRepo) UpsertAudience(ctx context.Context, campaignID, accountID uuid.UUID, listID *uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []uuid.UUID
	if listID != nil {
		candidates = r.members[*listID]
	} else {
		for id := range r.contacts {
			candidates = append(candidates, id)
		}
		sort.Slice(candidates, func(i, j int) bool { return bytes.Compare(candidates[i][:], candidates[j][:]) < 0 })
	}

	created := 0
	for _, cid := range candidates {
		c := r.contacts[cid]
		if c.AccountID != accountID || c.Status != model.ContactActive {
			continue
		}
		if _, ok := r.byContact[campaignID][cid]; ok {
			continue
		}
		r.newRecipient(campaignID, cid)
		created++
	}
	return created, nil
}

func (r recipientRepo) CountPending(ctx context.Context, campaignID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending &&
			r.contacts[rec.ContactID].Status == model.ContactActive {
			n++
		}
	}
	return n, nil
}

func (r recipientRepo) PendingPage(ctx context.Context, campaignID, afterID uuid.UUID, limit int) ([]model.RecipientTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var rows []*recipientRow
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID && rec.Status == model.RecipientPending && bytes.Compare(rec.ID[:], afterID[:]) > 0 {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) < 0 })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]model.RecipientTarget, len(rows))
	for i, rec := range rows {
		c := r.contacts[rec.ContactID]
		out[i] = model.RecipientTarget{RecipientID: rec.ID, ContactID: rec.ContactID, Email: c.Email, ContactStatus: c.Status}
	}
	return out, nil
}

func (r recipientRepo) MarkFailed(ctx context.Context, failures []model.RecipientFailure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markFailed++
	for _, f := range failures {
		rec := r.recipients[f.RecipientID]
		rec.Status = model.RecipientError
		rec.LastError = f.Reason
	}
	return nil
}

func (r recipientRepo) UpsertForContacts(ctx context.Context, campaignID uuid.UUID, contactIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(contactIDs))
	for _, cid := range contactIDs {
		rec, ok := r.byContact[campaignID][cid]
		if !ok {
			rec = r.newRecipient(campaignID, cid)
		}
		out[cid] = rec.ID
	}
	return out, nil
}

func (r recipientRepo) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{"pending": 0, "queued": 0, "sent": 0, "error": 0}
	for _, rec := range r.recipients {
		if rec.CampaignID == campaignID {
			out[string(rec.Status)]++
		}
	}
	return out, nil
}

type contactRepo struct{ *memStore }

func (r contactRepo) GetList(ctx context.Context, listID uuid.UUID) (*model.ContactList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lists[listID]
	if !ok {
		return nil, appErrors.NewListNotFound(listID)
	}
	return &l, nil
}

func (r contactRepo) ListSize(ctx context.Context, listID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members[listID]), nil
}

func (r contactRepo) CountEligible(ctx context.Context, campaignID, listID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.eligible(campaignID, listID)), nil
}

func (r contactRepo) CountProcessed(ctx context.Context, campaignID, listID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cid := range r.members[listID] {
		if rec, ok := r.byContact[campaignID][cid]; ok &&
			(rec.Status == model.RecipientQueued || rec.Status == model.RecipientSent) {
			n++
		}
	}
	return n, nil
}

func (r contactRepo) SampleEligible(ctx context.Context, campaignID, listID uuid.UUID, n int) ([]model.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.eligible(campaignID, listID)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

type queueRepo struct{ *memStore }

func (r queueRepo) EnqueueBatch(ctx context.Context, entries []model.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueueCalls++
	if err := r.failEnqueue[r.enqueueCalls]; err != nil {
		return err
	}
	for _, e := range entries {
		e := e
		r.entries[e.ID] = &e
		r.order = append(r.order, e.ID)
		r.recipients[e.RecipientID].Status = model.RecipientQueued
	}
	return nil
}

func (r queueRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, repository.ErrQueueEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (r queueRepo) MarkDelivered(ctx context.Context, id uuid.UUID, messageID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	e.Status = model.QueueSent
	e.MessageID = messageID
	e.Attempts++
	r.recipients[e.RecipientID].Status = model.RecipientSent
	c := r.campaigns[e.CampaignID]
	c.SentCount++
	if c.SentAt == nil {
		c.SentAt = &at
	}
	return nil
}

func (r queueRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) (model.QueueStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[id]
	e.Attempts++
	e.LastError = reason
	if e.Attempts >= maxAttempts {
		e.Status = model.QueueFailed
		rec := r.recipients[e.RecipientID]
		rec.Status = model.RecipientError
		rec.LastError = reason
	}
	return e.Status, nil
}

func (r queueRepo) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{"pending": 0, "sent": 0, "failed": 0}
	for _, e := range r.entries {
		if e.CampaignID == campaignID {
			out[string(e.Status)]++
		}
	}
	return out, nil
}

var (
	_ repository.CampaignRepositoryInterface  = campaignRepo{}
	_ repository.RecipientRepositoryInterface = recipientRepo{}
	_ repository.ContactRepositoryInterface   = contactRepo{}
	_ repository.QueueRepositoryInterface     = queueRepo{}
)

// usageStore feeds the real quota reader a fixed subscription.
type usageStore struct {
	limit int
	used  int
}

func (u usageStore) OrganizationForAccount(ctx context.Context, accountID uuid.UUID) (uuid.UUID, bool, error) {
	return uuid.New(), true, nil
}

func (u usageStore) ActiveSubscription(ctx context.Context, orgID uuid.UUID) (*model.Subscription, error) {
	return &model.Subscription{OrganizationID: orgID, PlanName: "test", BaseEmails: u.limit, Status: "active"}, nil
}

func (u usageStore) SentInPeriod(ctx context.Context, accountID uuid.UUID, from, to time.Time) (int, error) {
	return u.used, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []transport.Message
	err  error
}

func (f *fakeSender) Send(ctx context.Context, msg transport.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + msg.To, nil
}

type published struct {
	topic string
	body  []byte
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeNotifier) Publish(ctx context.Context, topic string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, body: body})
	return nil
}

func (f *fakeNotifier) Subscribe(ctx context.Context, topic string, handler queue.Handler) error {
	return nil
}

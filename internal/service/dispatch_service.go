package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/lock"
	"github.com/unclebandit/mailer-backend/internal/logger"
	"github.com/unclebandit/mailer-backend/internal/metrics"
	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/queue"
	"github.com/unclebandit/mailer-backend/internal/quota"
	"github.com/unclebandit/mailer-backend/internal/repository"
	"github.com/unclebandit/mailer-backend/internal/tracking"
	"github.com/unclebandit/mailer-backend/internal/transport"
	"github.com/unclebandit/mailer-backend/internal/validator"
)

const (
	modeFull  = "full"
	modeBatch = "batch"
	modeTest  = "test"
)

// QuotaReader is the quota ledger as seen by dispatch.
type QuotaReader interface {
	Remaining(ctx context.Context, accountID uuid.UUID, requested int) (quota.Result, error)
}

type DispatchOptions struct {
	SubBatchSize int
	StoreTimeout time.Duration
}

// DispatchService turns campaigns into queue entries.
type DispatchService struct {
	Campaigns  repository.CampaignRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Contacts   repository.ContactRepositoryInterface
	Queue      repository.QueueRepositoryInterface
	Quota      QuotaReader
	Selector   *Selector
	Tracker    *tracking.Rewriter
	Templates  *TemplateService
	BounceRisk validator.BounceRiskChecker
	Transport  transport.Sender
	Notifier   queue.Queue
	Topic      string
	Locker     lock.Locker
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	Options    DispatchOptions

	// NewID generates queue entry ids.
	NewID func() uuid.UUID
	Now   func() time.Time
}

type QuotaSnapshot struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type DispatchStats struct {
	Queued         int `json:"queued"`
	Failed         int `json:"failed"`
	Total          int `json:"total"`
	InvalidEmails  int `json:"invalidEmails"`
	BounceWarnings int `json:"bounceWarnings"`
}

type DispatchResult struct {
	CampaignID uuid.UUID                      `json:"campaignId"`
	Status     model.CampaignStatus           `json:"status"`
	Stats      DispatchStats                  `json:"stats"`
	Quota      QuotaSnapshot                  `json:"quota"`
	Warnings   []string                       `json:"warnings,omitempty"`
	Partial    []*appErrors.PartialInsertError `json:"-"`
}

type BatchRequest struct {
	CampaignID uuid.UUID
	ListID     uuid.UUID
	Volume     int
}

type BatchSummary struct {
	TotalContacts int `json:"totalContacts"`
	AlreadySent   int `json:"alreadySent"`
	BatchSent     int `json:"batchSent"`
	Remaining     int `json:"remaining"`
	BatchNumber   int `json:"batchNumber"`
}

type BatchResult struct {
	DispatchResult
	Summary BatchSummary `json:"summary"`
}

// DispatchFull queues every pending recipient of the campaign.
func (s *DispatchService) DispatchFull(ctx context.Context, accountID, campaignID uuid.UUID) (res *DispatchResult, err error) {
	start := time.Now()
	defer func() { s.observe(modeFull, start, err) }()

	if err := s.checkTransport(); err != nil {
		return nil, err
	}

	held, err := s.acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, accountID, held)

	campaign, err := s.loadOwned(ctx, modeFull, accountID, campaignID)
	if err != nil {
		return nil, err
	}

	created, err := s.withStore(ctx, func(sctx context.Context) (int, error) {
		return s.Recipients.UpsertAudience(sctx, campaign.ID, accountID, campaign.ListID)
	})
	if err != nil {
		return nil, fmt.Errorf("create recipients: %w", err)
	}
	if created > 0 {
		s.Log.Debug().Str("campaign_id", campaign.ID.String()).Int("created", created).Msg("recipients created from audience")
	}

	pending, err := s.withStore(ctx, func(sctx context.Context) (int, error) {
		return s.Selector.CountPending(sctx, campaign.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("count pending recipients: %w", err)
	}
	if pending == 0 {
		return nil, appErrors.ErrNoEligibleRecipients
	}

	q, err := s.gate(ctx, modeFull, accountID, pending)
	if err != nil {
		return nil, err
	}

	listName := ""
	if campaign.ListID != nil {
		if list, lerr := s.getList(ctx, *campaign.ListID); lerr == nil {
			listName = list.Name
		}
	}

	run := s.newRun(campaign, listName, q, nil)
	run.lock = held

	afterID := uuid.Nil
	for run.budget > 0 {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, run, err)
		}
		if err := s.keepAlive(ctx, run); err != nil {
			return s.abort(ctx, run, err)
		}
		sctx, cancel := s.storeContext(ctx)
		page, err := s.Selector.NextPage(sctx, campaign.ID, afterID)
		cancel()
		if err != nil {
			return s.abort(ctx, run, fmt.Errorf("fetch recipients: %w", err))
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].RecipientID

		if err := s.process(ctx, run, page); err != nil {
			return s.abort(ctx, run, err)
		}
	}

	if err := s.finalize(ctx, run); err != nil {
		return nil, err
	}
	return run.result(), nil
}

// DispatchBatch queues a random sample of the list's still-eligible
// contacts.
func (s *DispatchService) DispatchBatch(ctx context.Context, accountID uuid.UUID, req BatchRequest) (res *BatchResult, err error) {
	start := time.Now()
	defer func() { s.observe(modeBatch, start, err) }()

	if err := s.checkTransport(); err != nil {
		return nil, err
	}
	if !ValidVolume(req.Volume) {
		return nil, fmt.Errorf("%w: %d not in %v", appErrors.ErrInvalidVolume, req.Volume, BatchVolumes)
	}

	held, err := s.acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, accountID, held)

	campaign, err := s.loadOwned(ctx, modeBatch, accountID, req.CampaignID)
	if err != nil {
		return nil, err
	}
	list, err := s.getList(ctx, req.ListID)
	if err != nil {
		return nil, err
	}
	if list.AccountID != accountID {
		return nil, appErrors.ErrForbidden
	}

	sctx, cancel := s.storeContext(ctx)
	contacts, err := s.Selector.Sample(sctx, campaign.ID, list.ID, req.Volume)
	cancel()
	if err != nil {
		var short *appErrors.InsufficientContactsError
		if errors.As(err, &short) {
			s.Log.Info().
				Str("campaign_id", campaign.ID.String()).
				Int("requested", short.Requested).
				Int("available", short.Available).
				Msg("batch rejected: not enough eligible contacts")
			return nil, err
		}
		return nil, fmt.Errorf("sample contacts: %w", err)
	}

	q, err := s.gate(ctx, modeBatch, accountID, req.Volume)
	if err != nil {
		return nil, err
	}

	// gates passed; mutations start here
	batchNo, err := s.withStore(ctx, func(sctx context.Context) (int, error) {
		return s.Campaigns.NextBatchNumber(sctx, campaign.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("allocate batch number: %w", err)
	}

	contactIDs := make([]uuid.UUID, len(contacts))
	for i, c := range contacts {
		contactIDs[i] = c.ID
	}
	sctx, cancel = s.storeContext(ctx)
	recipientIDs, err := s.Recipients.UpsertForContacts(sctx, campaign.ID, contactIDs)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("upsert recipients: %w", err)
	}

	targets := make([]model.RecipientTarget, 0, len(contacts))
	for _, c := range contacts {
		rid, ok := recipientIDs[c.ID]
		if !ok {
			return nil, fmt.Errorf("upsert recipients: no row returned for contact %s", c.ID)
		}
		targets = append(targets, model.RecipientTarget{
			RecipientID:   rid,
			ContactID:     c.ID,
			Email:         c.Email,
			ContactStatus: c.Status,
		})
	}

	run := s.newRun(campaign, list.Name, q, &batchNo)
	run.lock = held

	size := s.Selector.pageSize()
	for off := 0; off < len(targets) && run.budget > 0; off += size {
		if err := ctx.Err(); err != nil {
			_, aerr := s.abort(ctx, run, err)
			return nil, aerr
		}
		if err := s.keepAlive(ctx, run); err != nil {
			_, aerr := s.abort(ctx, run, err)
			return nil, aerr
		}
		end := min(off+size, len(targets))
		if err := s.process(ctx, run, targets[off:end]); err != nil {
			_, aerr := s.abort(ctx, run, err)
			return nil, aerr
		}
	}

	if err := s.finalize(ctx, run); err != nil {
		return nil, err
	}

	summary, err := s.summarize(ctx, campaign.ID, list.ID, run.stats.Queued, batchNo)
	if err != nil {
		return nil, err
	}
	return &BatchResult{DispatchResult: *run.result(), Summary: summary}, nil
}

func (s *DispatchService) summarize(ctx context.Context, campaignID, listID uuid.UUID, sent, batchNo int) (BatchSummary, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	total, err := s.Contacts.ListSize(sctx, listID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("list size: %w", err)
	}
	processed, err := s.Contacts.CountProcessed(sctx, campaignID, listID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("count processed: %w", err)
	}
	remaining, err := s.Contacts.CountEligible(sctx, campaignID, listID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("count eligible: %w", err)
	}
	return BatchSummary{
		TotalContacts: total,
		AlreadySent:   processed,
		BatchSent:     sent,
		Remaining:     remaining,
		BatchNumber:   batchNo,
	}, nil
}

// dispatchRun carries the state of one dispatch call.
type dispatchRun struct {
	campaign *model.Campaign
	listName string
	batchNo  *int
	content  *Compiled
	lock     lock.Lock
	quota    QuotaSnapshot
	budget   int
	batches  int
	stats    DispatchStats
	warnings []string
	partial  []*appErrors.PartialInsertError
	// status is the campaign status written by finalize.
	status model.CampaignStatus
}

func (r *dispatchRun) result() *DispatchResult {
	return &DispatchResult{
		CampaignID: r.campaign.ID,
		Status:     r.status,
		Stats:      r.stats,
		Quota:      r.quota,
		Warnings:   r.warnings,
		Partial:    r.partial,
	}
}

func (s *DispatchService) newRun(c *model.Campaign, listName string, q quota.Result, batchNo *int) *dispatchRun {
	content, err := s.Templates.Compile(c.Subject, c.HTMLBody)
	run := &dispatchRun{
		campaign: c,
		listName: listName,
		batchNo:  batchNo,
		content:  content,
		quota:    QuotaSnapshot{Limit: q.Limit, Used: q.Used, Remaining: q.Remaining},
		budget:   q.Remaining,
	}
	if err != nil {
		s.Log.Warn().Err(err).Str("campaign_id", c.ID.String()).Msg("campaign content has invalid merge tags")
		run.warnings = append(run.warnings, err.Error())
	}
	return run
}

// process runs one page of recipients through validation, personalization
// and queue insertion.
func (s *DispatchService) process(ctx context.Context, run *dispatchRun, page []model.RecipientTarget) error {
	var failures []model.RecipientFailure
	var entries []model.QueueEntry

	// contacts can unsubscribe after their recipient row was created
	targets := make([]model.RecipientTarget, 0, len(page))
	var inactive int
	for _, t := range page {
		if t.ContactStatus != model.ContactActive {
			failures = append(failures, model.RecipientFailure{
				RecipientID: t.RecipientID,
				Reason:      "contact_status: " + string(t.ContactStatus),
			})
			inactive++
			continue
		}
		targets = append(targets, t)
	}

	addresses := make([]string, len(targets))
	for i, t := range targets {
		addresses[i] = t.Email
	}
	checked := validator.ValidateBatch(addresses)

	var invalid, risky int
	vi, ii := 0, 0
	for _, t := range targets {
		// partitions preserve input order, so the next invalid entry is this
		// target exactly when the addresses match
		if ii < len(checked.Invalid) && checked.Invalid[ii].Address == t.Email {
			failures = append(failures, model.RecipientFailure{
				RecipientID: t.RecipientID,
				Reason:      "invalid_email: " + string(checked.Invalid[ii].Reason),
			})
			ii++
			invalid++
			continue
		}
		email := checked.Valid[vi]
		vi++

		if risk := s.BounceRisk.Check(email); risk.Risky {
			failures = append(failures, model.RecipientFailure{
				RecipientID: t.RecipientID,
				Reason:      "bounce_risk: " + risk.Reason,
			})
			risky++
			s.Log.Debug().Str("email", logger.RedactEmail(email)).Str("reason", risk.Reason).Msg("skipping bounce-risk address")
			continue
		}

		if run.budget == 0 {
			// over quota: leave the rest pending for a later dispatch
			break
		}
		run.budget--
		entries = append(entries, s.buildEntry(run, t, email))
	}

	run.stats.InvalidEmails += invalid
	run.stats.BounceWarnings += risky
	run.stats.Total += len(failures)
	run.stats.Failed += len(failures)
	s.Metrics.AddRecipients("inactive", inactive)
	s.Metrics.AddRecipients("invalid", invalid)
	s.Metrics.AddRecipients("bounce_risk", risky)

	if len(failures) > 0 {
		sctx, cancel := s.storeContext(ctx)
		err := s.Recipients.MarkFailed(sctx, failures)
		cancel()
		if err != nil {
			return fmt.Errorf("record rejected recipients: %w", err)
		}
	}

	size := s.subBatchSize()
	for off := 0; off < len(entries); off += size {
		end := min(off+size, len(entries))
		if err := s.insert(ctx, run, entries[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *DispatchService) buildEntry(run *dispatchRun, t model.RecipientTarget, email string) model.QueueEntry {
	subject, html := run.content.Render(MergeData{
		Email:        email,
		ListName:     run.listName,
		CampaignName: run.campaign.Name,
	})
	now := s.now()
	return model.QueueEntry{
		ID:          s.newID(),
		CampaignID:  run.campaign.ID,
		RecipientID: t.RecipientID,
		ToEmail:     email,
		FromEmail:   run.campaign.FromEmail,
		FromName:    run.campaign.FromName,
		Subject:     subject,
		HTML:        s.Tracker.Personalize(t.RecipientID, html),
		Status:      model.QueuePending,
		BatchNumber: run.batchNo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// insert stores one sub-batch. A failed insert only fails its own
// recipients; the returned error is reserved for store failures that leave
// recipient state unknown.
func (s *DispatchService) insert(ctx context.Context, run *dispatchRun, entries []model.QueueEntry) error {
	run.batches++
	n := run.batches
	run.stats.Total += len(entries)

	sctx, cancel := s.storeContext(ctx)
	err := s.Queue.EnqueueBatch(sctx, entries)
	cancel()
	if err != nil {
		perr := &appErrors.PartialInsertError{SubBatch: n, Recipients: len(entries), Err: err}
		run.partial = append(run.partial, perr)
		run.warnings = append(run.warnings, perr.Error())
		run.stats.Failed += len(entries)
		s.Metrics.AddRecipients("insert_failed", len(entries))
		s.Log.Error().Err(err).
			Str("campaign_id", run.campaign.ID.String()).
			Int("sub_batch", n).
			Int("recipients", len(entries)).
			Msg("queue insert failed")

		failures := make([]model.RecipientFailure, len(entries))
		for i, e := range entries {
			failures[i] = model.RecipientFailure{RecipientID: e.RecipientID, Reason: "insert_failed: " + err.Error()}
		}
		sctx, cancel := s.storeContext(ctx)
		defer cancel()
		if ferr := s.Recipients.MarkFailed(sctx, failures); ferr != nil {
			return fmt.Errorf("record failed sub-batch %d: %w", n, ferr)
		}
		return nil
	}

	run.stats.Queued += len(entries)
	s.Metrics.AddRecipients("queued", len(entries))

	if s.Notifier == nil {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	pctx, pcancel := s.storeContext(ctx)
	defer pcancel()
	job := model.DispatchJob{CampaignID: run.campaign.ID, BatchNumber: run.batchNo, QueueEntryIDs: ids}
	if err := queue.PublishJob(pctx, s.Notifier, s.topic(), job); err != nil {
		s.Log.Warn().Err(err).
			Str("campaign_id", run.campaign.ID.String()).
			Int("sub_batch", n).
			Msg("failed to publish dispatch job")
	}
	return nil
}

// finalize sets the campaign status from what was queued. A batch that
// queued nothing keeps a campaign with earlier entries in sending.
func (s *DispatchService) finalize(ctx context.Context, run *dispatchRun) error {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	status := model.CampaignError
	if run.stats.Queued > 0 {
		status = model.CampaignSending
	} else if run.batchNo != nil {
		counts, err := s.Queue.CountByStatus(sctx, run.campaign.ID)
		if err != nil {
			return fmt.Errorf("count queue entries: %w", err)
		}
		if counts[string(model.QueuePending)]+counts[string(model.QueueSent)] > 0 {
			status = model.CampaignSending
		}
	}

	if err := s.Campaigns.UpdateStatus(sctx, run.campaign.ID, status); err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	if status == model.CampaignSending {
		// workers only settle sending campaigns, so entries delivered before
		// this point would otherwise leave it in sending for good
		done, err := s.Campaigns.CompleteIfDrained(sctx, run.campaign.ID)
		if err != nil {
			s.Log.Warn().Err(err).Str("campaign_id", run.campaign.ID.String()).Msg("failed to settle campaign")
		} else if done {
			status = model.CampaignSent
		}
	}
	run.status = status

	s.Log.Info().
		Str("campaign_id", run.campaign.ID.String()).
		Str("status", string(status)).
		Int("queued", run.stats.Queued).
		Int("failed", run.stats.Failed).
		Int("invalid", run.stats.InvalidEmails).
		Int("bounce_risk", run.stats.BounceWarnings).
		Msg("dispatch finished")
	return nil
}

// abort settles the campaign status after a fatal error and returns cause.
func (s *DispatchService) abort(ctx context.Context, run *dispatchRun, cause error) (*DispatchResult, error) {
	if err := s.finalize(ctx, run); err != nil {
		s.Log.Error().Err(err).Str("campaign_id", run.campaign.ID.String()).Msg("failed to settle campaign status")
	}
	return nil, cause
}

func (s *DispatchService) checkTransport() error {
	if s.Transport == nil || !s.Tracker.Configured() {
		return appErrors.ErrTransportConfigMissing
	}
	return nil
}

// acquire takes the account's dispatch lock. It returns a nil Lock when no
// Locker is configured.
func (s *DispatchService) acquire(ctx context.Context, accountID uuid.UUID) (lock.Lock, error) {
	if s.Locker == nil {
		return nil, nil
	}
	l, err := s.Locker.TryLock(ctx, lock.DispatchKey(accountID))
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, appErrors.ErrDispatchInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire dispatch lock: %w", err)
	}
	return l, nil
}

func (s *DispatchService) release(ctx context.Context, accountID uuid.UUID, l lock.Lock) {
	if l == nil {
		return
	}
	rctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := l.Release(rctx); err != nil {
		s.Log.Warn().Err(err).Str("account_id", accountID.String()).Msg("failed to release dispatch lock")
	}
}

// keepAlive extends the dispatch lock before each page so a long run cannot
// outlive its TTL.
func (s *DispatchService) keepAlive(ctx context.Context, run *dispatchRun) error {
	if run.lock == nil {
		return nil
	}
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := run.lock.Extend(sctx); err != nil {
		return fmt.Errorf("dispatch lock lost: %w", err)
	}
	return nil
}

func (s *DispatchService) loadOwned(ctx context.Context, mode string, accountID, campaignID uuid.UUID) (*model.Campaign, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	c, err := s.Campaigns.GetByID(sctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.AccountID != accountID {
		return nil, appErrors.ErrForbidden
	}
	dispatchable := c.Status.Dispatchable()
	if mode == modeBatch {
		dispatchable = c.Status.BatchDispatchable()
	}
	if !dispatchable {
		return nil, fmt.Errorf("%w: status is %s", appErrors.ErrNotDispatchable, c.Status)
	}
	return c, nil
}

func (s *DispatchService) getList(ctx context.Context, listID uuid.UUID) (*model.ContactList, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.Contacts.GetList(sctx, listID)
}

// gate checks requested against the account's remaining allowance.
func (s *DispatchService) gate(ctx context.Context, mode string, accountID uuid.UUID, requested int) (quota.Result, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	q, err := s.Quota.Remaining(sctx, accountID, requested)
	if err != nil {
		return quota.Result{}, fmt.Errorf("read quota: %w", err)
	}
	if !q.Allowed {
		s.Metrics.IncQuotaRejection(mode)
		s.Log.Info().
			Str("account_id", accountID.String()).
			Int("requested", requested).
			Int("remaining", q.Remaining).
			Msg("dispatch rejected by quota")
		return q, &appErrors.QuotaExceededError{
			Limit:     q.Limit,
			Used:      q.Used,
			Remaining: q.Remaining,
			Requested: requested,
			Reason:    q.Reason,
		}
	}
	return q, nil
}

func (s *DispatchService) withStore(ctx context.Context, fn func(context.Context) (int, error)) (int, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	return fn(sctx)
}

// storeContext bounds a store call independently of the caller's deadline.
func (s *DispatchService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.Options.StoreTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (s *DispatchService) subBatchSize() int {
	if s.Options.SubBatchSize <= 0 {
		return 1000
	}
	return s.Options.SubBatchSize
}

func (s *DispatchService) topic() string {
	if s.Topic == "" {
		return queue.DispatchTopic
	}
	return s.Topic
}

func (s *DispatchService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DispatchService) newID() uuid.UUID {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.New()
}

func (s *DispatchService) observe(mode string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if IsRejection(err) {
			outcome = "rejected"
		}
	}
	s.Metrics.IncDispatch(mode, outcome)
	s.Metrics.ObserveDispatch(mode, time.Since(start).Seconds())
}

// IsRejection reports whether err is a precondition or gate failure, as
// opposed to a store fault or a missing transport configuration.
func IsRejection(err error) bool {
	for _, target := range []error{
		appErrors.ErrNotFound,
		appErrors.ErrForbidden,
		appErrors.ErrNoEligibleRecipients,
		appErrors.ErrNotDispatchable,
		appErrors.ErrQuotaExceeded,
		appErrors.ErrInsufficientContacts,
		appErrors.ErrInvalidVolume,
		appErrors.ErrDispatchInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/service"
)

// AccountHeader carries the caller's account id. Authentication happens
// upstream.
const AccountHeader = "X-Account-ID"

// Dispatcher is the dispatch surface the controller drives.
type Dispatcher interface {
	DispatchFull(ctx context.Context, accountID, campaignID uuid.UUID) (*service.DispatchResult, error)
	DispatchBatch(ctx context.Context, accountID uuid.UUID, req service.BatchRequest) (*service.BatchResult, error)
	SendTestEmail(ctx context.Context, msg service.TestEmail) service.TestEmailResult
}

type CampaignController struct {
	Dispatcher      Dispatcher
	CampaignService *service.CampaignService
	Validate        *validator.Validate
	Log             zerolog.Logger
}

func NewCampaignController(d Dispatcher, campaigns *service.CampaignService, log zerolog.Logger) *CampaignController {
	return &CampaignController{
		Dispatcher:      d,
		CampaignService: campaigns,
		Validate:        validator.New(validator.WithRequiredStructEnabled()),
		Log:             log,
	}
}

// Routes mounts the dispatch endpoints on r.
func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns/{id}/dispatch", c.Dispatch)
	r.Post("/campaigns/{id}/batches", c.DispatchBatch)
	r.Post("/campaigns/{id}/preview", c.PersonalizedPreview)
	r.Post("/test-email", c.TestEmail)
}

type quotaBody struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type dispatchResponse struct {
	Success  bool                  `json:"success"`
	Message  string                `json:"message,omitempty"`
	Error    string                `json:"error,omitempty"`
	Status   string                `json:"status,omitempty"`
	Stats    service.DispatchStats `json:"stats"`
	Quota    *quotaBody            `json:"quota,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// Dispatch queues the whole campaign, or performs a single diagnostic send
// when the body carries testEmail.
func (c *CampaignController) Dispatch(w http.ResponseWriter, r *http.Request) {
	accountID, campaignID, ok := c.ids(w, r)
	if !ok {
		return
	}

	var body struct {
		TestEmail *service.TestEmail `json:"testEmail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.TestEmail != nil {
		c.sendTest(w, r, *body.TestEmail)
		return
	}

	res, err := c.Dispatcher.DispatchFull(r.Context(), accountID, campaignID)
	if err != nil {
		resp := dispatchResponse{Error: err.Error()}
		var qerr *appErrors.QuotaExceededError
		if errors.As(err, &qerr) {
			resp.Quota = &quotaBody{Limit: qerr.Limit, Used: qerr.Used, Remaining: qerr.Remaining}
		}
		c.fail(w, r, err, resp)
		return
	}

	respondJSON(w, http.StatusOK, dispatchResponse{
		Success:  true,
		Message:  fmt.Sprintf("queued %d of %d recipients", res.Stats.Queued, res.Stats.Total),
		Status:   string(res.Status),
		Stats:    res.Stats,
		Quota:    &quotaBody{Limit: res.Quota.Limit, Used: res.Quota.Used, Remaining: res.Quota.Remaining},
		Warnings: res.Warnings,
	})
}

type batchRequest struct {
	ListID string `json:"listId" validate:"required,uuid"`
	Volume int    `json:"volume" validate:"required,oneof=10000 15000 20000 25000 30000 50000"`
}

type batchResponse struct {
	Success   bool                   `json:"success"`
	Summary   *service.BatchSummary  `json:"summary,omitempty"`
	Stats     *service.DispatchStats `json:"stats,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Remaining *int                   `json:"remaining,omitempty"`
}

// DispatchBatch queues a random slice of the list.
func (c *CampaignController) DispatchBatch(w http.ResponseWriter, r *http.Request) {
	accountID, campaignID, ok := c.ids(w, r)
	if !ok {
		return
	}

	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.Validate.Struct(body); err != nil {
		respondJSON(w, http.StatusBadRequest, validationError(err))
		return
	}

	res, err := c.Dispatcher.DispatchBatch(r.Context(), accountID, service.BatchRequest{
		CampaignID: campaignID,
		ListID:     uuid.MustParse(body.ListID),
		Volume:     body.Volume,
	})
	if err != nil {
		resp := batchResponse{Error: err.Error()}
		var short *appErrors.InsufficientContactsError
		if errors.As(err, &short) {
			resp.Remaining = &short.Available
		}
		var qerr *appErrors.QuotaExceededError
		if errors.As(err, &qerr) {
			resp.Remaining = &qerr.Remaining
		}
		c.fail(w, r, err, resp)
		return
	}

	respondJSON(w, http.StatusOK, batchResponse{
		Success:  true,
		Summary:  &res.Summary,
		Stats:    &res.Stats,
		Warnings: res.Warnings,
	})
}

// TestEmail sends one message straight through the transport.
func (c *CampaignController) TestEmail(w http.ResponseWriter, r *http.Request) {
	var msg service.TestEmail
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	c.sendTest(w, r, msg)
}

func (c *CampaignController) sendTest(w http.ResponseWriter, r *http.Request, msg service.TestEmail) {
	if err := c.Validate.Struct(msg); err != nil {
		respondJSON(w, http.StatusBadRequest, validationError(err))
		return
	}
	// failures are reported in the payload so the caller can show the reason
	respondJSON(w, http.StatusOK, c.Dispatcher.SendTestEmail(r.Context(), msg))
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	accountID, campaignID, ok := c.ids(w, r)
	if !ok {
		return
	}

	var body struct {
		Email        string  `json:"email" validate:"required"`
		OverrideHTML *string `json:"overrideHtml"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := c.Validate.Struct(body); err != nil {
		respondJSON(w, http.StatusBadRequest, validationError(err))
		return
	}

	preview, err := c.CampaignService.RenderPreview(r.Context(), accountID, campaignID, body.Email, body.OverrideHTML)
	if err != nil {
		c.fail(w, r, err, map[string]any{"success": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// ids reads the caller's account and the campaign in the path. It writes
// the error response itself.
func (c *CampaignController) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	accountID, err := AccountID(r)
	if err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	campaignID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid campaign id")
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, campaignID, true
}

func (c *CampaignController) fail(w http.ResponseWriter, r *http.Request, err error, body any) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		c.Log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondJSON(w, status, body)
}

// AccountID parses the account header.
func AccountID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(AccountHeader))
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s header", AccountHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s header", AccountHeader)
	}
	return id, nil
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, appErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appErrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, appErrors.ErrDispatchInProgress):
		return http.StatusConflict
	case errors.Is(err, appErrors.ErrInvalidVolume):
		return http.StatusBadRequest
	case errors.Is(err, appErrors.ErrQuotaExceeded),
		errors.Is(err, appErrors.ErrInsufficientContacts),
		errors.Is(err, appErrors.ErrNoEligibleRecipients),
		errors.Is(err, appErrors.ErrNotDispatchable),
		errors.Is(err, appErrors.ErrEmptyTemplate):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"success": false, "error": message})
}

type validationBody struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Fields  map[string][]string `json:"fields"`
}

func validationError(err error) validationBody {
	fields := map[string][]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			fields[field] = append(fields[field], fe.Tag())
		}
	}
	if len(fields) == 0 {
		return validationBody{Error: err.Error(), Fields: fields}
	}
	return validationBody{Error: "validation_failed", Fields: fields}
}

// internal/handler/campaign_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unclebandit/mailer-backend/internal/controller"
	"github.com/unclebandit/mailer-backend/internal/service"
)

// CampaignHandler serves read-only campaign views.
type CampaignHandler struct {
	Service *service.CampaignService
	Log     zerolog.Logger
}

func NewCampaignHandler(svc *service.CampaignService, log zerolog.Logger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Log: log}
}

// GetCampaignHandlerWithStats returns the campaign with recipient and queue
// counts by status.
func (h *CampaignHandler) GetCampaignHandlerWithStats(w http.ResponseWriter, r *http.Request) {
	accountID, err := controller.AccountID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": err.Error()})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid campaign id"})
		return
	}

	details, err := h.Service.GetCampaignDetailsWithStats(r.Context(), accountID, id)
	if err != nil {
		status := controller.StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error().Err(err).Str("campaign_id", id.String()).Msg("failed to fetch campaign")
		}
		writeJSON(w, status, map[string]any{"success": false, "error": "failed to fetch campaign: " + err.Error()})
		return
	}

	h.Log.Debug().Str("campaign_id", id.String()).Interface("queue", details.Queue).Msg("campaign stats served")
	writeJSON(w, http.StatusOK, details)
}

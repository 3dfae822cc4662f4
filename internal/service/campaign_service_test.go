package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/service"
)

func newCampaignService(h *harness) *service.CampaignService {
	return &service.CampaignService{
		CampaignRepo:  campaignRepo{h.store},
		RecipientRepo: recipientRepo{h.store},
		QueueRepo:     queueRepo{h.store},
		ContactRepo:   contactRepo{h.store},
		Templates:     service.NewTemplateService(),
	}
}

func TestGetCampaignDetailsWithStats(t *testing.T) {
	h, _ := dispatched(t, "ann@firm.com", "bob@firm.com", "bad@@x")
	svc := newCampaignService(h)

	details, err := svc.GetCampaignDetailsWithStats(context.Background(), h.accountID, h.campaign.ID)
	require.NoError(t, err)

	assert.Equal(t, h.campaign.ID, details.ID)
	assert.Equal(t, map[string]int{"pending": 0, "queued": 2, "sent": 0, "error": 1, "total": 3}, details.Recipients)
	assert.Equal(t, map[string]int{"pending": 2, "sent": 0, "failed": 0, "total": 2}, details.Queue)
}

func TestGetCampaignDetailsWithStats_Ownership(t *testing.T) {
	h := newHarness(t, 10, 0)
	svc := newCampaignService(h)

	_, err := svc.GetCampaignDetailsWithStats(context.Background(), uuid.New(), h.campaign.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.GetCampaignDetailsWithStats(context.Background(), h.accountID, uuid.New())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRenderPreview(t *testing.T) {
	h := newHarness(t, 10, 0)
	listID := h.store.addList(h.accountID, "VIP")
	h.store.campaigns[h.campaign.ID].ListID = &listID
	svc := newCampaignService(h)

	p, err := svc.RenderPreview(context.Background(), h.accountID, h.campaign.ID, "ann@firm.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello ann@firm.com", p.Subject)
	assert.Contains(t, p.HTML, "Hi ann@firm.com")

	override := "<p>{{ list_name }} only</p>"
	p, err = svc.RenderPreview(context.Background(), h.accountID, h.campaign.ID, "ann@firm.com", &override)
	require.NoError(t, err)
	assert.Equal(t, "<p>VIP only</p>", p.HTML)

	blank := "   "
	h.store.campaigns[h.campaign.ID].HTMLBody = ""
	_, err = svc.RenderPreview(context.Background(), h.accountID, h.campaign.ID, "ann@firm.com", &blank)
	assert.ErrorIs(t, err, appErrors.ErrEmptyTemplate)
}

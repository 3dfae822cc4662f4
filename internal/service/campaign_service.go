// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/mailer-backend/internal/errors"
	"github.com/unclebandit/mailer-backend/internal/model"
	"github.com/unclebandit/mailer-backend/internal/repository"
)

// CampaignService serves read-side campaign views.
type CampaignService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	QueueRepo     repository.QueueRepositoryInterface
	ContactRepo   repository.ContactRepositoryInterface
	Templates     *TemplateService
}

type CampaignDetails struct {
	ID         uuid.UUID            `json:"id"`
	Name       string               `json:"name"`
	Subject    string               `json:"subject"`
	Status     model.CampaignStatus `json:"status"`
	ListID     *uuid.UUID           `json:"list_id,omitempty"`
	SentCount  int                  `json:"sent_count"`
	BatchCount int                  `json:"batch_count"`
	SentAt     *time.Time           `json:"sent_at,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  *time.Time           `json:"updated_at"`
	Recipients map[string]int       `json:"recipients"`
	Queue      map[string]int       `json:"queue"`
}

// GetCampaignDetailsWithStats returns the campaign with recipient and queue
// counts by status. Each map carries a "total" key.
func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, accountID, campaignID uuid.UUID) (*CampaignDetails, error) {
	campaign, err := s.owned(ctx, accountID, campaignID)
	if err != nil {
		return nil, err
	}

	recipients, err := s.RecipientRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count recipients: %w", err)
	}
	queued, err := s.QueueRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count queue entries: %w", err)
	}

	return &CampaignDetails{
		ID:         campaign.ID,
		Name:       campaign.Name,
		Subject:    campaign.Subject,
		Status:     campaign.Status,
		ListID:     campaign.ListID,
		SentCount:  campaign.SentCount,
		BatchCount: campaign.BatchCount,
		SentAt:     campaign.SentAt,
		CreatedAt:  campaign.CreatedAt,
		UpdatedAt:  campaign.UpdatedAt,
		Recipients: withTotal(recipients),
		Queue:      withTotal(queued),
	}, nil
}

func withTotal(stats map[string]int) map[string]int {
	total := 0
	for _, n := range stats {
		total += n
	}
	stats["total"] = total
	return stats
}

type Preview struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// RenderPreview merges the campaign content for a sample address. A
// non-blank overrideHTML replaces the stored body.
func (s *CampaignService) RenderPreview(ctx context.Context, accountID, campaignID uuid.UUID, email string, overrideHTML *string) (*Preview, error) {
	campaign, err := s.owned(ctx, accountID, campaignID)
	if err != nil {
		return nil, err
	}

	body := campaign.HTMLBody
	if overrideHTML != nil && strings.TrimSpace(*overrideHTML) != "" {
		body = *overrideHTML
	}
	if strings.TrimSpace(body) == "" {
		return nil, appErrors.ErrEmptyTemplate
	}

	listName := ""
	if campaign.ListID != nil && s.ContactRepo != nil {
		if list, err := s.ContactRepo.GetList(ctx, *campaign.ListID); err == nil {
			listName = list.Name
		}
	}

	compiled, err := s.Templates.Compile(campaign.Subject, body)
	if err != nil {
		return nil, err
	}
	subject, html := compiled.Render(MergeData{Email: email, ListName: listName, CampaignName: campaign.Name})
	return &Preview{Subject: subject, HTML: html}, nil
}

func (s *CampaignService) owned(ctx context.Context, accountID, campaignID uuid.UUID) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.AccountID != accountID {
		return nil, appErrors.ErrForbidden
	}
	return campaign, nil
}

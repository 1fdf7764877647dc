// internal/service/archive_service.go
package service

import (
	"context"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

type ArchiveService struct {
	ArchiveRepo  repository.ArchiveRepositoryInterface
	ListRepo     repository.ActivityListRepositoryInterface
	MarketerRepo repository.MarketerRepositoryInterface
}

type Dashboard struct {
	Name           string `json:"name"`
	TotalActivity  int    `json:"totalActivity"`
	TotalCampaigns int    `json:"totalCampaigns"`
}

func (s *ArchiveService) ListCampaigns(ctx context.Context) ([]*model.Campaign, error) {
	return s.ArchiveRepo.ListCampaigns(ctx)
}

func (s *ArchiveService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.ArchiveRepo.GetCampaign(ctx, id)
}

func (s *ArchiveService) CampaignsByMarketer(ctx context.Context, marketerID string) ([]*model.Campaign, error) {
	return s.ArchiveRepo.CampaignsByMarketer(ctx, marketerID)
}

// DescriptionsForList returns the bodies sent to a list, newest first. History
// outlives the list, so a deleted list still has descriptions.
func (s *ArchiveService) DescriptionsForList(ctx context.Context, activityID string) ([]*model.MailDescription, error) {
	return s.ArchiveRepo.DescriptionsForList(ctx, activityID)
}

func (s *ArchiveService) GetDescription(ctx context.Context, activityID, descriptionID string) (*model.MailDescription, error) {
	return s.ArchiveRepo.GetDescription(ctx, activityID, descriptionID)
}

func (s *ArchiveService) MarketerDashboard(ctx context.Context, marketerID string) (*Dashboard, error) {
	m, err := s.MarketerRepo.GetByID(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	lists, err := s.ListRepo.CountByMarketer(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	campaigns, err := s.ArchiveRepo.CountByMarketer(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Name: m.Name, TotalActivity: lists, TotalCampaigns: campaigns}, nil
}

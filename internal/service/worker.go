package service

import (
	"context"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/queue"
)

// CampaignLookup defines the methods the worker needs
type CampaignLookup interface {
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
}

// AuditWorker writes one audit line per recorded send.
type AuditWorker struct {
	Archive CampaignLookup
	Audit   *logger.Logger
}

func NewAuditWorker(archive CampaignLookup, audit *logger.Logger) *AuditWorker {
	return &AuditWorker{Archive: archive, Audit: audit}
}

// Process confirms the event against the archive. Unknown campaigns are
// logged and acknowledged; lookup failures are returned so the queue retries.
func (w *AuditWorker) Process(ctx context.Context, ev queue.CampaignSentEvent) error {
	c, err := w.Archive.GetCampaign(ctx, ev.CampaignID)
	if appErrors.Is(err, appErrors.KindNotFound) {
		w.Audit.Log(logger.WARN, "campaign.sent for unknown campaign", "campaign_id", ev.CampaignID, "activity_id", ev.ActivityID)
		return nil
	}
	if err != nil {
		return err
	}

	w.Audit.Log(logger.INFO, "campaign delivered to transport",
		"campaign_id", c.CampaignID,
		"description_id", ev.DescriptionID,
		"activity_id", c.ActivityID,
		"activity_name", c.ActivityName,
		"marketer_id", c.MarketerID,
		"from", c.FromAddress,
		"subject", c.Subject,
		"recipients", ev.Recipients,
		"message_id", c.ProviderMessageID,
		"sent_at", c.SentAt,
	)
	return nil
}

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
)

const TopicCampaignSent = "campaign.sent"

// CampaignSentEvent is published after a send has been recorded.
type CampaignSentEvent struct {
	CampaignID        string    `json:"campaignId"`
	DescriptionID     string    `json:"descriptionId"`
	ActivityID        string    `json:"activityId"`
	MarketerID        string    `json:"marketerId"`
	ProviderMessageID string    `json:"providerMessageId"`
	Recipients        int       `json:"recipients"`
	SentAt            time.Time `json:"sentAt"`
}

// DecodeCampaignSent accepts the event as published in-process or as a raw
// broker body.
func DecodeCampaignSent(payload any) (CampaignSentEvent, error) {
	switch p := payload.(type) {
	case CampaignSentEvent:
		return p, nil
	case *CampaignSentEvent:
		if p == nil {
			return CampaignSentEvent{}, fmt.Errorf("nil campaign.sent event")
		}
		return *p, nil
	case []byte:
		var ev CampaignSentEvent
		if err := json.Unmarshal(p, &ev); err != nil {
			return CampaignSentEvent{}, fmt.Errorf("decode campaign.sent event: %w", err)
		}
		if ev.CampaignID == "" {
			return CampaignSentEvent{}, fmt.Errorf("campaign.sent event without campaignId")
		}
		return ev, nil
	default:
		return CampaignSentEvent{}, fmt.Errorf("unexpected campaign.sent payload %T", payload)
	}
}

// StartCampaignAuditSubscriber routes campaign.sent events to handle.
func StartCampaignAuditSubscriber(q Queue, handle func(CampaignSentEvent) error) error {
	return q.Subscribe(TopicCampaignSent, func(payload any) error {
		ev, err := DecodeCampaignSent(payload)
		if err != nil {
			logger.Warn("dropping campaign.sent event", "error", err.Error())
			return nil
		}
		return handle(ev)
	})
}

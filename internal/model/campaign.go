// internal/model/campaign.go
package model

import "time"

// MailDescription is the body text of one send that reached the transport.
type MailDescription struct {
	DescriptionID string    `db:"description_id" json:"descriptionId"`
	ActivityID    string    `db:"activity_id" json:"activityId"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Campaign is the archived record of one completed send. Contacts is a copy
// taken at send time.
type Campaign struct {
	CampaignID        string    `db:"campaign_id" json:"campaignId"`
	ActivityID        string    `db:"activity_id" json:"activityId"`
	MarketerID        string    `db:"marketer_id" json:"marketerId"`
	MarketerName      string    `db:"marketer_name" json:"marketerName"`
	ActivityName      string    `db:"activity_name" json:"activityName"`
	Contacts          []Contact `db:"contacts" json:"contacts"`
	Subject           string    `db:"subject" json:"subject"`
	Description       string    `db:"description" json:"description"`
	FromAddress       string    `db:"from_address" json:"fromAddress"`
	ProviderMessageID string    `db:"provider_message_id" json:"providerMessageId"`
	SentAt            time.Time `db:"sent_at" json:"sentAt"`
}

// SendResult is returned to the caller of a successful send.
type SendResult struct {
	DescriptionID     string `json:"descriptionId"`
	CampaignID        string `json:"campaignId"`
	ProviderMessageID string `json:"providerMessageId"`
	Recipients        int    `json:"recipients"`
}

// internal/service/dispatch_service.go
package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/mailer"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/queue"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

// CredentialResolver looks up a credential and opens its secret.
// *vault.Vault implements it.
type CredentialResolver interface {
	Get(ctx context.Context, id string) (*model.SmtpCredential, error)
	Password(cred *model.SmtpCredential) (string, error)
}

// DispatchService sends one message to every contact of a list and archives
// the outcome. A send is not idempotent: calling it twice mails every
// recipient twice and records two campaigns.
type DispatchService struct {
	MarketerRepo repository.MarketerRepositoryInterface
	ListRepo     repository.ActivityListRepositoryInterface
	ArchiveRepo  repository.ArchiveRepositoryInterface
	Credentials  CredentialResolver
	Transport    mailer.Transport
	Queue        queue.Queue
	NewID        func() string
	Now          func() time.Time

	// SendTimeout bounds one transport session. Zero means DefaultSendTimeout.
	SendTimeout time.Duration
}

const DefaultSendTimeout = 2 * time.Minute

type SendRequest struct {
	ActivityID  string `json:"activityId"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	MarketerID  string `json:"marketerId"`
}

func (s *DispatchService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *DispatchService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (r SendRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.ActivityID) == "" {
		missing = append(missing, "activityId")
	}
	if strings.TrimSpace(r.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(r.MarketerID) == "" {
		missing = append(missing, "marketerId")
	}
	if len(missing) > 0 {
		return appErrors.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Send resolves sender, credential and recipients, submits one message and,
// only after the transport accepted it, records description, sent flag and
// campaign in one transaction.
func (s *DispatchService) Send(ctx context.Context, req SendRequest) (*model.SendResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	marketer, err := s.MarketerRepo.GetByID(ctx, req.MarketerID)
	if err != nil {
		return nil, err
	}
	if marketer.ApprovalStatus != model.ApprovalApproved {
		return nil, appErrors.Validation("marketer %s is not approved to send", marketer.MarketerID)
	}
	if marketer.CredentialID == nil || *marketer.CredentialID == "" {
		return nil, appErrors.Validation("no SMTP credentials assigned to this marketer")
	}

	cred, err := s.Credentials.Get(ctx, *marketer.CredentialID)
	if appErrors.Is(err, appErrors.KindNotFound) {
		return nil, appErrors.Validation("assigned SMTP credentials no longer exist")
	}
	if err != nil {
		return nil, err
	}

	password, err := s.Credentials.Password(cred)
	if err != nil {
		return nil, err
	}

	list, err := s.ListRepo.GetByID(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	recipients := list.Emails()
	if len(recipients) == 0 {
		return nil, appErrors.Validation("activity list %s has no contacts with an email address", list.ActivityID)
	}

	from, err := senderAddress(marketer, cred)
	if err != nil {
		return nil, err
	}

	// Once submission starts the send must be recorded even if the caller goes away.
	persistCtx := context.WithoutCancel(ctx)
	timeout := s.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	sendCtx, cancel := context.WithTimeout(persistCtx, timeout)
	defer cancel()
	messageID, err := s.Transport.Send(sendCtx, &mailer.Envelope{
		Host:       cred.Host,
		Port:       cred.Port,
		Secure:     cred.Secure,
		Username:   cred.User,
		Password:   password,
		From:       from,
		Recipients: recipients,
		Subject:    req.Subject,
		Body:       req.Description,
	})
	if err != nil {
		if !appErrors.Is(err, appErrors.KindTransport) {
			err = appErrors.Transport(err, "failed to send mail")
		}
		return nil, err
	}

	sentAt := s.now()
	desc := &model.MailDescription{
		DescriptionID: s.newID(),
		ActivityID:    list.ActivityID,
		Description:   req.Description,
		CreatedAt:     sentAt,
	}
	snapshot := make([]model.Contact, len(list.Contacts))
	copy(snapshot, list.Contacts)
	campaign := &model.Campaign{
		CampaignID:        s.newID(),
		ActivityID:        list.ActivityID,
		MarketerID:        marketer.MarketerID,
		MarketerName:      marketer.Name,
		ActivityName:      list.Name,
		Contacts:          snapshot,
		Subject:           req.Subject,
		Description:       req.Description,
		FromAddress:       from.String(),
		ProviderMessageID: messageID,
		SentAt:            sentAt,
	}
	if err := s.ArchiveRepo.RecordSend(persistCtx, desc, campaign); err != nil {
		logger.Error("mail sent but not recorded", "activity_id", list.ActivityID, "message_id", messageID, "error", err.Error())
		return nil, appErrors.Wrap(appErrors.KindInternal, err, "mail was sent but the campaign could not be recorded")
	}

	logger.Info("campaign sent", "campaign_id", campaign.CampaignID, "activity_id", list.ActivityID,
		"marketer_id", marketer.MarketerID, "recipients", len(recipients), "message_id", messageID)
	s.publish(campaign, desc, len(recipients))

	return &model.SendResult{
		DescriptionID:     desc.DescriptionID,
		CampaignID:        campaign.CampaignID,
		ProviderMessageID: messageID,
		Recipients:        len(recipients),
	}, nil
}

func senderAddress(m *model.Marketer, cred *model.SmtpCredential) (mail.Address, error) {
	address := strings.TrimSpace(m.SendingAddress)
	if address == "" {
		address = cred.User
	}
	from := mail.Address{Name: strings.TrimSpace(m.Name), Address: address}
	parsed, err := mail.ParseAddress(from.String())
	if err != nil || parsed.Address != address {
		return mail.Address{}, appErrors.Validation("invalid sender address %q", address)
	}
	return from, nil
}

func (s *DispatchService) publish(c *model.Campaign, d *model.MailDescription, recipients int) {
	if s.Queue == nil {
		return
	}
	err := s.Queue.Publish(queue.TopicCampaignSent, queue.CampaignSentEvent{
		CampaignID:        c.CampaignID,
		DescriptionID:     d.DescriptionID,
		ActivityID:        c.ActivityID,
		MarketerID:        c.MarketerID,
		ProviderMessageID: c.ProviderMessageID,
		Recipients:        recipients,
		SentAt:            c.SentAt,
	})
	if err != nil {
		logger.Warn("campaign.sent event not published", "campaign_id", c.CampaignID, "error", err.Error())
	}
}

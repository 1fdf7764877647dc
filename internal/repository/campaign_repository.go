package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

// ArchiveRepositoryInterface is the append-only send history.
type ArchiveRepositoryInterface interface {
	// RecordSend stores the description, flips the list to SENT and appends
	// the campaign, all in one transaction.
	RecordSend(ctx context.Context, d *model.MailDescription, c *model.Campaign) error

	ListCampaigns(ctx context.Context) ([]*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	CampaignsByMarketer(ctx context.Context, marketerID string) ([]*model.Campaign, error)
	CountByMarketer(ctx context.Context, marketerID string) (int, error)

	DescriptionsForList(ctx context.Context, activityID string) ([]*model.MailDescription, error)
	GetDescription(ctx context.Context, activityID, descriptionID string) (*model.MailDescription, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `campaign_id, activity_id, marketer_id, marketer_name, activity_name, contacts, subject, description, from_address, provider_message_id, sent_at`

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var raw []byte
	if err := row.Scan(&c.CampaignID, &c.ActivityID, &c.MarketerID, &c.MarketerName, &c.ActivityName, &raw,
		&c.Subject, &c.Description, &c.FromAddress, &c.ProviderMessageID, &c.SentAt); err != nil {
		return nil, err
	}
	contacts, err := decodeContacts(raw)
	if err != nil {
		return nil, fmt.Errorf("decode contacts of campaign %s: %w", c.CampaignID, err)
	}
	c.Contacts = contacts
	return &c, nil
}

func (r *CampaignRepository) RecordSend(ctx context.Context, d *model.MailDescription, c *model.Campaign) (err error) {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if c.SentAt.IsZero() {
		c.SentAt = now
	}
	snapshot, err := encodeContacts(c.Contacts)
	if err != nil {
		return err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record send: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
        INSERT INTO mail_descriptions (description_id, activity_id, description, created_at)
        VALUES ($1, $2, $3, $4)
    `, d.DescriptionID, d.ActivityID, d.Description, d.CreatedAt); err != nil {
		return fmt.Errorf("insert description: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE activity_lists SET mail_sent=$1, updated_at=NOW() WHERE activity_id=$2`, model.Sent, c.ActivityID)
	if err != nil {
		return fmt.Errorf("mark list sent: %w", err)
	}
	if err = requireRow(res, appErrors.NewListNotFound(c.ActivityID)); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
        INSERT INTO campaigns (`+campaignColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, c.CampaignID, c.ActivityID, c.MarketerID, c.MarketerName, c.ActivityName, snapshot,
		c.Subject, c.Description, c.FromAddress, c.ProviderMessageID, c.SentAt); err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record send: %w", err)
	}
	return nil
}

func (r *CampaignRepository) queryCampaigns(ctx context.Context, query string, args ...interface{}) ([]*model.Campaign, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context) ([]*model.Campaign, error) {
	return r.queryCampaigns(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY sent_at DESC, campaign_id`)
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE campaign_id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, err
}

func (r *CampaignRepository) CampaignsByMarketer(ctx context.Context, marketerID string) ([]*model.Campaign, error) {
	return r.queryCampaigns(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE marketer_id=$1 ORDER BY sent_at DESC, campaign_id`, marketerID)
}

func (r *CampaignRepository) CountByMarketer(ctx context.Context, marketerID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns WHERE marketer_id=$1`, marketerID).Scan(&n)
	return n, err
}

func (r *CampaignRepository) DescriptionsForList(ctx context.Context, activityID string) ([]*model.MailDescription, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT description_id, activity_id, description, created_at
        FROM mail_descriptions
        WHERE activity_id=$1
        ORDER BY created_at DESC, description_id
    `, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	descs := []*model.MailDescription{}
	for rows.Next() {
		var d model.MailDescription
		if err := rows.Scan(&d.DescriptionID, &d.ActivityID, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		descs = append(descs, &d)
	}
	return descs, rows.Err()
}

func (r *CampaignRepository) GetDescription(ctx context.Context, activityID, descriptionID string) (*model.MailDescription, error) {
	var d model.MailDescription
	err := r.DB.QueryRowContext(ctx, `
        SELECT description_id, activity_id, description, created_at
        FROM mail_descriptions
        WHERE activity_id=$1 AND description_id=$2
    `, activityID, descriptionID).Scan(&d.DescriptionID, &d.ActivityID, &d.Description, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, appErrors.NotFound("description %s not found", descriptionID)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

var _ ArchiveRepositoryInterface = (*CampaignRepository)(nil)

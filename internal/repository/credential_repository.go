package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

type CredentialRepositoryInterface interface {
	Create(ctx context.Context, c *model.SmtpCredential) error
	Update(ctx context.Context, c *model.SmtpCredential) error
	GetByID(ctx context.Context, id string) (*model.SmtpCredential, error)
	GetByUser(ctx context.Context, user string) (*model.SmtpCredential, error)
	List(ctx context.Context, offset, limit int) ([]*model.SmtpCredential, int, error)
	Delete(ctx context.Context, id string) error
}

type CredentialRepository struct {
	DB *sql.DB
}

const credentialColumns = `credential_id, smtp_user, host, port, secure, secret_iv, secret_enc, created_at, updated_at`

func scanCredential(row rowScanner) (*model.SmtpCredential, error) {
	var c model.SmtpCredential
	err := row.Scan(&c.CredentialID, &c.User, &c.Host, &c.Port, &c.Secure, &c.SecretIV, &c.SecretEnc, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) Create(ctx context.Context, c *model.SmtpCredential) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO smtp_credentials (`+credentialColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, c.CredentialID, c.User, c.Host, c.Port, c.Secure, c.SecretIV, c.SecretEnc, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return appErrors.Conflict("credentials for %s already exist", c.User)
	}
	return err
}

// Update overwrites connection parameters and secret for c.CredentialID.
func (r *CredentialRepository) Update(ctx context.Context, c *model.SmtpCredential) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
        UPDATE smtp_credentials
        SET smtp_user=$1, host=$2, port=$3, secure=$4, secret_iv=$5, secret_enc=$6, updated_at=$7
        WHERE credential_id=$8
    `, c.User, c.Host, c.Port, c.Secure, c.SecretIV, c.SecretEnc, c.UpdatedAt, c.CredentialID)
	if isUniqueViolation(err) {
		return appErrors.Conflict("credentials for %s already exist", c.User)
	}
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NotFound("credential %s not found", c.CredentialID))
}

func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*model.SmtpCredential, error) {
	c, err := scanCredential(r.DB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM smtp_credentials WHERE credential_id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, appErrors.NotFound("credential %s not found", id)
	}
	return c, err
}

func (r *CredentialRepository) GetByUser(ctx context.Context, user string) (*model.SmtpCredential, error) {
	c, err := scanCredential(r.DB.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM smtp_credentials WHERE smtp_user=$1`, user))
	if err == sql.ErrNoRows {
		return nil, appErrors.NotFound("no credentials found for %s", user)
	}
	return c, err
}

func (r *CredentialRepository) List(ctx context.Context, offset, limit int) ([]*model.SmtpCredential, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM smtp_credentials`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, `
        SELECT `+credentialColumns+`
        FROM smtp_credentials
        ORDER BY created_at DESC, credential_id
        LIMIT $1 OFFSET $2
    `, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	creds := []*model.SmtpCredential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, 0, err
		}
		creds = append(creds, c)
	}
	return creds, total, rows.Err()
}

func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM smtp_credentials WHERE credential_id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NotFound("credential %s not found", id))
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

type MarketerRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*model.Marketer, error)
	Create(ctx context.Context, m *model.Marketer) error
	SetApproval(ctx context.Context, id string, status model.ApprovalStatus) error
	AssignCredential(ctx context.Context, id, credentialID string) error
}

type MarketerRepository struct {
	DB *sql.DB
}

func (r *MarketerRepository) GetByID(ctx context.Context, id string) (*model.Marketer, error) {
	var m model.Marketer
	var credentialID sql.NullString
	err := r.DB.QueryRowContext(ctx, `
        SELECT marketer_id, name, email, phone_number, sending_address, approval_status, credential_id, created_at
        FROM marketers WHERE marketer_id=$1
    `, id).Scan(&m.MarketerID, &m.Name, &m.Email, &m.PhoneNumber, &m.SendingAddress, &m.ApprovalStatus, &credentialID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, appErrors.NotFound("marketer %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if credentialID.Valid {
		m.CredentialID = &credentialID.String
	}
	return &m, nil
}

func (r *MarketerRepository) Create(ctx context.Context, m *model.Marketer) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.ApprovalStatus == "" {
		m.ApprovalStatus = model.ApprovalPending
	}
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO marketers (marketer_id, name, email, phone_number, sending_address, approval_status, credential_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, m.MarketerID, m.Name, m.Email, m.PhoneNumber, m.SendingAddress, m.ApprovalStatus, m.CredentialID, m.CreatedAt)
	if isUniqueViolation(err) {
		switch constraintOf(err) {
		case "marketers_phone_number_key":
			return appErrors.Conflict("phone number %s is already registered", m.PhoneNumber)
		default:
			return appErrors.Conflict("email %s is already registered", m.Email)
		}
	}
	return err
}

func (r *MarketerRepository) SetApproval(ctx context.Context, id string, status model.ApprovalStatus) error {
	if !status.Valid() {
		return appErrors.Validation("invalid approval status %q", status)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE marketers SET approval_status=$1 WHERE marketer_id=$2`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NotFound("marketer %s not found", id))
}

// AssignCredential points the marketer at an existing credential.
func (r *MarketerRepository) AssignCredential(ctx context.Context, id, credentialID string) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM smtp_credentials WHERE credential_id=$1)`, credentialID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return appErrors.NotFound("credential %s not found", credentialID)
	}
	res, err := r.DB.ExecContext(ctx, `UPDATE marketers SET credential_id=$1 WHERE marketer_id=$2`, credentialID, id)
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NotFound("marketer %s not found", id))
}

var _ MarketerRepositoryInterface = (*MarketerRepository)(nil)

// internal/model/marketer.go
package model

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

type Marketer struct {
	MarketerID     string         `db:"marketer_id" json:"marketerId"`
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	PhoneNumber    string         `db:"phone_number" json:"phoneNumber"`
	SendingAddress string         `db:"sending_address" json:"sendingAddress"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	CredentialID   *string        `db:"credential_id" json:"credentialId,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

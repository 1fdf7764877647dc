// internal/model/credential.go
package model

import "time"

// SmtpCredential holds connection parameters for one sending address. The
// password only exists as SecretIV + SecretEnc and never leaves the process
// in a response.
type SmtpCredential struct {
	CredentialID string    `db:"credential_id" json:"credentialId"`
	User         string    `db:"smtp_user" json:"user"`
	Host         string    `db:"host" json:"host"`
	Port         int       `db:"port" json:"port"`
	Secure       bool      `db:"secure" json:"secure"`
	SecretIV     string    `db:"secret_iv" json:"-"`
	SecretEnc    string    `db:"secret_enc" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

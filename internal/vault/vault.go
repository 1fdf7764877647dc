package vault

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

// PutInput carries a full credential as submitted by an admin.
type PutInput struct {
	User     string `json:"user"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Secure   bool   `json:"secure"`
	Password string `json:"pass"`
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	User     string  `json:"user"`
	Host     *string `json:"host,omitempty"`
	Port     *int    `json:"port,omitempty"`
	Secure   *bool   `json:"secure,omitempty"`
	Password *string `json:"pass,omitempty"`
}

// Vault stores SMTP credentials with the password sealed by Cipher.
type Vault struct {
	Repo   repository.CredentialRepositoryInterface
	Cipher *Cipher
}

func normalizeUser(user string) (string, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" {
		return "", appErrors.Validation("user is required")
	}
	addr, err := mail.ParseAddress(user)
	if err != nil || addr.Address != user {
		return "", appErrors.Validation("user %q is not a valid email address", user)
	}
	return user, nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return appErrors.Validation("port must be between 1 and 65535")
	}
	return nil
}

// Put creates the credential for in.User, or replaces its connection
// parameters and rotates its secret when one already exists.
func (v *Vault) Put(ctx context.Context, in PutInput) (*model.SmtpCredential, error) {
	user, err := normalizeUser(in.User)
	if err != nil {
		return nil, err
	}
	host := strings.TrimSpace(in.Host)
	if host == "" {
		return nil, appErrors.Validation("host is required")
	}
	if err := validatePort(in.Port); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, appErrors.Validation("pass is required")
	}

	iv, sealed, err := v.Cipher.Encrypt(in.Password)
	if err != nil {
		return nil, err
	}

	existing, err := v.Repo.GetByUser(ctx, user)
	switch {
	case err == nil:
		existing.Host, existing.Port, existing.Secure = host, in.Port, in.Secure
		existing.SecretIV, existing.SecretEnc = iv, sealed
		if err := v.Repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		logger.Info("smtp credential rotated", "credential_id", existing.CredentialID, "user", user)
		return existing, nil
	case appErrors.Is(err, appErrors.KindNotFound):
	default:
		return nil, err
	}

	cred := &model.SmtpCredential{
		CredentialID: uuid.NewString(),
		User:         user,
		Host:         host,
		Port:         in.Port,
		Secure:       in.Secure,
		SecretIV:     iv,
		SecretEnc:    sealed,
	}
	if err := v.Repo.Create(ctx, cred); err != nil {
		return nil, err
	}
	logger.Info("smtp credential created", "credential_id", cred.CredentialID, "user", user)
	return cred, nil
}

// Update changes only the fields present in in. The secret is rotated only
// when a new password is supplied.
func (v *Vault) Update(ctx context.Context, in UpdateInput) (*model.SmtpCredential, error) {
	user, err := normalizeUser(in.User)
	if err != nil {
		return nil, err
	}
	cred, err := v.Repo.GetByUser(ctx, user)
	if err != nil {
		return nil, err
	}

	if in.Host != nil {
		host := strings.TrimSpace(*in.Host)
		if host == "" {
			return nil, appErrors.Validation("host cannot be empty")
		}
		cred.Host = host
	}
	if in.Port != nil {
		if err := validatePort(*in.Port); err != nil {
			return nil, err
		}
		cred.Port = *in.Port
	}
	if in.Secure != nil {
		cred.Secure = *in.Secure
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, appErrors.Validation("pass cannot be empty")
		}
		iv, sealed, err := v.Cipher.Encrypt(*in.Password)
		if err != nil {
			return nil, err
		}
		cred.SecretIV, cred.SecretEnc = iv, sealed
	}

	if err := v.Repo.Update(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (v *Vault) Get(ctx context.Context, id string) (*model.SmtpCredential, error) {
	return v.Repo.GetByID(ctx, id)
}

func (v *Vault) GetByUser(ctx context.Context, user string) (*model.SmtpCredential, error) {
	user, err := normalizeUser(user)
	if err != nil {
		return nil, err
	}
	return v.Repo.GetByUser(ctx, user)
}

// List returns credentials newest first. Secrets are excluded from the JSON
// form of each record.
func (v *Vault) List(ctx context.Context, page, limit int) (model.Page[*model.SmtpCredential], error) {
	page, limit, offset := model.NormalizePage(page, limit)
	creds, total, err := v.Repo.List(ctx, offset, limit)
	if err != nil {
		return model.Page[*model.SmtpCredential]{}, err
	}
	return model.NewPage(creds, total, page, limit), nil
}

func (v *Vault) Delete(ctx context.Context, id string) error {
	if err := v.Repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("smtp credential deleted", "credential_id", id)
	return nil
}

func (v *Vault) DeleteByUser(ctx context.Context, user string) error {
	cred, err := v.GetByUser(ctx, user)
	if err != nil {
		return err
	}
	return v.Delete(ctx, cred.CredentialID)
}

// Password opens the sealed secret of cred. Callers must not log or return it.
func (v *Vault) Password(cred *model.SmtpCredential) (string, error) {
	if cred == nil {
		return "", appErrors.Validation("no credential to decrypt")
	}
	password, err := v.Cipher.Decrypt(cred.SecretIV, cred.SecretEnc)
	if err != nil {
		return "", appErrors.Wrap(appErrors.KindTransport, err, "smtp credential %s could not be decrypted", cred.CredentialID)
	}
	return password, nil
}

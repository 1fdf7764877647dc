// internal/controller/credential_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/vault"
)

// CredentialController exposes the SMTP credential vault. Secrets are accepted
// on write and never returned.
type CredentialController struct {
	Vault *vault.Vault
}

func (c *CredentialController) PutCredential(w http.ResponseWriter, r *http.Request) {
	var in vault.PutInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	cred, err := c.Vault.Put(r.Context(), in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "SMTP credentials saved", cred)
}

func (c *CredentialController) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	var in vault.UpdateInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	cred, err := c.Vault.Update(r.Context(), in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "SMTP credentials updated", cred)
}

func (c *CredentialController) ListCredentials(w http.ResponseWriter, r *http.Request) {
	page, err := c.Vault.List(r.Context(), httputil.QueryInt(r, "page"), httputil.QueryInt(r, "limit"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", page)
}

func (c *CredentialController) GetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := c.Vault.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", cred)
}

func (c *CredentialController) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := c.Vault.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "SMTP credentials deleted", nil)
}

// DeleteCredentialByUser removes the credential named by {"user": ...}.
func (c *CredentialController) DeleteCredentialByUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User string `json:"user"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if err := c.Vault.DeleteByUser(r.Context(), body.User); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "SMTP credentials deleted", nil)
}

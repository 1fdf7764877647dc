// internal/controller/marketer_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

type MarketerController struct {
	MarketerService *service.MarketerService
}

func (c *MarketerController) AssignCredential(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CredentialID string `json:"credentialId"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	m, err := c.MarketerService.AssignCredential(r.Context(), chi.URLParam(r, "id"), body.CredentialID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "SMTP credentials assigned", m)
}

func (c *MarketerController) SetApproval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	m, err := c.MarketerService.SetApproval(r.Context(), chi.URLParam(r, "id"), model.ApprovalStatus(body.Status))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "approval status updated", m)
}

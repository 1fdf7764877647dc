// internal/handler/campaign_handler.go
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

// CampaignHandler serves the read side of the campaign archive.
type CampaignHandler struct {
	Service *service.ArchiveService
}

func NewCampaignHandler(svc *service.ArchiveService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Service.ListCampaigns(r.Context())
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", campaigns)
}

func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.Service.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", campaign)
}

func (h *CampaignHandler) CampaignsByMarketer(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Service.CampaignsByMarketer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", campaigns)
}

func (h *CampaignHandler) MarketerDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Service.MarketerDashboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", dash)
}

func (h *CampaignHandler) ListDescriptions(w http.ResponseWriter, r *http.Request) {
	descriptions, err := h.Service.DescriptionsForList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", descriptions)
}

func (h *CampaignHandler) GetDescription(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDescription(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "descriptionId"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", d)
}

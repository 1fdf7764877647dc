// internal/handler/mail_handler.go
package handler

import (
	"net/http"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

type MailHandler struct {
	Dispatch *service.DispatchService
}

// Send delivers one campaign to every contact of the list in the body.
func (h *MailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.Dispatch.Send(r.Context(), req)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "mail sent", result)
}

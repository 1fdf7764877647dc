// internal/handler/routes.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/controller"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Routes collects every HTTP entry point of the API.
type Routes struct {
	Lists       *controller.ListController
	Credentials *controller.CredentialController
	Marketers   *controller.MarketerController
	Campaigns   *CampaignHandler
	Mail        *MailHandler
	DB          Pinger
}

// SetupRoutes builds the router. allowedOrigins configures CORS.
func SetupRoutes(rt Routes, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", rt.health)

	r.Route("/activity-lists", func(r chi.Router) {
		r.Post("/", rt.Lists.CreateList)
		r.Get("/", rt.Lists.ListLists)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.Lists.GetList)
			r.Put("/", rt.Lists.RenameList)
			r.Delete("/", rt.Lists.DeleteList)
			r.Get("/contacts", rt.Lists.GetContacts)
			r.Post("/contacts", rt.Lists.AddContact)
			r.Post("/upload", rt.Lists.UploadContacts)
			r.Get("/descriptions", rt.Campaigns.ListDescriptions)
			r.Get("/descriptions/{descriptionId}", rt.Campaigns.GetDescription)
		})
	})

	r.Put("/contacts/{contactId}", rt.Lists.UpdateContact)
	r.Delete("/contacts/{contactId}", rt.Lists.DeleteContact)

	r.Post("/mail/send", rt.Mail.Send)

	r.Get("/campaigns", rt.Campaigns.ListCampaigns)
	r.Get("/campaigns/{id}", rt.Campaigns.GetCampaign)

	r.Route("/marketers/{id}", func(r chi.Router) {
		r.Get("/activity-lists", rt.Lists.ListsByMarketer)
		r.Get("/campaigns", rt.Campaigns.CampaignsByMarketer)
		r.Get("/dashboard", rt.Campaigns.MarketerDashboard)
		r.Post("/credential", rt.Marketers.AssignCredential)
		r.Put("/approval", rt.Marketers.SetApproval)
	})

	r.Route("/smtp-credentials", func(r chi.Router) {
		r.Post("/", rt.Credentials.PutCredential)
		r.Patch("/", rt.Credentials.UpdateCredential)
		r.Get("/", rt.Credentials.ListCredentials)
		r.Delete("/", rt.Credentials.DeleteCredentialByUser)
		r.Get("/{id}", rt.Credentials.GetCredential)
		r.Delete("/{id}", rt.Credentials.DeleteCredential)
	})

	return r
}

func (rt Routes) health(w http.ResponseWriter, r *http.Request) {
	if rt.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.DB.PingContext(ctx); err != nil {
			httputil.JSON(w, http.StatusServiceUnavailable, httputil.Envelope{Status: "error", Message: "database unreachable"})
			return
		}
	}
	httputil.OK(w, "ok", nil)
}

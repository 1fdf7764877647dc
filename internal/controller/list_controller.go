// internal/controller/list_controller.go
package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/httputil"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/service"
)

// DefaultMaxUploadBytes caps a contact upload when the controller does not
// set its own limit.
const DefaultMaxUploadBytes int64 = 10 << 20

type ListController struct {
	ListService    *service.ListService
	MaxUploadBytes int64
}

func listQuery(r *http.Request) service.ListQuery {
	q := r.URL.Query()
	return service.ListQuery{
		Page:      httputil.QueryInt(r, "page"),
		Limit:     httputil.QueryInt(r, "limit"),
		Search:    q.Get("search"),
		SortField: q.Get("sortField"),
		SortOrder: q.Get("sortOrder"),
	}
}

func (c *ListController) CreateList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		MarketerID string `json:"marketerId"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	list, err := c.ListService.CreateList(r.Context(), body.Name, body.MarketerID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, "activity list created", list)
}

func (c *ListController) ListLists(w http.ResponseWriter, r *http.Request) {
	page, err := c.ListService.ListLists(r.Context(), listQuery(r))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", page)
}

func (c *ListController) ListsByMarketer(w http.ResponseWriter, r *http.Request) {
	page, err := c.ListService.ListsByMarketer(r.Context(), chi.URLParam(r, "id"), listQuery(r))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", page)
}

func (c *ListController) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := c.ListService.GetList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", list)
}

func (c *ListController) RenameList(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	list, err := c.ListService.RenameList(r.Context(), chi.URLParam(r, "id"), body.Name)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "activity list renamed", list)
}

func (c *ListController) DeleteList(w http.ResponseWriter, r *http.Request) {
	if err := c.ListService.DeleteList(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "activity list deleted", nil)
}

func (c *ListController) GetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := c.ListService.GetContacts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "", contacts)
}

func (c *ListController) AddContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	contact, err := c.ListService.AddContact(r.Context(), chi.URLParam(r, "id"), body.Name, body.Email)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.Created(w, "contact added", contact)
}

// UpdateContact applies only the fields present in the body.
func (c *ListController) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	contact, err := c.ListService.UpdateContact(r.Context(), chi.URLParam(r, "contactId"), body.Name, body.Email)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "contact updated", contact)
}

func (c *ListController) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := c.ListService.DeleteContact(r.Context(), chi.URLParam(r, "contactId")); err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "contact deleted", nil)
}

// UploadContacts reads the multipart field "file" and merges its rows into
// the list.
func (c *ListController) UploadContacts(w http.ResponseWriter, r *http.Request) {
	limit := c.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	if r.ContentLength > limit {
		uploadTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			uploadTooLarge(w)
			return
		}
		httputil.BadRequest(w, "a file must be uploaded in the \"file\" field")
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		httputil.BadRequest(w, "could not read uploaded file")
		return
	}

	result, err := c.ListService.IngestContacts(r.Context(), chi.URLParam(r, "id"), header.Filename, body)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.OK(w, "contacts uploaded", result)
}

func uploadTooLarge(w http.ResponseWriter) {
	httputil.JSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
		Status: "error", Kind: "validation", Message: "uploaded file is too large",
	})
}

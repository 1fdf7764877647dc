package controller_test

import (
	"context"
	"sync"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

// withParams attaches chi URL params so controllers can be called directly.
func withParams(ctx context.Context, kv ...string) context.Context {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

type MockListRepo struct {
	mu    sync.Mutex
	lists map[string]*model.ActivityList
	order []string
}

func NewMockListRepo(lists ...*model.ActivityList) *MockListRepo {
	r := &MockListRepo{lists: map[string]*model.ActivityList{}}
	for _, l := range lists {
		l.Version = 1
		r.lists[l.ActivityID] = l
		r.order = append(r.order, l.ActivityID)
	}
	return r
}

func clone(l *model.ActivityList) *model.ActivityList {
	cp := *l
	cp.Contacts = append([]model.Contact{}, l.Contacts...)
	return &cp
}

func (m *MockListRepo) Create(_ context.Context, l *model.ActivityList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Version = 1
	m.lists[l.ActivityID] = clone(l)
	m.order = append(m.order, l.ActivityID)
	return nil
}

func (m *MockListRepo) GetByID(_ context.Context, id string) (*model.ActivityList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, appErrors.NewListNotFound(id)
	}
	return clone(l), nil
}

func (m *MockListRepo) FindByContactID(_ context.Context, contactID string) (*model.ActivityList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if l, ok := m.lists[id]; ok {
			for _, c := range l.Contacts {
				if c.ContactID == contactID {
					return clone(l), nil
				}
			}
		}
	}
	return nil, appErrors.NotFound("contact %s not found", contactID)
}

func (m *MockListRepo) NameTaken(_ context.Context, name, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.lists {
		if id != excludeID && l.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockListRepo) List(_ context.Context, f repository.ListFilter) ([]*model.ActivityList, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.ActivityList
	for _, id := range m.order {
		if l, ok := m.lists[id]; ok && (f.MarketerID == "" || l.MarketerID == f.MarketerID) {
			all = append(all, clone(l))
		}
	}
	total := len(all)
	if f.Offset >= total {
		return []*model.ActivityList{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (m *MockListRepo) Rename(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return appErrors.NewListNotFound(id)
	}
	l.Name = name
	return nil
}

func (m *MockListRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return appErrors.NewListNotFound(id)
	}
	delete(m.lists, id)
	return nil
}

func (m *MockListRepo) SaveContacts(_ context.Context, id string, contacts []model.Contact, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return appErrors.NewListNotFound(id)
	}
	if l.Version != version {
		return appErrors.ErrVersionConflict
	}
	l.Contacts = append([]model.Contact{}, contacts...)
	l.Version++
	return nil
}

func (m *MockListRepo) CountByMarketer(_ context.Context, marketerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lists {
		if l.MarketerID == marketerID {
			n++
		}
	}
	return n, nil
}

type MockMarketerRepo struct {
	marketers map[string]*model.Marketer
	creds     map[string]bool
}

func NewMockMarketerRepo(ms ...*model.Marketer) *MockMarketerRepo {
	r := &MockMarketerRepo{marketers: map[string]*model.Marketer{}, creds: map[string]bool{}}
	for _, m := range ms {
		r.marketers[m.MarketerID] = m
	}
	return r
}

func (r *MockMarketerRepo) GetByID(_ context.Context, id string) (*model.Marketer, error) {
	m, ok := r.marketers[id]
	if !ok {
		return nil, appErrors.NotFound("marketer %s not found", id)
	}
	cp := *m
	return &cp, nil
}

func (r *MockMarketerRepo) Create(_ context.Context, m *model.Marketer) error {
	r.marketers[m.MarketerID] = m
	return nil
}

func (r *MockMarketerRepo) SetApproval(_ context.Context, id string, status model.ApprovalStatus) error {
	m, ok := r.marketers[id]
	if !ok {
		return appErrors.NotFound("marketer %s not found", id)
	}
	m.ApprovalStatus = status
	return nil
}

func (r *MockMarketerRepo) AssignCredential(_ context.Context, id, credentialID string) error {
	m, ok := r.marketers[id]
	if !ok {
		return appErrors.NotFound("marketer %s not found", id)
	}
	if !r.creds[credentialID] {
		return appErrors.NotFound("credential %s not found", credentialID)
	}
	m.CredentialID = &credentialID
	return nil
}

type MockCredentialRepo struct {
	byID map[string]*model.SmtpCredential
}

func NewMockCredentialRepo() *MockCredentialRepo {
	return &MockCredentialRepo{byID: map[string]*model.SmtpCredential{}}
}

func (m *MockCredentialRepo) Create(_ context.Context, c *model.SmtpCredential) error {
	cp := *c
	m.byID[c.CredentialID] = &cp
	return nil
}

func (m *MockCredentialRepo) Update(_ context.Context, c *model.SmtpCredential) error {
	if _, ok := m.byID[c.CredentialID]; !ok {
		return appErrors.NotFound("credential %s not found", c.CredentialID)
	}
	cp := *c
	m.byID[c.CredentialID] = &cp
	return nil
}

func (m *MockCredentialRepo) GetByID(_ context.Context, id string) (*model.SmtpCredential, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, appErrors.NotFound("credential %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *MockCredentialRepo) GetByUser(_ context.Context, user string) (*model.SmtpCredential, error) {
	for _, c := range m.byID {
		if c.User == user {
			cp := *c
			return &cp, nil
		}
	}
	return nil, appErrors.NotFound("credential for %s not found", user)
}

func (m *MockCredentialRepo) List(_ context.Context, offset, limit int) ([]*model.SmtpCredential, int, error) {
	var out []*model.SmtpCredential
	for _, c := range m.byID {
		cp := *c
		out = append(out, &cp)
	}
	total := len(out)
	if offset >= total {
		return []*model.SmtpCredential{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *MockCredentialRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return appErrors.NotFound("credential %s not found", id)
	}
	delete(m.byID, id)
	return nil
}

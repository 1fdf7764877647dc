package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/mailer"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
)

// MockListRepo keeps activity lists in memory with the same version rules as
// the SQL repository.
type MockListRepo struct {
	mu    sync.Mutex
	lists map[string]*model.ActivityList
	order []string
	saves int

	// conflicts makes the next N SaveContacts calls fail with a version conflict.
	conflicts int
}

func NewMockListRepo(lists ...*model.ActivityList) *MockListRepo {
	r := &MockListRepo{lists: map[string]*model.ActivityList{}}
	for _, l := range lists {
		if l.Version == 0 {
			l.Version = 1
		}
		r.lists[l.ActivityID] = l
		r.order = append(r.order, l.ActivityID)
	}
	return r
}

func cloneList(l *model.ActivityList) *model.ActivityList {
	cp := *l
	cp.Contacts = append([]model.Contact{}, l.Contacts...)
	return &cp
}

func (m *MockListRepo) Create(_ context.Context, l *model.ActivityList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.lists {
		if existing.Name == l.Name {
			return appErrors.Conflict("duplicate name")
		}
	}
	l.Version = 1
	m.lists[l.ActivityID] = cloneList(l)
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
	return cloneList(l), nil
}

func (m *MockListRepo) FindByContactID(_ context.Context, contactID string) (*model.ActivityList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		l, ok := m.lists[id]
		if !ok {
			continue
		}
		for _, c := range l.Contacts {
			if c.ContactID == contactID {
				return cloneList(l), nil
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
		l, ok := m.lists[id]
		if !ok {
			continue
		}
		if f.MarketerID != "" && l.MarketerID != f.MarketerID {
			continue
		}
		if f.Search != "" {
			s := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(l.Name), s) && !strings.Contains(strings.ToLower(l.MarketerName), s) {
				continue
			}
		}
		all = append(all, cloneList(l))
	}
	if f.SortField == "name" {
		sort.SliceStable(all, func(i, j int) bool {
			if f.SortDesc {
				return all[i].Name > all[j].Name
			}
			return all[i].Name < all[j].Name
		})
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
	if m.conflicts > 0 {
		m.conflicts--
		l.Version++
		return appErrors.ErrVersionConflict
	}
	if l.Version != version {
		return appErrors.ErrVersionConflict
	}
	l.Contacts = append([]model.Contact{}, contacts...)
	l.Version++
	m.saves++
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

func (m *MockListRepo) get(id string) *model.ActivityList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists[id]
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

func (m *MockMarketerRepo) GetByID(_ context.Context, id string) (*model.Marketer, error) {
	mk, ok := m.marketers[id]
	if !ok {
		return nil, appErrors.NotFound("marketer %s not found", id)
	}
	cp := *mk
	return &cp, nil
}

func (m *MockMarketerRepo) Create(_ context.Context, mk *model.Marketer) error {
	m.marketers[mk.MarketerID] = mk
	return nil
}

func (m *MockMarketerRepo) SetApproval(_ context.Context, id string, status model.ApprovalStatus) error {
	mk, ok := m.marketers[id]
	if !ok {
		return appErrors.NotFound("marketer %s not found", id)
	}
	mk.ApprovalStatus = status
	return nil
}

func (m *MockMarketerRepo) AssignCredential(_ context.Context, id, credentialID string) error {
	if !m.creds[credentialID] {
		return appErrors.NotFound("credential %s not found", credentialID)
	}
	mk, ok := m.marketers[id]
	if !ok {
		return appErrors.NotFound("marketer %s not found", id)
	}
	mk.CredentialID = &credentialID
	return nil
}

// MockArchiveRepo records sends; failWith makes RecordSend fail. Like a real
// database it refuses a cancelled context.
type MockArchiveRepo struct {
	mu           sync.Mutex
	lists        *MockListRepo
	campaigns    []*model.Campaign
	descriptions []*model.MailDescription
	failWith     error
}

func (m *MockArchiveRepo) RecordSend(ctx context.Context, d *model.MailDescription, c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failWith != nil {
		return m.failWith
	}
	if m.lists != nil {
		l := m.lists.get(c.ActivityID)
		if l == nil {
			return appErrors.NewListNotFound(c.ActivityID)
		}
		l.MailSent = model.Sent
	}
	m.descriptions = append(m.descriptions, d)
	m.campaigns = append(m.campaigns, c)
	return nil
}

func (m *MockArchiveRepo) ListCampaigns(_ context.Context) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*model.Campaign{}, m.campaigns...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (m *MockArchiveRepo) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.CampaignID == id {
			return c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *MockArchiveRepo) CampaignsByMarketer(_ context.Context, marketerID string) ([]*model.Campaign, error) {
	all, _ := m.ListCampaigns(context.Background())
	out := []*model.Campaign{}
	for _, c := range all {
		if c.MarketerID == marketerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockArchiveRepo) CountByMarketer(ctx context.Context, marketerID string) (int, error) {
	cs, _ := m.CampaignsByMarketer(ctx, marketerID)
	return len(cs), nil
}

func (m *MockArchiveRepo) DescriptionsForList(_ context.Context, activityID string) ([]*model.MailDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.MailDescription{}
	for i := len(m.descriptions) - 1; i >= 0; i-- {
		if m.descriptions[i].ActivityID == activityID {
			out = append(out, m.descriptions[i])
		}
	}
	return out, nil
}

func (m *MockArchiveRepo) GetDescription(_ context.Context, activityID, descriptionID string) (*model.MailDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.descriptions {
		if d.ActivityID == activityID && d.DescriptionID == descriptionID {
			return d, nil
		}
	}
	return nil, appErrors.NotFound("description %s not found", descriptionID)
}

// MockCredentials resolves credentials without real encryption.
type MockCredentials struct {
	creds      map[string]*model.SmtpCredential
	passwords  map[string]string
	decryptErr error
}

func (m *MockCredentials) Get(_ context.Context, id string) (*model.SmtpCredential, error) {
	c, ok := m.creds[id]
	if !ok {
		return nil, appErrors.NotFound("credential %s not found", id)
	}
	return c, nil
}

func (m *MockCredentials) Password(c *model.SmtpCredential) (string, error) {
	if m.decryptErr != nil {
		return "", m.decryptErr
	}
	return m.passwords[c.CredentialID], nil
}

// FaultTransport records envelopes and fails when err is set.
type FaultTransport struct {
	mu       sync.Mutex
	sent     []*mailer.Envelope
	err      error
	msgID    string
	deadline time.Time
}

func (f *FaultTransport) Send(ctx context.Context, env *mailer.Envelope) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline, _ = ctx.Deadline()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, env)
	return f.msgID, nil
}

// HangUpTransport cancels the caller's context after the server accepts the
// message, like a client disconnecting mid-request.
type HangUpTransport struct {
	cancel context.CancelFunc
	msgID  string
}

func (h *HangUpTransport) Send(ctx context.Context, _ *mailer.Envelope) (string, error) {
	h.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return h.msgID, nil
}

type RecordingQueue struct {
	mu       sync.Mutex
	topics   []string
	payloads []any
	err      error
}

func (q *RecordingQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.topics = append(q.topics, topic)
	q.payloads = append(q.payloads, payload)
	return q.err
}

func (q *RecordingQueue) Subscribe(string, func(any) error) error { return nil }

// MockLocker is an in-process ListLocker.
type MockLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	keys  []string
}

func (l *MockLocker) Do(ctx context.Context, key string, fn func(context.Context) error) error {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = map[string]*sync.Mutex{}
	}
	mu, ok := l.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[key] = mu
	}
	l.keys = append(l.keys, key)
	l.mu.Unlock()

	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

var (
	_ repository.ActivityListRepositoryInterface = (*MockListRepo)(nil)
	_ repository.MarketerRepositoryInterface     = (*MockMarketerRepo)(nil)
	_ repository.ArchiveRepositoryInterface      = (*MockArchiveRepo)(nil)
)

// internal/service/list_service.go
package service

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/ingest"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/logger"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/repository"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/storage"
)

// ListLocker serializes contact writers per list. *lock.Locker implements it.
type ListLocker interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

const maxVersionRetries = 3

type ListService struct {
	ListRepo     repository.ActivityListRepositoryInterface
	MarketerRepo repository.MarketerRepositoryInterface
	Locker       ListLocker
	Engine       *ingest.Engine
	Uploads      storage.UploadArchive
	NewID        func() string
}

// ListQuery is the caller-facing form of a list search.
type ListQuery struct {
	Page       int
	Limit      int
	Search     string
	MarketerID string
	SortField  string
	SortOrder  string
}

// IngestResult summarizes an upload that added at least one contact.
// Accepted holds the new contacts with their assigned ids.
type IngestResult struct {
	ActivityID    string          `json:"activityId"`
	Added         int             `json:"added"`
	Accepted      []model.Contact `json:"accepted"`
	Counts        ingest.Counts   `json:"skipped"`
	TotalRows     int             `json:"totalRows"`
	TotalContacts int             `json:"totalContacts"`
	ArchiveKey    string          `json:"archiveKey,omitempty"`
}

func (s *ListService) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *ListService) CreateList(ctx context.Context, name, marketerID string) (*model.ActivityList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Validation("name is required")
	}
	if strings.TrimSpace(marketerID) == "" {
		return nil, appErrors.Validation("marketerId is required")
	}

	marketer, err := s.MarketerRepo.GetByID(ctx, marketerID)
	if err != nil {
		return nil, err
	}
	taken, err := s.ListRepo.NameTaken(ctx, name, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Conflict("an activity list named %q already exists", name)
	}

	l := &model.ActivityList{
		ActivityID:   s.newID(),
		Name:         name,
		MarketerID:   marketer.MarketerID,
		MarketerName: marketer.Name,
		Contacts:     []model.Contact{},
		MailSent:     model.NotSent,
	}
	if err := s.ListRepo.Create(ctx, l); err != nil {
		return nil, err
	}
	logger.Info("activity list created", "activity_id", l.ActivityID, "marketer_id", l.MarketerID)
	return l, nil
}

func (s *ListService) GetList(ctx context.Context, id string) (*model.ActivityList, error) {
	return s.ListRepo.GetByID(ctx, id)
}

// ListLists pages through lists, newest first unless q says otherwise.
func (s *ListService) ListLists(ctx context.Context, q ListQuery) (model.Page[*model.ActivityList], error) {
	page, limit, offset := model.NormalizePage(q.Page, q.Limit)
	lists, total, err := s.ListRepo.List(ctx, repository.ListFilter{
		Search:     strings.TrimSpace(q.Search),
		MarketerID: q.MarketerID,
		SortField:  q.SortField,
		SortDesc:   !strings.EqualFold(q.SortOrder, "asc"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return model.Page[*model.ActivityList]{}, err
	}
	return model.NewPage(lists, total, page, limit), nil
}

func (s *ListService) ListsByMarketer(ctx context.Context, marketerID string, q ListQuery) (model.Page[*model.ActivityList], error) {
	if strings.TrimSpace(marketerID) == "" {
		return model.Page[*model.ActivityList]{}, appErrors.Validation("marketerId is required")
	}
	q.MarketerID = marketerID
	return s.ListLists(ctx, q)
}

func (s *ListService) RenameList(ctx context.Context, id, name string) (*model.ActivityList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Validation("name is required")
	}
	l, err := s.ListRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	taken, err := s.ListRepo.NameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Conflict("another activity list with the name %q already exists", name)
	}
	if err := s.ListRepo.Rename(ctx, id, name); err != nil {
		return nil, err
	}
	l.Name = name
	return l, nil
}

func (s *ListService) DeleteList(ctx context.Context, id string) error {
	if err := s.ListRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("activity list deleted", "activity_id", id)
	return nil
}

func (s *ListService) GetContacts(ctx context.Context, id string) ([]model.Contact, error) {
	l, err := s.ListRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.Contacts, nil
}

// mutateContacts runs change against a fresh read of the list and saves the
// contacts it returns, under the list lock. A concurrent version bump is
// retried from a new read.
func (s *ListService) mutateContacts(ctx context.Context, id string, change func(l *model.ActivityList) ([]model.Contact, error)) (*model.ActivityList, error) {
	var saved *model.ActivityList
	run := func(ctx context.Context) error {
		for attempt := 0; ; attempt++ {
			l, err := s.ListRepo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			contacts, err := change(l)
			if err != nil {
				return err
			}
			err = s.ListRepo.SaveContacts(ctx, l.ActivityID, contacts, l.Version)
			if errors.Is(err, appErrors.ErrVersionConflict) {
				if attempt < maxVersionRetries {
					logger.Warn("activity list version conflict, retrying", "activity_id", id, "attempt", attempt+1)
					continue
				}
				return appErrors.Wrap(appErrors.KindConflict, err, "activity list %s is being modified, try again", id)
			}
			if err != nil {
				return err
			}
			l.Contacts = contacts
			l.Version++
			saved = l
			return nil
		}
	}

	var err error
	if s.Locker != nil {
		err = s.Locker.Do(ctx, "activity-list:"+id, run)
	} else {
		err = run(ctx)
	}
	return saved, err
}

func withContact(contacts []model.Contact, c model.Contact) []model.Contact {
	out := make([]model.Contact, 0, len(contacts)+1)
	out = append(out, contacts...)
	return append(out, c)
}

func (s *ListService) AddContact(ctx context.Context, id, name, email string) (*model.Contact, error) {
	name, email, err := ingest.ValidateContact(name, email)
	if err != nil {
		return nil, err
	}

	contact := model.Contact{ContactID: s.newID(), Name: name, Email: email}
	_, err = s.mutateContacts(ctx, id, func(l *model.ActivityList) ([]model.Contact, error) {
		for _, c := range l.Contacts {
			if email != "" && strings.EqualFold(c.Email, email) {
				return nil, appErrors.Conflict("contact with email %s already exists in this list", email)
			}
			if email == "" && c.Name == name {
				return nil, appErrors.Conflict("contact named %q already exists in this list", name)
			}
		}
		return withContact(l.Contacts, contact), nil
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// UpdateContact changes the name and/or email of a contact, wherever it
// lives. Nil fields keep their current value.
func (s *ListService) UpdateContact(ctx context.Context, contactID string, name, email *string) (*model.Contact, error) {
	if name == nil && email == nil {
		return nil, appErrors.Validation("nothing to update: provide name or email")
	}
	owner, err := s.ListRepo.FindByContactID(ctx, contactID)
	if err != nil {
		return nil, err
	}

	var updated model.Contact
	_, err = s.mutateContacts(ctx, owner.ActivityID, func(l *model.ActivityList) ([]model.Contact, error) {
		idx := indexOfContact(l.Contacts, contactID)
		if idx < 0 {
			return nil, appErrors.NotFound("contact %s not found", contactID)
		}
		next := l.Contacts[idx]
		if name != nil {
			next.Name = *name
		}
		if email != nil {
			next.Email = *email
		}
		var err error
		next.Name, next.Email, err = ingest.ValidateContact(next.Name, next.Email)
		if err != nil {
			return nil, err
		}
		for i, c := range l.Contacts {
			if i != idx && next.Email != "" && strings.EqualFold(c.Email, next.Email) {
				return nil, appErrors.Conflict("another contact with email %s already exists in this list", next.Email)
			}
		}

		out := make([]model.Contact, len(l.Contacts))
		copy(out, l.Contacts)
		out[idx] = next
		updated = next
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ListService) DeleteContact(ctx context.Context, contactID string) error {
	owner, err := s.ListRepo.FindByContactID(ctx, contactID)
	if err != nil {
		return err
	}
	_, err = s.mutateContacts(ctx, owner.ActivityID, func(l *model.ActivityList) ([]model.Contact, error) {
		idx := indexOfContact(l.Contacts, contactID)
		if idx < 0 {
			return nil, appErrors.NotFound("contact %s not found", contactID)
		}
		out := make([]model.Contact, 0, len(l.Contacts)-1)
		out = append(out, l.Contacts[:idx]...)
		return append(out, l.Contacts[idx+1:]...), nil
	})
	return err
}

func indexOfContact(contacts []model.Contact, contactID string) int {
	for i, c := range contacts {
		if c.ContactID == contactID {
			return i
		}
	}
	return -1
}

// IngestContacts merges an uploaded file into the list. All accepted rows
// are saved in one write; if none are accepted nothing is written.
func (s *ListService) IngestContacts(ctx context.Context, id, filename string, body []byte) (*IngestResult, error) {
	if err := ingest.CheckFormat(filename); err != nil {
		return nil, err
	}
	engine := s.Engine
	if engine == nil {
		engine = ingest.NewEngine()
	}

	var res *ingest.Result
	saved, err := s.mutateContacts(ctx, id, func(l *model.ActivityList) ([]model.Contact, error) {
		r, err := ingest.NewReader(filename, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()

		res, err = engine.Ingest(l.Contacts, r)
		if err != nil {
			return nil, err
		}
		if len(res.Accepted) == 0 {
			return nil, appErrors.Validation("no new contacts found (empty: %d, duplicate: %d, invalid email: %d)",
				res.Counts.Empty, res.Counts.Duplicate, res.Counts.InvalidEmail)
		}
		out := make([]model.Contact, 0, len(l.Contacts)+len(res.Accepted))
		out = append(out, l.Contacts...)
		return append(out, res.Accepted...), nil
	})
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		ActivityID:    id,
		Added:         len(res.Accepted),
		Accepted:      res.Accepted,
		Counts:        res.Counts,
		TotalRows:     res.Total,
		TotalContacts: len(saved.Contacts),
	}
	logger.Info("contacts ingested", "activity_id", id, "added", result.Added,
		"empty", res.Counts.Empty, "duplicate", res.Counts.Duplicate, "invalid_email", res.Counts.InvalidEmail)

	if s.Uploads != nil {
		key, err := s.Uploads.Archive(ctx, id, filename, body)
		if err != nil {
			logger.Warn("raw upload not archived", "activity_id", id, "error", err.Error())
		} else {
			result.ArchiveKey = key
		}
	}
	return result, nil
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

type ActivityListRepositoryInterface interface {
	Create(ctx context.Context, l *model.ActivityList) error
	GetByID(ctx context.Context, id string) (*model.ActivityList, error)
	FindByContactID(ctx context.Context, contactID string) (*model.ActivityList, error)
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*model.ActivityList, int, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	SaveContacts(ctx context.Context, id string, contacts []model.Contact, version int) error
	CountByMarketer(ctx context.Context, marketerID string) (int, error)
}

// ListFilter controls pagination, search and ordering of activity lists.
type ListFilter struct {
	Search     string
	MarketerID string
	SortField  string
	SortDesc   bool
	Offset     int
	Limit      int
}

var listSortColumns = map[string]string{
	"createdAt":    "created_at",
	"created_at":   "created_at",
	"name":         "name",
	"marketerName": "marketer_name",
	"updatedAt":    "updated_at",
}

type ActivityListRepository struct {
	DB *sql.DB
}

const activityListColumns = `activity_id, name, marketer_id, marketer_name, contacts, mail_sent, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivityList(row rowScanner) (*model.ActivityList, error) {
	var l model.ActivityList
	var raw []byte
	if err := row.Scan(&l.ActivityID, &l.Name, &l.MarketerID, &l.MarketerName, &raw, &l.MailSent, &l.Version, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	contacts, err := decodeContacts(raw)
	if err != nil {
		return nil, fmt.Errorf("decode contacts of %s: %w", l.ActivityID, err)
	}
	l.Contacts = contacts
	return &l, nil
}

func (r *ActivityListRepository) Create(ctx context.Context, l *model.ActivityList) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	l.Version = 1
	raw, err := encodeContacts(l.Contacts)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `
        INSERT INTO activity_lists (activity_id, name, marketer_id, marketer_name, contacts, mail_sent, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, l.ActivityID, l.Name, l.MarketerID, l.MarketerName, raw, l.MailSent, l.Version, l.CreatedAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return appErrors.Conflict("an activity list named %q already exists", l.Name)
	}
	return err
}

func (r *ActivityListRepository) GetByID(ctx context.Context, id string) (*model.ActivityList, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+activityListColumns+` FROM activity_lists WHERE activity_id=$1`, id)
	l, err := scanActivityList(row)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewListNotFound(id)
	}
	return l, err
}

// FindByContactID returns the list holding the given contact.
func (r *ActivityListRepository) FindByContactID(ctx context.Context, contactID string) (*model.ActivityList, error) {
	match, err := json.Marshal([]map[string]string{{"contactId": contactID}})
	if err != nil {
		return nil, err
	}
	row := r.DB.QueryRowContext(ctx, `
        SELECT `+activityListColumns+`
        FROM activity_lists
        WHERE contacts @> $1::jsonb
        LIMIT 1
    `, string(match))
	l, err := scanActivityList(row)
	if err == sql.ErrNoRows {
		return nil, appErrors.NotFound("contact %s not found", contactID)
	}
	return l, err
}

func (r *ActivityListRepository) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_lists WHERE name=$1 AND activity_id<>$2`, name, excludeID).Scan(&n)
	return n > 0, err
}

func (r *ActivityListRepository) List(ctx context.Context, f ListFilter) ([]*model.ActivityList, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if f.MarketerID != "" {
		where += fmt.Sprintf(" AND marketer_id=$%d", argPos)
		args = append(args, f.MarketerID)
		argPos++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR marketer_name ILIKE $%d)", argPos, argPos)
		args = append(args, likePattern(f.Search))
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_lists`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := listSortColumns[f.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}

	query := `SELECT ` + activityListColumns + ` FROM activity_lists` + where +
		fmt.Sprintf(" ORDER BY %s %s, activity_id LIMIT $%d OFFSET $%d", column, direction, argPos, argPos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	lists := []*model.ActivityList{}
	for rows.Next() {
		l, err := scanActivityList(rows)
		if err != nil {
			return nil, 0, err
		}
		lists = append(lists, l)
	}
	return lists, total, rows.Err()
}

func (r *ActivityListRepository) Rename(ctx context.Context, id, name string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE activity_lists SET name=$1, updated_at=NOW() WHERE activity_id=$2`, name, id)
	if isUniqueViolation(err) {
		return appErrors.Conflict("another activity list with the name %q already exists", name)
	}
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NewListNotFound(id))
}

func (r *ActivityListRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM activity_lists WHERE activity_id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, appErrors.NewListNotFound(id))
}

// SaveContacts replaces the contact snapshot if the row is still at version.
// It returns ErrVersionConflict when another writer got there first.
func (r *ActivityListRepository) SaveContacts(ctx context.Context, id string, contacts []model.Contact, version int) error {
	raw, err := encodeContacts(contacts)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
        UPDATE activity_lists
        SET contacts=$1, version=version+1, updated_at=NOW()
        WHERE activity_id=$2 AND version=$3
    `, raw, id, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM activity_lists WHERE activity_id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return appErrors.NewListNotFound(id)
	}
	return appErrors.ErrVersionConflict
}

func (r *ActivityListRepository) CountByMarketer(ctx context.Context, marketerID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_lists WHERE marketer_id=$1`, marketerID).Scan(&n)
	return n, err
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ ActivityListRepositoryInterface = (*ActivityListRepository)(nil)

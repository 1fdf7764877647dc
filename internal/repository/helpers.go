package repository

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/lib/pq"

	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func constraintOf(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// encodeContacts returns the JSONB text for a contact snapshot. lib/pq sends
// []byte as bytea, so jsonb parameters must be strings.
func encodeContacts(contacts []model.Contact) (string, error) {
	if contacts == nil {
		contacts = []model.Contact{}
	}
	raw, err := json.Marshal(contacts)
	return string(raw), err
}

func decodeContacts(raw []byte) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if len(raw) == 0 {
		return contacts, nil
	}
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}

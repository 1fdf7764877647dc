// Package ingest turns uploaded contact files into deduplicated contacts.
package ingest

import (
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"

	appErrors "github.com/ipriyanshu25/fluentcrm-backend/internal/errors"
	"github.com/ipriyanshu25/fluentcrm-backend/internal/model"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// Counts tallies rows that were read but not accepted.
type Counts struct {
	Empty        int `json:"empty"`
	Duplicate    int `json:"duplicate"`
	InvalidEmail int `json:"invalidEmail"`
}

// Result of one upload. len(Accepted) + the three counts always equals Total.
type Result struct {
	Accepted []model.Contact `json:"accepted"`
	Counts   Counts          `json:"counts"`
	Total    int             `json:"total"`
}

type Engine struct {
	NewID func() string
}

func NewEngine() *Engine {
	return &Engine{NewID: uuid.NewString}
}

// Ingest applies the row policy to every row of r against the emails already
// present in existing. It never modifies existing.
func (e *Engine) Ingest(existing []model.Contact, r RowReader) (*Result, error) {
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		if c.Email != "" {
			seen[strings.ToLower(c.Email)] = struct{}{}
		}
	}

	res := &Result{Accepted: []model.Contact{}}
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		res.Total++

		name := strings.TrimSpace(row.Name)
		email := strings.TrimSpace(row.Email)
		if name == "" && email == "" {
			res.Counts.Empty++
			continue
		}
		if email != "" && !ValidEmail(email) {
			res.Counts.InvalidEmail++
			continue
		}
		email = strings.ToLower(email)
		if email != "" {
			if _, dup := seen[email]; dup {
				res.Counts.Duplicate++
				continue
			}
			seen[email] = struct{}{}
		}

		res.Accepted = append(res.Accepted, model.Contact{
			ContactID: e.NewID(),
			Name:      name,
			Email:     email,
		})
	}
	return res, nil
}

// ValidateContact normalizes a manually entered contact with the same rules
// uploads use. It returns the trimmed name and lower-cased email.
func ValidateContact(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" && email == "" {
		return "", "", appErrors.Validation("name or email is required")
	}
	if email != "" && !ValidEmail(email) {
		return "", "", appErrors.Validation("invalid email format: %s", email)
	}
	return name, strings.ToLower(email), nil
}

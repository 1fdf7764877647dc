// internal/model/activity_list.go
package model

import "time"

type SentFlag int

const (
	NotSent SentFlag = 0
	Sent    SentFlag = 1
)

func (f SentFlag) String() string {
	if f == Sent {
		return "SENT"
	}
	return "NOT_SENT"
}

// ActivityList is a marketer-owned, named collection of contacts. Contacts
// and MarketerName are stored denormalized on the row.
type ActivityList struct {
	ActivityID   string    `db:"activity_id" json:"activityId"`
	Name         string    `db:"name" json:"name"`
	MarketerID   string    `db:"marketer_id" json:"marketerId"`
	MarketerName string    `db:"marketer_name" json:"marketerName"`
	Contacts     []Contact `db:"contacts" json:"contacts"`
	MailSent     SentFlag  `db:"mail_sent" json:"mailSent"`
	Version      int       `db:"version" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Emails returns every non-empty contact email in list order.
func (l *ActivityList) Emails() []string {
	emails := make([]string, 0, len(l.Contacts))
	for _, c := range l.Contacts {
		if c.Email != "" {
			emails = append(emails, c.Email)
		}
	}
	return emails
}

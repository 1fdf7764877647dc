// internal/model/contact.go
package model

// Contact is one recipient inside an activity list. At least one of Name or
// Email is set; Email is lower-cased and unique within its list.
type Contact struct {
	ContactID string `json:"contactId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

package webhook

import (
	"encoding/json"
	"errors"
	"strings"
)

// Identity lifecycle event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the provider envelope.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserData is the user payload carried by user.* events.
type UserData struct {
	ID                    string         `json:"id"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// EmailAddress is one of a user's addresses.
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// ParseEvent decodes the envelope. The type must be present.
func ParseEvent(payload []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, err
	}
	if evt.Type == "" {
		return nil, errors.New("event type missing")
	}
	return &evt, nil
}

// User decodes the data section as a user object.
func (e *Event) User() (*UserData, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, errors.New("event data missing")
	}
	var user UserData
	if err := json.Unmarshal(e.Data, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("user id missing")
	}
	return &user, nil
}

// PrimaryEmail returns the address whose id matches primary_email_address_id.
func (u *UserData) PrimaryEmail() (string, bool) {
	for _, addr := range u.EmailAddresses {
		if addr.ID == u.PrimaryEmailAddressID {
			email := strings.TrimSpace(addr.EmailAddress)
			return email, email != ""
		}
	}
	return "", false
}

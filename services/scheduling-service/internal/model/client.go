package model

import (
	"fmt"
	"net/mail"
	"strings"
)

// ClientInfo is who booked. Extra holds activity-specific form fields.
type ClientInfo struct {
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Phone string            `json:"phone,omitempty"`
	Notes string            `json:"notes,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

func NewClientInfo(name, email, phone, notes string, extra map[string]string) (ClientInfo, error) {
	c := ClientInfo{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Phone: strings.TrimSpace(phone),
		Notes: strings.TrimSpace(notes),
	}
	if len(extra) > 0 {
		c.Extra = make(map[string]string, len(extra))
		for k, v := range extra {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			c.Extra[k] = strings.TrimSpace(v)
		}
	}
	if err := c.Validate(); err != nil {
		return ClientInfo{}, err
	}
	return c, nil
}

func (c ClientInfo) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidClientInfo)
	}
	if c.Email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidClientInfo)
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return fmt.Errorf("%w: email %q is not a valid address", ErrInvalidClientInfo, c.Email)
	}
	return nil
}

// Field looks up a named form field. Built-in names are case-insensitive; extra
// field keys are matched after trimming, as NewClientInfo stores them.
func (c ClientInfo) Field(name string) string {
	name = strings.TrimSpace(name)
	switch strings.ToLower(name) {
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "notes":
		return c.Notes
	}
	return c.Extra[name]
}

// Require fails when any of the named fields is empty.
func (c ClientInfo) Require(fields []string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(c.Field(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields %s", ErrInvalidClientInfo, strings.Join(missing, ", "))
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnknownContactField = errors.New("unknown contact field")
	ErrInvalidContact      = errors.New("invalid contact value")
)

// ContactField names one field of ContactProfile, using its persisted key.
type ContactField string

const (
	FieldFullName    ContactField = "fullName"
	FieldCompanyName ContactField = "companyName"
	FieldPhone       ContactField = "phone"
	FieldEmail       ContactField = "email"
	FieldCountry     ContactField = "country"
)

// ContactFieldOrder is the display and message order.
var ContactFieldOrder = []ContactField{FieldFullName, FieldEmail, FieldPhone, FieldCompanyName, FieldCountry}

// ContactProfile holds the visitor's contact data.
type ContactProfile struct {
	FullName    string `json:"fullName"`
	CompanyName string `json:"companyName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Country     string `json:"country"`
}

func (c ContactProfile) Value(f ContactField) string {
	switch f {
	case FieldFullName:
		return c.FullName
	case FieldCompanyName:
		return c.CompanyName
	case FieldPhone:
		return c.Phone
	case FieldEmail:
		return c.Email
	case FieldCountry:
		return c.Country
	}
	return ""
}

func (c *ContactProfile) Set(f ContactField, value string) error {
	switch f {
	case FieldFullName:
		c.FullName = value
	case FieldCompanyName:
		c.CompanyName = value
	case FieldPhone:
		c.Phone = value
	case FieldEmail:
		c.Email = value
	case FieldCountry:
		c.Country = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContactField, f)
	}
	return nil
}

// IsReady reports whether the mandatory fields for dispatch are present.
func (c ContactProfile) IsReady() bool {
	return strings.TrimSpace(c.FullName) != "" && strings.TrimSpace(c.Email) != ""
}

// Required reports whether f must be filled before dispatch.
func (f ContactField) Required() bool {
	return f == FieldFullName || f == FieldEmail
}

// ValidateContactField applies the contact form rules: a name of at least two
// characters and a well-formed email. Optional fields accept anything.
func ValidateContactField(f ContactField, value string) error {
	value = strings.TrimSpace(value)
	switch f {
	case FieldFullName:
		if utf8.RuneCountInString(value) < 2 {
			return fmt.Errorf("%w: full name is required", ErrInvalidContact)
		}
	case FieldEmail:
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return fmt.Errorf("%w: invalid email %q", ErrInvalidContact, value)
		}
	case FieldCompanyName, FieldPhone, FieldCountry:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownContactField, f)
	}
	return nil
}

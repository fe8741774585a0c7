package models

import "strings"

// OtherID is the sentinel option that asks the visitor for free text.
const OtherID = "other"

// Choice is a selected catalog option. Other is only meaningful when the
// option is OtherID.
type Choice struct {
	ID    string
	Other string
}

// Pick selects an option without free text.
func Pick(id string) Choice {
	return Choice{ID: id}
}

// WithOther attaches free text. It is dropped for any option but OtherID.
func (c Choice) WithOther(text string) Choice {
	if !c.IsOther() {
		c.Other = ""
		return c
	}
	c.Other = text
	return c
}

func (c Choice) IsSet() bool {
	return strings.TrimSpace(c.ID) != ""
}

func (c Choice) IsOther() bool {
	return c.ID == OtherID
}

// OtherText returns the free text, or "" unless the option is OtherID.
func (c Choice) OtherText() string {
	if !c.IsOther() {
		return ""
	}
	return c.Other
}

// Complete reports whether the choice can be submitted: an option is picked
// and, for OtherID, described.
func (c Choice) Complete() bool {
	if !c.IsSet() {
		return false
	}
	return !c.IsOther() || strings.TrimSpace(c.Other) != ""
}

package bot

import (
	"sync"

	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/pocket"
	"github.com/xaenox/comproclick-bot/internal/wizard"
)

type view int

const (
	viewHome view = iota
	viewDesigner
	viewPocket
	viewContact
)

func (v view) String() string {
	switch v {
	case viewHome:
		return "home"
	case viewDesigner:
		return "designer"
	case viewPocket:
		return "pocket"
	case viewContact:
		return "contact"
	}
	return "unknown"
}

// session is one chat's state. mu serializes updates of the same chat.
type session struct {
	mu     sync.Mutex
	chatID int64
	view   view
	wizard *wizard.Controller
	pocket *pocket.Pocket

	// editing is the contact field awaiting a typed value, or "".
	editing models.ContactField
}

// startContactForm opens the contact view on the first field to fill in:
// the first empty required field, or the first field when both are set.
func (s *session) startContactForm() {
	s.view = viewContact
	contact := s.pocket.Contact()
	for _, f := range models.ContactFieldOrder {
		if f.Required() && contact.Value(f) == "" {
			s.editing = f
			return
		}
	}
	s.editing = models.ContactFieldOrder[0]
}

// advanceContactForm moves to the field after the one being edited. It
// reports false when the form is finished.
func (s *session) advanceContactForm() bool {
	for i, f := range models.ContactFieldOrder {
		if f != s.editing {
			continue
		}
		if i+1 < len(models.ContactFieldOrder) {
			s.editing = models.ContactFieldOrder[i+1]
			return true
		}
	}
	s.editing = ""
	return false
}

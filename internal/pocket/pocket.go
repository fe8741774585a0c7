// Package pocket collects finished projects and the visitor's contact data,
// and turns them into one WhatsApp message.
package pocket

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/xaenox/comproclick-bot/internal/catalog"
	"github.com/xaenox/comproclick-bot/internal/models"
	"github.com/xaenox/comproclick-bot/internal/storage"
)

// Storage keys, shared with earlier releases of the site.
const (
	ContactKey = "comproClickUserContact"
	ItemsKey   = "comproClickProjectPocket"
)

var (
	ErrMissingContact = errors.New("full name and email are required")
	ErrEmptyPocket    = errors.New("the pocket has no projects")
)

// Destination is the WhatsApp deep link target.
type Destination struct {
	Host      string
	Recipient string
}

type Pocket struct {
	contact     *storage.Cell[models.ContactProfile]
	items       *storage.Cell[[]models.ProjectItem]
	catalog     *catalog.Catalog
	destination Destination
	newID       func() string
	logger      *zap.Logger
}

// Open loads the contact profile and pocket stored for scope.
func Open(ctx context.Context, store storage.Storage, scope string, cat *catalog.Catalog, dest Destination, logger *zap.Logger) *Pocket {
	return &Pocket{
		contact:     storage.NewCell(ctx, store, scope, ContactKey, models.ContactProfile{}, logger),
		items:       storage.NewCell(ctx, store, scope, ItemsKey, []models.ProjectItem{}, logger),
		catalog:     cat,
		destination: dest,
		newID:       func() string { return ulid.Make().String() },
		logger:      logger.With(zap.String("scope", scope)),
	}
}

func (p *Pocket) Items() []models.ProjectItem {
	return slices.Clone(p.items.Get())
}

func (p *Pocket) Len() int {
	return len(p.items.Get())
}

func (p *Pocket) Contact() models.ContactProfile {
	return p.contact.Get()
}

// AddDraft promotes a finished draft to a pocket item with a fresh id.
func (p *Pocket) AddDraft(draft models.ProjectDraft) (models.ProjectItem, error) {
	item := models.ProjectItem{ID: p.newID(), ProjectDraft: draft}
	var duplicate bool
	p.items.Update(func(items []models.ProjectItem) []models.ProjectItem {
		if slices.ContainsFunc(items, func(existing models.ProjectItem) bool { return existing.ID == item.ID }) {
			duplicate = true
			return items
		}
		return append(slices.Clone(items), item)
	})
	if duplicate {
		return models.ProjectItem{}, fmt.Errorf("duplicate project id %s", item.ID)
	}

	p.logger.Info("Project added to pocket",
		zap.String("project_id", item.ID),
		zap.String("project_type", draft.Type.ID))
	return item, nil
}

// Remove drops the item with id. It reports whether anything was removed.
func (p *Pocket) Remove(id string) bool {
	var removed bool
	p.items.Update(func(items []models.ProjectItem) []models.ProjectItem {
		kept := make([]models.ProjectItem, 0, len(items))
		for _, item := range items {
			if item.ID == id {
				removed = true
				continue
			}
			kept = append(kept, item)
		}
		return kept
	})
	return removed
}

// ClearMarker typed alone empties an optional contact field.
const ClearMarker = "-"

// SetContactField validates and stores one contact field.
func (p *Pocket) SetContactField(field models.ContactField, value string) error {
	value = strings.TrimSpace(value)
	if value == ClearMarker && !field.Required() {
		value = ""
	}
	if err := models.ValidateContactField(field, value); err != nil {
		return err
	}

	var setErr error
	p.contact.Update(func(c models.ContactProfile) models.ContactProfile {
		setErr = c.Set(field, value)
		return c
	})
	return setErr
}

// ClearAll resets contact data and pocket and removes their stored entries.
func (p *Pocket) ClearAll() {
	p.contact.Clear()
	p.items.Clear()
	p.logger.Info("Pocket and contact data cleared")
}

// Dispatch returns the WhatsApp link carrying the whole pocket. It refuses to
// build one until the contact has a name and email and the pocket is not empty.
func (p *Pocket) Dispatch() (string, error) {
	contact := p.Contact()
	items := p.Items()

	if !contact.IsReady() {
		return "", ErrMissingContact
	}
	if len(items) == 0 {
		return "", ErrEmptyPocket
	}

	link := DeepLink(p.destination, BuildOutboundMessage(contact, items, p.catalog))
	p.logger.Info("Pocket dispatched", zap.Int("projects", len(items)))
	return link, nil
}

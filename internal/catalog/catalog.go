// Package catalog holds the options offered by the project designer and the
// labels used to render them.
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Option is a selectable value.
type Option struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Summary string `yaml:"summary"`
	Hidden  bool   `yaml:"hidden"`
}

// SummaryLabel is the label used in outbound messages.
func (o Option) SummaryLabel() string {
	if o.Summary != "" {
		return o.Summary
	}
	return o.Label
}

// Group is an ordered list of options for one wizard step.
type Group []Option

// Visible returns the options offered to visitors, in order.
func (g Group) Visible() []Option {
	out := make([]Option, 0, len(g))
	for _, o := range g {
		if !o.Hidden {
			out = append(out, o)
		}
	}
	return out
}

// Lookup finds an option by id, hidden ones included.
func (g Group) Lookup(id string) (Option, bool) {
	for _, o := range g {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Offers reports whether id is a visible option.
func (g Group) Offers(id string) bool {
	o, ok := g.Lookup(id)
	return ok && !o.Hidden
}

// Label maps a raw value to its summary label. Unknown values pass through.
func (g Group) Label(id string) string {
	if o, ok := g.Lookup(id); ok {
		return o.SummaryLabel()
	}
	return id
}

type Catalog struct {
	ProjectTypes      Group `yaml:"project_types"`
	ProjectCategories Group `yaml:"project_categories"`
	Timelines         Group `yaml:"timelines"`
}

// Load parses a catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(c.ProjectTypes.Visible()) == 0 || len(c.ProjectCategories.Visible()) == 0 || len(c.Timelines.Visible()) == 0 {
		return nil, fmt.Errorf("catalog must offer at least one type, category and timeline")
	}
	return &c, nil
}

// Open reads the catalog file at path. An empty path selects the built-in
// catalog.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	var c Catalog
	if err := yaml.Unmarshal(defaultCatalog, &c); err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog.yaml is invalid: %v", err))
	}
	return &c
}

package presets

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultID is used when a summary request names no preset
const DefaultID = "general-summary"

//go:embed catalog.yaml
var catalogYAML []byte

// Preset is a named prompt template
type Preset struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
	Prompt      string `yaml:"prompt" json:"prompt"`
}

// Category groups presets for display
type Category struct {
	ID      string   `yaml:"id" json:"-"`
	Name    string   `yaml:"name" json:"name"`
	Icon    string   `yaml:"icon" json:"icon"`
	Presets []string `yaml:"-" json:"presets"`
}

// Catalog is an immutable, ordered preset set
type Catalog struct {
	presets    []Preset
	byID       map[string]int
	categories []Category
}

type catalogFile struct {
	Categories []Category `yaml:"categories"`
	Presets    []Preset   `yaml:"presets"`
}

// Load parses the built-in catalog
func Load() (*Catalog, error) {
	return Parse(catalogYAML)
}

// MustLoad is Load that panics on a malformed built-in catalog
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic("presets: " + err.Error())
	}
	return c
}

// Parse builds a catalog from YAML. Category membership follows each
// preset's category field, in catalog order.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("catalog has no presets")
	}

	catIdx := make(map[string]int, len(f.Categories))
	for i, cat := range f.Categories {
		if _, dup := catIdx[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.ID)
		}
		catIdx[cat.ID] = i
		f.Categories[i].Presets = nil
	}

	byID := make(map[string]int, len(f.Presets))
	for i, p := range f.Presets {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("preset %d has no id", i)
		case strings.TrimSpace(p.Prompt) == "":
			return nil, fmt.Errorf("preset %q has an empty prompt", p.ID)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate preset %q", p.ID)
		}
		ci, ok := catIdx[p.Category]
		if !ok {
			return nil, fmt.Errorf("preset %q has unknown category %q", p.ID, p.Category)
		}
		byID[p.ID] = i
		f.Categories[ci].Presets = append(f.Categories[ci].Presets, p.ID)
	}

	return &Catalog{presets: f.Presets, byID: byID, categories: f.Categories}, nil
}

// Get returns the preset with the given id
func (c *Catalog) Get(id string) (Preset, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Preset{}, false
	}
	return c.presets[i], true
}

// All returns the presets in catalog order
func (c *Catalog) All() []Preset {
	out := make([]Preset, len(c.presets))
	copy(out, c.presets)
	return out
}

// Categories returns the categories in catalog order
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	for i, cat := range c.categories {
		cat.Presets = append([]string(nil), cat.Presets...)
		out[i] = cat
	}
	return out
}

// Vars are the video metadata substituted into a prompt
type Vars struct {
	Title    string
	Channel  string
	Duration string
	URL      string
}

// Render fills metadata placeholders. Unknown values render as "Unknown".
// The transcript placeholder is left for the summary streamer.
func Render(prompt string, v Vars) string {
	r := strings.NewReplacer(
		"{{TITLE}}", orUnknown(v.Title),
		"{{CHANNEL}}", orUnknown(v.Channel),
		"{{DURATION}}", orUnknown(v.Duration),
		"{{URL}}", orUnknown(v.URL),
	)
	return r.Replace(prompt)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
